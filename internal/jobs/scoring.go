package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/adamantos/aide/internal/orchestrator"
)

// RAG classification labels.
const (
	RatingRed   = "red"
	RatingAmber = "amber"
	RatingGreen = "green"
)

// zScoreBand is the distance from the mean (in standard deviations) beyond
// which a score leaves the amber band.
const zScoreBand = 0.5

// Scorer handles rag_scoring jobs: it classifies opportunity scores into
// Red/Amber/Green relative to the cohort submitted in the payload.
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates a RAG scoring handler.
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		log: log.With().Str("handler", "rag_scoring").Logger(),
	}
}

// Handle expects payload {"scores": {symbol: number}} and rates each symbol
// by its z-score within the cohort: green above the band, red below, amber
// in between. A cohort with no spread rates everything amber.
func (s *Scorer) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	raw, ok := job.Payload["scores"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("payload has no scores to classify")
	}

	symbols := make([]string, 0, len(raw))
	values := make([]float64, 0, len(raw))
	for symbol, v := range raw {
		score, isNum := floatValue(v)
		if !isNum {
			return nil, fmt.Errorf("score for %s is not numeric", symbol)
		}
		symbols = append(symbols, symbol)
		values = append(values, score)
	}

	mean := stat.Mean(values, nil)
	stddev := stat.StdDev(values, nil)

	ratings := make(map[string]interface{}, len(symbols))
	counts := map[string]int{RatingRed: 0, RatingAmber: 0, RatingGreen: 0}
	for i, symbol := range symbols {
		rating := classify(values[i], mean, stddev)
		ratings[symbol] = rating
		counts[rating]++

		job.ReportProgress((i+1)*100/len(symbols), symbol)
	}

	s.log.Debug().
		Int("scored", len(symbols)).
		Float64("mean", mean).
		Float64("stddev", stddev).
		Msg("Scoring finished")

	return map[string]interface{}{
		"ratings": ratings,
		"mean":    mean,
		"stddev":  stddev,
		"green":   counts[RatingGreen],
		"amber":   counts[RatingAmber],
		"red":     counts[RatingRed],
	}, nil
}

func classify(score, mean, stddev float64) string {
	if stddev == 0 {
		return RatingAmber
	}
	z := (score - mean) / stddev
	switch {
	case z >= zScoreBand:
		return RatingGreen
	case z <= -zScoreBand:
		return RatingRed
	default:
		return RatingAmber
	}
}
