package jobs

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamantos/aide/internal/orchestrator"
)

func TestScorer_ClassifiesAroundCohortMean(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	job := &orchestrator.Job{
		ID:   "score-1",
		Type: orchestrator.JobTypeRagScoring,
		Payload: map[string]interface{}{
			"scores": map[string]interface{}{
				"WINNER": 100.0,
				"LOSER":  0.0,
				"MID_A":  50.0,
				"MID_B":  50.0,
			},
		},
	}

	result, err := scorer.Handle(context.Background(), job)
	require.NoError(t, err)

	ratings := result["ratings"].(map[string]interface{})
	assert.Equal(t, RatingGreen, ratings["WINNER"])
	assert.Equal(t, RatingRed, ratings["LOSER"])
	assert.Equal(t, RatingAmber, ratings["MID_A"])
	assert.Equal(t, RatingAmber, ratings["MID_B"])

	assert.Equal(t, 1, result["green"])
	assert.Equal(t, 2, result["amber"])
	assert.Equal(t, 1, result["red"])
	assert.Equal(t, 50.0, result["mean"])
}

func TestScorer_FlatCohortIsAllAmber(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	job := &orchestrator.Job{
		Payload: map[string]interface{}{
			"scores": map[string]interface{}{
				"A": 10.0,
				"B": 10.0,
				"C": 10.0,
			},
		},
	}

	result, err := scorer.Handle(context.Background(), job)
	require.NoError(t, err)

	ratings := result["ratings"].(map[string]interface{})
	for symbol, rating := range ratings {
		assert.Equal(t, RatingAmber, rating, "symbol %s", symbol)
	}
}

func TestScorer_AcceptsIntegerScores(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	job := &orchestrator.Job{
		Payload: map[string]interface{}{
			"scores": map[string]interface{}{
				"A": 10,
				"B": 90,
			},
		},
	}

	_, err := scorer.Handle(context.Background(), job)
	assert.NoError(t, err)
}

func TestScorer_RejectsBadPayloads(t *testing.T) {
	scorer := NewScorer(zerolog.Nop())

	t.Run("no scores", func(t *testing.T) {
		_, err := scorer.Handle(context.Background(), &orchestrator.Job{Payload: map[string]interface{}{}})
		assert.Error(t, err)
	})

	t.Run("non-numeric score", func(t *testing.T) {
		_, err := scorer.Handle(context.Background(), &orchestrator.Job{
			Payload: map[string]interface{}{
				"scores": map[string]interface{}{"A": "not a number"},
			},
		})
		assert.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		mean   float64
		stddev float64
		want   string
	}{
		{"well above band", 90, 50, 10, RatingGreen},
		{"well below band", 10, 50, 10, RatingRed},
		{"inside band", 52, 50, 10, RatingAmber},
		{"exactly on upper band", 55, 50, 10, RatingGreen},
		{"exactly on lower band", 45, 50, 10, RatingRed},
		{"zero spread", 50, 50, 0, RatingAmber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.score, tt.mean, tt.stddev))
		})
	}
}
