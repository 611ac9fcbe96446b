package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/orchestrator"
)

// Enricher handles enrichment jobs: it normalizes and derives fields on the
// payload's records so downstream consumers see a consistent shape.
type Enricher struct {
	log zerolog.Logger
}

// NewEnricher creates an enrichment handler.
func NewEnricher(log zerolog.Logger) *Enricher {
	return &Enricher{
		log: log.With().Str("handler", "enrichment").Logger(),
	}
}

// Handle expects payload {"records": [{...}]}. Each record gets a trimmed,
// upper-cased "symbol", a cleaned "name", and an "enriched_at" timestamp.
// Records without a symbol fail the job.
func (e *Enricher) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	records := mapSlice(job.Payload["records"])
	if len(records) == 0 {
		return nil, fmt.Errorf("payload has no records to enrich")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	enriched := make([]interface{}, 0, len(records))
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		symbol := strings.ToUpper(strings.TrimSpace(stringValue(record["symbol"])))
		if symbol == "" {
			return nil, fmt.Errorf("record %d has no symbol", i)
		}

		out := make(map[string]interface{}, len(record)+2)
		for k, v := range record {
			out[k] = v
		}
		out["symbol"] = symbol
		if name := stringValue(record["name"]); name != "" {
			out["name"] = strings.Join(strings.Fields(name), " ")
		}
		out["enriched_at"] = now
		enriched = append(enriched, out)

		job.ReportProgress((i+1)*100/len(records), symbol)
	}

	e.log.Debug().Int("records", len(enriched)).Msg("Enrichment finished")
	return map[string]interface{}{
		"records": enriched,
		"count":   len(enriched),
	}, nil
}
