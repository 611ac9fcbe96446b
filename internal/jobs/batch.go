package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/orchestrator"
)

// Batcher handles batch_processing jobs: it fans the payload's entries out
// as individual sub-jobs through the orchestrator's own submission entry
// point. Sub-jobs compete for the same global concurrency ceiling as all
// other work; priority, not resource partitioning, governs fairness.
type Batcher struct {
	submitter orchestrator.Submitter
	log       zerolog.Logger
}

// NewBatcher creates a batch fan-out handler.
func NewBatcher(submitter orchestrator.Submitter, log zerolog.Logger) *Batcher {
	return &Batcher{
		submitter: submitter,
		log:       log.With().Str("handler", "batch_processing").Logger(),
	}
}

// Handle expects payload {"jobs": [{"type": ..., "payload": {...},
// "priority": n}]} and submits each entry, reporting progress per
// submission. The result lists the spawned job IDs; the batch job itself
// completes once all sub-jobs are admitted, not when they finish.
func (b *Batcher) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	entries := mapSlice(job.Payload["jobs"])
	if len(entries) == 0 {
		return nil, fmt.Errorf("payload has no jobs to fan out")
	}

	submitted := make([]interface{}, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jobType := stringValue(entry["type"])
		if jobType == "" {
			return nil, fmt.Errorf("batch entry %d has no type", i)
		}
		if jobType == string(orchestrator.JobTypeBatchProcessing) {
			return nil, fmt.Errorf("batch entry %d: batches must not nest batches", i)
		}

		req := orchestrator.SubmitRequest{
			Type:       orchestrator.JobType(jobType),
			Priority:   orchestrator.PriorityDefault,
			MaxRetries: orchestrator.DefaultMaxRetries,
		}
		if payload, ok := entry["payload"].(map[string]interface{}); ok {
			req.Payload = payload
		}
		if priority, ok := floatValue(entry["priority"]); ok {
			req.Priority = int(priority)
		}

		subID, err := b.submitter.SubmitJob(req)
		if err != nil {
			return nil, fmt.Errorf("failed to submit batch entry %d (%s): %w", i, jobType, err)
		}
		submitted = append(submitted, subID)

		job.ReportProgress((i+1)*100/len(entries), fmt.Sprintf("submitted %s", jobType))
	}

	b.log.Info().Int("spawned", len(submitted)).Msg("Batch fan-out finished")
	return map[string]interface{}{
		"job_ids": submitted,
		"spawned": len(submitted),
	}, nil
}
