package jobs

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamantos/aide/internal/orchestrator"
)

type fakeStatusSource struct {
	status orchestrator.QueueStatus
	views  []orchestrator.JobView
}

func (f *fakeStatusSource) GetQueueStatus() orchestrator.QueueStatus { return f.status }
func (f *fakeStatusSource) ListJobs() []orchestrator.JobView         { return f.views }

func TestReporter_RendersSummary(t *testing.T) {
	source := &fakeStatusSource{
		status: orchestrator.QueueStatus{
			TotalJobs:     10,
			CompletedJobs: 7,
			FailedJobs:    2,
			PendingJobs:   1,
			MaxConcurrent: 5,
		},
		views: []orchestrator.JobView{
			{ID: "bad-1", Type: orchestrator.JobTypeDataCollection, Status: orchestrator.StatusFailed, ErrorMessage: "connection refused"},
			{ID: "ok-1", Type: orchestrator.JobTypeEnrichment, Status: orchestrator.StatusCompleted},
		},
	}
	reporter := NewReporter(source, zerolog.Nop())

	result, err := reporter.Handle(context.Background(), &orchestrator.Job{
		Payload: map[string]interface{}{"title": "Nightly Summary"},
	})
	require.NoError(t, err)

	assert.Equal(t, "markdown", result["format"])
	assert.Equal(t, 1, result["failures"])

	report := result["report"].(string)
	assert.Contains(t, report, "# Nightly Summary")
	assert.Contains(t, report, "| Total jobs | 10 |")
	assert.Contains(t, report, "| Completed | 7 |")
	assert.Contains(t, report, "bad-1")
	assert.Contains(t, report, "connection refused")
	assert.NotContains(t, report, "ok-1", "completed jobs are not listed as failures")
}

func TestReporter_DefaultTitleAndNoFailures(t *testing.T) {
	reporter := NewReporter(&fakeStatusSource{}, zerolog.Nop())

	result, err := reporter.Handle(context.Background(), &orchestrator.Job{})
	require.NoError(t, err)

	report := result["report"].(string)
	assert.Contains(t, report, "# Job Activity Report")
	assert.NotContains(t, report, "## Failures")
	assert.Equal(t, 0, result["failures"])
}
