package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/orchestrator"
)

// StatusSource exposes the orchestrator state the reporter summarizes.
type StatusSource interface {
	GetQueueStatus() orchestrator.QueueStatus
	ListJobs() []orchestrator.JobView
}

// Reporter handles report_generation jobs: it renders a markdown summary of
// engine activity into the job result. Rendering the document to PDF is the
// document service's concern, not ours.
type Reporter struct {
	source StatusSource
	log    zerolog.Logger
}

// NewReporter creates a report generation handler.
func NewReporter(source StatusSource, log zerolog.Logger) *Reporter {
	return &Reporter{
		source: source,
		log:    log.With().Str("handler", "report_generation").Logger(),
	}
}

// Handle renders the activity report. Payload {"title": ...} overrides the
// default heading.
func (r *Reporter) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	title := stringValue(job.Payload["title"])
	if title == "" {
		title = "Job Activity Report"
	}

	status := r.source.GetQueueStatus()
	views := r.source.ListJobs()

	failures := make([]orchestrator.JobView, 0)
	for _, v := range views {
		if v.Status == orchestrator.StatusFailed {
			failures = append(failures, v)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated at %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "## Queue\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| Total jobs | %d |\n", status.TotalJobs)
	fmt.Fprintf(&b, "| Pending | %d |\n", status.PendingJobs)
	fmt.Fprintf(&b, "| Running | %d |\n", status.RunningJobs)
	fmt.Fprintf(&b, "| Completed | %d |\n", status.CompletedJobs)
	fmt.Fprintf(&b, "| Failed | %d |\n", status.FailedJobs)
	fmt.Fprintf(&b, "| Cancelled | %d |\n", status.CancelledJobs)
	fmt.Fprintf(&b, "| Queue depth | %d |\n", status.QueueDepth)
	fmt.Fprintf(&b, "| Concurrency ceiling | %d |\n", status.MaxConcurrent)

	if len(failures) > 0 {
		fmt.Fprintf(&b, "\n## Failures\n\n")
		for _, v := range failures {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", v.ID, v.Type, v.ErrorMessage)
		}
	}

	job.ReportProgress(100, "report rendered")
	r.log.Debug().Int("jobs", status.TotalJobs).Msg("Report generated")

	return map[string]interface{}{
		"report":   b.String(),
		"format":   "markdown",
		"failures": len(failures),
	}, nil
}
