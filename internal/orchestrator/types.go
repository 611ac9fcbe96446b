// Package orchestrator implements the job orchestration engine: a
// priority-ordered, retrying, concurrency-bounded in-process scheduler.
// Jobs are admitted through a single queue, dispatched to registered
// handlers while a global concurrency ceiling has capacity, and retried
// with decaying priority on failure.
package orchestrator

import "time"

// JobType represents the type of job
type JobType string

const (
	JobTypeDataCollection   JobType = "data_collection"
	JobTypeRagScoring       JobType = "rag_scoring"
	JobTypeBatchProcessing  JobType = "batch_processing"
	JobTypeEnrichment       JobType = "enrichment"
	JobTypeReportGeneration JobType = "report_generation"
	JobTypeScheduledUpdate  JobType = "scheduled_update"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
	StatusRetry     JobStatus = "retry"
)

// Finished reports whether the status is terminal (no further transitions).
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority bounds. Higher priorities are served first.
const (
	PriorityMin     = 1
	PriorityDefault = 5
	PriorityMax     = 10
)

// Recurring maintenance priorities: less frequent cadences carry more weight.
const (
	PriorityHourlyUpdate = 6
	PriorityDailyUpdate  = 8
	PriorityWeeklyUpdate = 9
)

// DefaultMaxRetries is applied when a submission does not specify a limit.
const DefaultMaxRetries = 3

// Job represents a unit of background work.
//
// The ID is immutable. Payload ownership transfers to the job at submission
// and is read-only thereafter. All other fields are mutated only by the
// Manager under its lock; handlers report progress through the job's
// progress reporter rather than writing fields directly.
type Job struct {
	ID           string
	Type         JobType
	Status       JobStatus
	Priority     int
	Payload      map[string]interface{}
	Result       map[string]interface{}
	ErrorMessage string
	Progress     int
	RetryCount   int
	MaxRetries   int
	CreatedAt    time.Time
	ScheduledAt  *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time

	reporter *ProgressReporter
}

// ReportProgress lets the executing handler report progress (0-100).
// Progress is monotonically non-decreasing while the job is running.
func (j *Job) ReportProgress(percent int, message string) {
	if j.reporter != nil {
		j.reporter.Report(percent, message)
	}
}

// View returns a read-only snapshot of the job.
func (j *Job) View() JobView {
	v := JobView{
		ID:           j.ID,
		Type:         j.Type,
		Status:       j.Status,
		Priority:     j.Priority,
		Progress:     j.Progress,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
	}
	if j.Result != nil {
		v.Result = make(map[string]interface{}, len(j.Result))
		for k, val := range j.Result {
			v.Result[k] = val
		}
	}
	if j.ScheduledAt != nil {
		t := *j.ScheduledAt
		v.ScheduledAt = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		v.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		v.CompletedAt = &t
	}
	return v
}

// JobView is a read-only snapshot of a job, safe to hand out across
// goroutine boundaries.
type JobView struct {
	ID           string                 `json:"id"`
	Type         JobType                `json:"type"`
	Status       JobStatus              `json:"status"`
	Priority     int                    `json:"priority"`
	Progress     int                    `json:"progress"`
	RetryCount   int                    `json:"retry_count"`
	MaxRetries   int                    `json:"max_retries"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	ScheduledAt  *time.Time             `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// QueueStatus is an aggregate view of the orchestrator's state.
type QueueStatus struct {
	TotalJobs     int `json:"total_jobs"`
	PendingJobs   int `json:"pending_jobs"`
	RunningJobs   int `json:"running_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
	CancelledJobs int `json:"cancelled_jobs"`
	QueueDepth    int `json:"queue_depth"`
	MaxConcurrent int `json:"max_concurrent"`
}

// GetJobDescription returns a human-readable description for a job type
func GetJobDescription(jobType JobType) string {
	descriptions := map[JobType]string{
		JobTypeDataCollection:   "Collecting market data",
		JobTypeRagScoring:       "Scoring opportunities",
		JobTypeBatchProcessing:  "Processing batch items",
		JobTypeEnrichment:       "Enriching records",
		JobTypeReportGeneration: "Generating report",
		JobTypeScheduledUpdate:  "Running scheduled update",
	}

	if desc, exists := descriptions[jobType]; exists {
		return desc
	}

	return string(jobType)
}
