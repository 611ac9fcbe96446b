// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	JobSubmitted  EventType = "JOB_SUBMITTED"
	JobDeferred   EventType = "JOB_DEFERRED"
	JobStarted    EventType = "JOB_STARTED"
	JobProgress   EventType = "JOB_PROGRESS"
	JobCompleted  EventType = "JOB_COMPLETED"
	JobRetrying   EventType = "JOB_RETRYING"
	JobFailed     EventType = "JOB_FAILED"
	JobCancelled  EventType = "JOB_CANCELLED"
	JobEvicted    EventType = "JOB_EVICTED"
	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// JobProgressInfo carries progress details inside a JOB_PROGRESS event.
type JobProgressInfo struct {
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// JobStatusData is the typed payload for job lifecycle events.
type JobStatusData struct {
	JobID    string           `json:"job_id"`
	JobType  string           `json:"job_type"`
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Progress *JobProgressInfo `json:"progress,omitempty"`
}
