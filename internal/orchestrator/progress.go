package orchestrator

import (
	"sync"
	"time"
)

// ProgressReporter allows the handler executing a job to report progress.
// Reports are throttled to prevent event flooding; 100% always bypasses
// the throttle. Progress writes are routed through the Manager so the
// stored value stays monotonically non-decreasing while the job runs.
type ProgressReporter struct {
	manager     *Manager
	jobID       string
	jobType     JobType
	lastReport  time.Time
	minInterval time.Duration
	mu          sync.Mutex
}

// newProgressReporter creates a reporter with the default 100ms throttle
// (10 updates/sec max).
func newProgressReporter(manager *Manager, jobID string, jobType JobType) *ProgressReporter {
	return &ProgressReporter{
		manager:     manager,
		jobID:       jobID,
		jobType:     jobType,
		minInterval: 100 * time.Millisecond,
	}
}

// Report records progress (0-100) with an optional message.
func (pr *ProgressReporter) Report(percent int, message string) {
	if pr.manager == nil {
		return
	}

	pr.mu.Lock()
	now := time.Now()
	if now.Sub(pr.lastReport) < pr.minInterval && percent < 100 {
		pr.mu.Unlock()
		return
	}
	pr.lastReport = now
	pr.mu.Unlock()

	pr.manager.setProgress(pr.jobID, pr.jobType, percent, message)
}
