package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/events"
)

var (
	// ErrUnknownJobType is returned when a submission names a job type with
	// no registered handler.
	ErrUnknownJobType = errors.New("unknown job type")
	// ErrJobNotFound is returned for lookups of unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished is returned when cancelling a job that already reached
	// a terminal status.
	ErrJobFinished = errors.New("job already finished")
	// ErrStopped is returned for submissions after shutdown began.
	ErrStopped = errors.New("orchestrator stopped")
)

// Submitter is the orchestrator's submission entry point, consumed by the
// recurring scheduler and by handlers that spawn sub-jobs.
type Submitter interface {
	SubmitJob(req SubmitRequest) (string, error)
}

// SubmitRequest describes a job submission.
type SubmitRequest struct {
	Type        JobType
	Payload     map[string]interface{}
	Priority    int        // 0 means PriorityDefault; otherwise must be 1-10
	ScheduledAt *time.Time // Future times defer admission until due
	MaxRetries  int        // Negative is invalid; 0 disables retries
}

// Config holds manager configuration.
type Config struct {
	MaxConcurrent int
	JobTimeout    time.Duration // 0 disables the per-job timeout
	Store         Store
	Registry      *Registry
	Events        *events.Manager // Optional
	Log           zerolog.Logger
}

// Manager is the concurrency gate and dispatcher. It admits pending jobs
// while the running count is below the ceiling, runs each job in its own
// goroutine, and applies the retry policy on failure.
//
// All queue, gate, and job-record bookkeeping happens under a single mutex;
// only handler execution runs outside it. Slots are refilled synchronously
// after every terminal or retry transition, never on a polling interval.
type Manager struct {
	store         Store
	registry      *Registry
	events        *events.Manager
	log           zerolog.Logger
	maxConcurrent int
	jobTimeout    time.Duration

	mu       sync.Mutex
	queue    admissionQueue
	running  map[string]context.CancelFunc
	deferred map[string]*time.Timer
	stopped  bool
	wg       sync.WaitGroup
}

// New creates a new job orchestration manager.
func New(cfg Config) *Manager {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Manager{
		store:         cfg.Store,
		registry:      cfg.Registry,
		events:        cfg.Events,
		log:           cfg.Log.With().Str("component", "orchestrator").Logger(),
		maxConcurrent: cfg.MaxConcurrent,
		jobTimeout:    cfg.JobTimeout,
		running:       make(map[string]context.CancelFunc),
		deferred:      make(map[string]*time.Timer),
	}
}

// MaxConcurrent returns the configured concurrency ceiling.
func (m *Manager) MaxConcurrent() int {
	return m.maxConcurrent
}

// Registry returns the handler registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// SubmitJob validates and admits a new job, returning its ID. Submissions
// with a future ScheduledAt are deferred and enter the admission queue when
// due; everything else is queued immediately.
func (m *Manager) SubmitJob(req SubmitRequest) (string, error) {
	if !m.registry.Has(req.Type) {
		m.log.Error().Str("job_type", string(req.Type)).Msg("Submission rejected: no handler registered for job type")
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, req.Type)
	}

	priority := req.Priority
	if priority == 0 {
		priority = PriorityDefault
	}
	if priority < PriorityMin || priority > PriorityMax {
		return "", fmt.Errorf("priority must be between %d and %d, got %d", PriorityMin, PriorityMax, req.Priority)
	}
	if req.MaxRetries < 0 {
		return "", fmt.Errorf("max_retries must not be negative, got %d", req.MaxRetries)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Status:      StatusPending,
		Priority:    priority,
		Payload:     req.Payload,
		MaxRetries:  req.MaxRetries,
		CreatedAt:   now,
		ScheduledAt: req.ScheduledAt,
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return "", ErrStopped
	}
	if err := m.store.Put(job); err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("failed to store job: %w", err)
	}

	deferred := req.ScheduledAt != nil && req.ScheduledAt.After(now)
	if deferred {
		id := job.ID
		m.deferred[id] = time.AfterFunc(time.Until(*req.ScheduledAt), func() {
			m.admitDeferred(id)
		})
	} else {
		m.queue.enqueue(job.ID, job.Priority)
		m.dispatchLocked()
	}
	m.mu.Unlock()

	if deferred {
		m.log.Info().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Time("scheduled_at", *req.ScheduledAt).
			Msg("Job deferred")
		m.emitStatusValue(events.JobDeferred, job.ID, job.Type, StatusPending, "")
	} else {
		m.log.Info().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Int("priority", priority).
			Msg("Job submitted")
		m.emitStatusValue(events.JobSubmitted, job.ID, job.Type, StatusPending, "")
	}

	return job.ID, nil
}

// admitDeferred moves a deferred job into the admission queue when its
// scheduled time arrives.
func (m *Manager) admitDeferred(id string) {
	m.mu.Lock()
	delete(m.deferred, id)
	if m.stopped {
		m.mu.Unlock()
		return
	}
	job, ok := m.store.Get(id)
	if !ok || job.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	m.queue.enqueue(id, job.Priority)
	m.dispatchLocked()
	m.mu.Unlock()

	m.log.Info().Str("job_id", id).Msg("Deferred job admitted")
	m.emitStatusValue(events.JobSubmitted, job.ID, job.Type, StatusPending, "")
}

// CancelJob transitions a job to Cancelled. Pending and deferred jobs are
// cancelled immediately; running jobs have their context cancelled and the
// slot frees when the handler returns.
func (m *Manager) CancelJob(id string) error {
	m.mu.Lock()
	job, ok := m.store.Get(id)
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status.Finished() {
		m.mu.Unlock()
		return ErrJobFinished
	}

	now := time.Now().UTC()
	if job.Status == StatusRunning {
		job.Status = StatusCancelled
		// CompletedAt is stamped when the handler actually returns.
		if cancel, running := m.running[id]; running {
			cancel()
		}
	} else {
		if timer, isDeferred := m.deferred[id]; isDeferred {
			timer.Stop()
			delete(m.deferred, id)
		}
		m.queue.remove(id)
		job.Status = StatusCancelled
		job.CompletedAt = &now
	}
	if err := m.store.Put(job); err != nil {
		m.log.Error().Err(err).Str("job_id", id).Msg("Failed to persist cancellation")
	}
	m.mu.Unlock()

	m.log.Info().Str("job_id", id).Msg("Job cancelled")
	m.emitStatusValue(events.JobCancelled, job.ID, job.Type, StatusCancelled, "")
	return nil
}

// GetJobStatus returns a read-only snapshot of a job.
func (m *Manager) GetJobStatus(id string) (JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.store.Get(id)
	if !ok {
		return JobView{}, ErrJobNotFound
	}
	return job.View(), nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (m *Manager) ListJobs() []JobView {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := m.store.All()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

// GetQueueStatus returns aggregate counts for the whole engine.
func (m *Manager) GetQueueStatus() QueueStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := QueueStatus{
		QueueDepth:    m.queue.depth(),
		MaxConcurrent: m.maxConcurrent,
	}
	for _, job := range m.store.All() {
		status.TotalJobs++
		switch job.Status {
		case StatusPending, StatusRetry:
			status.PendingJobs++
		case StatusRunning:
			status.RunningJobs++
		case StatusCompleted:
			status.CompletedJobs++
		case StatusFailed:
			status.FailedJobs++
		case StatusCancelled:
			status.CancelledJobs++
		}
	}
	return status
}

// dispatchLocked admits queued jobs while the gate has capacity. Must be
// called with the manager lock held. It never blocks: each admitted job
// runs in its own goroutine.
func (m *Manager) dispatchLocked() {
	for !m.stopped && len(m.running) < m.maxConcurrent {
		id, ok := m.queue.dequeue()
		if !ok {
			return
		}
		job, found := m.store.Get(id)
		if !found || job.Status != StatusPending {
			continue
		}

		handler := m.registry.Get(job.Type)
		if handler == nil {
			// Handler was unregistered after submission. Programming error;
			// fail the job loudly instead of dropping it.
			now := time.Now().UTC()
			job.Status = StatusFailed
			job.ErrorMessage = fmt.Sprintf("no handler registered for job type %q", job.Type)
			job.CompletedAt = &now
			if err := m.store.Put(job); err != nil {
				m.log.Error().Err(err).Str("job_id", id).Msg("Failed to persist job failure")
			}
			m.log.Error().Str("job_id", id).Str("job_type", string(job.Type)).Msg("No handler for dispatched job")
			continue
		}

		now := time.Now().UTC()
		job.Status = StatusRunning
		job.StartedAt = &now
		job.CompletedAt = nil
		job.Progress = 0
		job.reporter = newProgressReporter(m, job.ID, job.Type)

		ctx, cancel := context.WithCancel(context.Background())
		m.running[id] = cancel
		if err := m.store.Put(job); err != nil {
			m.log.Error().Err(err).Str("job_id", id).Msg("Failed to persist job start")
		}

		m.wg.Add(1)
		go m.execute(ctx, cancel, job, handler)
	}
}

// execute runs a single job to completion in its own goroutine.
func (m *Manager) execute(ctx context.Context, cancel context.CancelFunc, job *Job, handler Handler) {
	defer m.wg.Done()
	defer cancel()

	m.log.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Int("attempt", job.RetryCount+1).
		Msg("Job started")
	m.emitStatusValue(events.JobStarted, job.ID, job.Type, StatusRunning, "")

	runCtx := ctx
	if m.jobTimeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(ctx, m.jobTimeout)
		defer timeoutCancel()
	}

	result, err := invoke(runCtx, job, handler)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("job timed out after %s: %w", m.jobTimeout, err)
	}

	m.finish(job, result, err)
}

// invoke calls the handler, converting a panic into a regular failure so
// one job's crash never takes down the dispatcher or its siblings.
func invoke(ctx context.Context, job *Job, handler Handler) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}

// finish applies the state machine transition for a returned handler and
// immediately refills freed slots.
func (m *Manager) finish(job *Job, result map[string]interface{}, err error) {
	m.mu.Lock()
	delete(m.running, job.ID)

	// Re-read the authoritative record: durable stores hand out fresh
	// structs, and a concurrent cancellation lands on the stored one.
	if stored, ok := m.store.Get(job.ID); ok {
		job = stored
	}

	now := time.Now().UTC()
	var eventType events.EventType
	var errMsg string

	switch {
	case job.Status == StatusCancelled:
		// Cancelled mid-flight; the cancel event was already emitted.
		job.CompletedAt = &now

	case err == nil:
		job.Status = StatusCompleted
		job.Result = result
		job.Progress = 100
		job.CompletedAt = &now
		eventType = events.JobCompleted

	default:
		errMsg = err.Error()
		if errMsg == "" {
			errMsg = "handler failed"
		}
		job.ErrorMessage = errMsg

		decision := DecideRetry(job.RetryCount, job.MaxRetries, job.Priority)
		if decision.Retry {
			job.Status = StatusRetry
			job.RetryCount++
			job.Priority = decision.Priority
			eventType = events.JobRetrying
			// Immediately re-eligible at reduced priority; deprioritization
			// is the backoff.
			job.Status = StatusPending
			m.queue.enqueue(job.ID, job.Priority)
		} else {
			job.Status = StatusFailed
			job.CompletedAt = &now
			eventType = events.JobFailed
		}
	}

	if perr := m.store.Put(job); perr != nil {
		m.log.Error().Err(perr).Str("job_id", job.ID).Msg("Failed to persist job transition")
	}
	m.dispatchLocked()
	finalStatus := job.Status
	retryCount := job.RetryCount
	priority := job.Priority
	m.mu.Unlock()

	switch eventType {
	case events.JobCompleted:
		m.log.Info().Str("job_id", job.ID).Str("job_type", string(job.Type)).Msg("Job completed")
	case events.JobRetrying:
		m.log.Warn().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Str("error", errMsg).
			Int("retry_count", retryCount).
			Int("priority", priority).
			Msg("Job failed, retrying at reduced priority")
	case events.JobFailed:
		m.log.Error().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Str("error", errMsg).
			Int("retry_count", retryCount).
			Msg("Job failed terminally")
	}
	if eventType != "" {
		m.emitStatusValue(eventType, job.ID, job.Type, finalStatus, errMsg)
	}
}

// setProgress records handler-reported progress. Values are clamped to
// 0-100 and never decrease while the job is running.
func (m *Manager) setProgress(jobID string, jobType JobType, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	m.mu.Lock()
	job, ok := m.store.Get(jobID)
	if !ok || job.Status != StatusRunning || percent < job.Progress {
		m.mu.Unlock()
		return
	}
	job.Progress = percent
	if err := m.store.Put(job); err != nil {
		m.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to persist job progress")
	}
	m.mu.Unlock()

	if m.events != nil {
		m.events.EmitTyped(events.JobProgress, "orchestrator", &events.JobStatusData{
			JobID:   jobID,
			JobType: string(jobType),
			Status:  "progress",
			Progress: &events.JobProgressInfo{
				Percent: percent,
				Message: message,
			},
		})
	}
}

// Sweep applies a retention policy, deleting finished jobs that exceed the
// TTL or the finished-job count limit. Returns the number evicted.
func (m *Manager) Sweep(policy RetentionPolicy) int {
	m.mu.Lock()
	evicted := policy.selectEvictions(m.store.All(), time.Now().UTC())
	for _, id := range evicted {
		if err := m.store.Delete(id); err != nil {
			m.log.Error().Err(err).Str("job_id", id).Msg("Failed to evict job")
		}
	}
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.log.Info().Int("evicted", len(evicted)).Msg("Evicted finished jobs")
		if m.events != nil {
			m.events.Emit(events.JobEvicted, "orchestrator", map[string]interface{}{
				"count": len(evicted),
			})
		}
	}
	return len(evicted)
}

// Stop shuts the manager down: no new admissions, deferred timers stopped,
// running jobs cancelled cooperatively. Blocks until in-flight handlers
// return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	for id, timer := range m.deferred {
		timer.Stop()
		delete(m.deferred, id)
	}
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info().Msg("Orchestrator stopped")
}

// emitStatusValue publishes a lifecycle event for a job.
func (m *Manager) emitStatusValue(eventType events.EventType, jobID string, jobType JobType, status JobStatus, errMsg string) {
	if m.events == nil {
		return
	}
	m.events.EmitTyped(eventType, "orchestrator", &events.JobStatusData{
		JobID:   jobID,
		JobType: string(jobType),
		Status:  string(status),
		Error:   errMsg,
	})
}
