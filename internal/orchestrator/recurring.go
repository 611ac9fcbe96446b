package orchestrator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recurring update cadences submitted by the scheduler.
const (
	UpdateTypeDaily  = "daily"
	UpdateTypeWeekly = "weekly"
	UpdateTypeHourly = "hourly"
)

// Fallback sleeps applied when a loop body fails; the loops themselves
// never exit on error.
const (
	dailyFallback  = time.Hour
	weeklyFallback = 24 * time.Hour
	hourlyFallback = 30 * time.Minute
)

// NextDailyTrigger computes the next daily maintenance trigger: 02:00 UTC,
// rolling to the next calendar day once the current UTC hour is 2 or later.
func NextDailyTrigger(now time.Time) time.Time {
	now = now.UTC()
	trigger := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC)
	if now.Hour() >= 2 {
		trigger = trigger.AddDate(0, 0, 1)
	}
	return trigger
}

// NextWeeklyTrigger computes the next weekly maintenance trigger: Sunday
// 03:00 UTC, a full week out when already past this Sunday's trigger.
func NextWeeklyTrigger(now time.Time) time.Time {
	now = now.UTC()
	days := int(time.Sunday-now.Weekday()+7) % 7
	if days == 0 && now.Hour() >= 3 {
		days = 7
	}
	target := now.AddDate(0, 0, days)
	return time.Date(target.Year(), target.Month(), target.Day(), 3, 0, 0, 0, time.UTC)
}

// RecurringScheduler runs three independent loops that submit
// scheduled_update jobs on fixed wall-clock cadences: daily at 02:00 UTC,
// weekly on Sunday at 03:00 UTC, and hourly. Less frequent cadences carry
// higher priority.
type RecurringScheduler struct {
	submitter Submitter
	log       zerolog.Logger
	stop      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	stopped   bool
}

// NewRecurringScheduler creates a recurring scheduler bound to the
// orchestrator's submission entry point.
func NewRecurringScheduler(submitter Submitter, log zerolog.Logger) *RecurringScheduler {
	return &RecurringScheduler{
		submitter: submitter,
		log:       log.With().Str("component", "recurring_scheduler").Logger(),
		stop:      make(chan struct{}),
	}
}

// Start launches the three cadence loops.
func (s *RecurringScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started && !s.stopped {
		s.log.Warn().Msg("Recurring scheduler already started, ignoring")
		return
	}
	if s.stopped {
		s.stop = make(chan struct{})
		s.stopped = false
	}
	s.started = true

	s.wg.Add(3)
	go s.runLoop(UpdateTypeDaily, PriorityDailyUpdate, dailyFallback, func(now time.Time) time.Duration {
		return NextDailyTrigger(now).Sub(now)
	})
	go s.runLoop(UpdateTypeWeekly, PriorityWeeklyUpdate, weeklyFallback, func(now time.Time) time.Duration {
		return NextWeeklyTrigger(now).Sub(now)
	})
	go s.runLoop(UpdateTypeHourly, PriorityHourlyUpdate, hourlyFallback, func(time.Time) time.Duration {
		return time.Hour
	})

	s.log.Info().Msg("Recurring scheduler started")
}

// Stop stops the loops and waits for them to finish.
func (s *RecurringScheduler) Stop() {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stopped = true
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Recurring scheduler stopped")
}

// runLoop sleeps until the next trigger, submits the update job, and
// recomputes. A failed submission logs and falls back to a shorter sleep;
// the loop never terminates on error.
func (s *RecurringScheduler) runLoop(updateType string, priority int, fallback time.Duration, untilNext func(time.Time) time.Duration) {
	defer s.wg.Done()

	log := s.log.With().Str("update_type", updateType).Logger()
	sleep := untilNext(time.Now())

	for {
		log.Debug().Dur("sleep", sleep).Msg("Waiting for next trigger")
		timer := time.NewTimer(sleep)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		jobID, err := s.submitter.SubmitJob(SubmitRequest{
			Type:       JobTypeScheduledUpdate,
			Payload:    map[string]interface{}{"update_type": updateType},
			Priority:   priority,
			MaxRetries: DefaultMaxRetries,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to submit scheduled update, backing off")
			sleep = fallback
			continue
		}

		log.Info().Str("job_id", jobID).Msg("Scheduled update submitted")
		sleep = untilNext(time.Now())
	}
}
