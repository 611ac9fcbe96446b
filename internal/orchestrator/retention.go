package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetentionPolicy bounds the growth of the job store. Finished jobs
// (completed, failed, cancelled) are evicted once they are older than TTL,
// or once more than MaxFinished of them accumulate (oldest first). Zero
// values disable the respective limit.
type RetentionPolicy struct {
	TTL         time.Duration
	MaxFinished int
}

// selectEvictions returns the IDs of finished jobs that the policy evicts.
func (p RetentionPolicy) selectEvictions(jobs []*Job, now time.Time) []string {
	type finished struct {
		id string
		at time.Time
	}

	var candidates []finished
	var evicted []string

	for _, job := range jobs {
		if !job.Status.Finished() {
			continue
		}
		at := job.CreatedAt
		if job.CompletedAt != nil {
			at = *job.CompletedAt
		}
		if p.TTL > 0 && now.Sub(at) > p.TTL {
			evicted = append(evicted, job.ID)
			continue
		}
		candidates = append(candidates, finished{id: job.ID, at: at})
	}

	if p.MaxFinished > 0 && len(candidates) > p.MaxFinished {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].at.Before(candidates[j].at)
		})
		for _, c := range candidates[:len(candidates)-p.MaxFinished] {
			evicted = append(evicted, c.id)
		}
	}

	return evicted
}

// Sweeper periodically applies a retention policy to the manager's store.
type Sweeper struct {
	manager  *Manager
	policy   RetentionPolicy
	interval time.Duration
	log      zerolog.Logger
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewSweeper creates a retention sweeper. A non-positive interval defaults
// to one hour.
func NewSweeper(manager *Manager, policy RetentionPolicy, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		manager:  manager,
		policy:   policy,
		interval: interval,
		log:      log.With().Str("component", "retention_sweeper").Logger(),
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.manager.Sweep(s.policy)
			}
		}
	}()
	s.log.Info().Dur("interval", s.interval).Msg("Retention sweeper started")
}

// Stop stops the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Retention sweeper stopped")
}
