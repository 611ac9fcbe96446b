package orchestrator

// Store owns the authoritative mapping from job ID to job record.
//
// The Manager is the only writer; it calls Put after every mutation so
// durable backends can persist the change without the dispatcher knowing
// which backend is in use.
type Store interface {
	Put(job *Job) error
	Get(id string) (*Job, bool)
	All() []*Job
	Delete(id string) error
	Len() int
	Close() error
}

// MemoryStore keeps job records in process memory: an append-ordered arena
// plus an ID index. Iteration order is insertion order, which keeps
// eviction and listing deterministic.
type MemoryStore struct {
	arena []*Job
	index map[string]int
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
	}
}

// Put inserts or updates a job record.
func (s *MemoryStore) Put(job *Job) error {
	if pos, exists := s.index[job.ID]; exists {
		s.arena[pos] = job
		return nil
	}
	s.index[job.ID] = len(s.arena)
	s.arena = append(s.arena, job)
	return nil
}

// Get returns the job with the given ID.
func (s *MemoryStore) Get(id string) (*Job, bool) {
	pos, exists := s.index[id]
	if !exists {
		return nil, false
	}
	return s.arena[pos], true
}

// All returns all job records in insertion order.
func (s *MemoryStore) All() []*Job {
	jobs := make([]*Job, 0, len(s.index))
	for _, job := range s.arena {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Delete removes a job record. Deleting an unknown ID is a no-op.
func (s *MemoryStore) Delete(id string) error {
	pos, exists := s.index[id]
	if !exists {
		return nil
	}
	s.arena[pos] = nil
	delete(s.index, id)

	// Compact once the arena is mostly holes.
	if len(s.arena) > 64 && len(s.index) < len(s.arena)/2 {
		s.compact()
	}
	return nil
}

// Len returns the number of stored jobs.
func (s *MemoryStore) Len() int {
	return len(s.index)
}

// Close releases the store. No-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) compact() {
	live := make([]*Job, 0, len(s.index))
	for _, job := range s.arena {
		if job != nil {
			live = append(live, job)
		}
	}
	s.arena = live
	s.index = make(map[string]int, len(live))
	for i, job := range live {
		s.index[job.ID] = i
	}
}
