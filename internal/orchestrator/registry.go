package orchestrator

import (
	"context"
	"sort"
	"sync"
)

// Handler executes the business logic for one job type. The returned map
// becomes the job's result; any non-nil error signals failure and is fed to
// the retry policy. Handlers observe cancellation and the per-job timeout
// through ctx.
type Handler interface {
	Handle(ctx context.Context, job *Job) (map[string]interface{}, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) (map[string]interface{}, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *Job) (map[string]interface{}, error) {
	return f(ctx, job)
}

// Registry routes job types to their handlers. New job types are added by
// registration, never by modifying the dispatcher.
type Registry struct {
	handlers map[JobType]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[JobType]Handler),
	}
}

// Register adds a handler for a job type. Registering the same type again
// replaces the previous handler.
func (r *Registry) Register(jobType JobType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[jobType] = handler
}

// Get returns the handler for a job type, or nil if none is registered.
func (r *Registry) Get(jobType JobType) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.handlers[jobType]
}

// Has returns true if a handler is registered for the job type.
func (r *Registry) Has(jobType JobType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.handlers[jobType]
	return exists
}

// Types returns all registered job types, sorted for deterministic output.
func (r *Registry) Types() []JobType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]JobType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
