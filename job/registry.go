package job

import (
	"strings"
	"sync"
)

// Registry maps job type names to their Runnables. Lookup is
// case-insensitive. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	runnables map[string]Runnable
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		runnables: make(map[string]Runnable),
	}
}

// Register adds a Runnable under its definition's job type.
// Re-registering a type replaces the previous Runnable.
func (r *Registry) Register(runnable Runnable) {
	key := strings.ToLower(runnable.Definition().JobType)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runnables[key] = runnable
}

// Find returns the Runnable for the given job type.
// Returns false if no Runnable is registered.
func (r *Registry) Find(jobType string) (Runnable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runnable, ok := r.runnables[strings.ToLower(jobType)]
	return runnable, ok
}

// JobTypes returns the canonical names of all registered job types.
func (r *Registry) JobTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.runnables))
	for _, runnable := range r.runnables {
		types = append(types, runnable.Definition().JobType)
	}
	return types
}
