package ratelimit

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named admission limiters, typically one per upstream
// provider. It is an explicitly constructed value passed to the components
// that issue provider calls.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*AdmissionLimiter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*AdmissionLimiter)}
}

// Register adds a limiter. Names must be unique.
func (r *Registry) Register(l *AdmissionLimiter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.limiters[l.Name()]; exists {
		return fmt.Errorf("limiter %q already registered", l.Name())
	}
	r.limiters[l.Name()] = l
	return nil
}

// Get returns the named limiter.
func (r *Registry) Get(name string) (*AdmissionLimiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.limiters[name]
	return l, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered limiters ordered by name.
func (r *Registry) All() []*AdmissionLimiter {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AdmissionLimiter, 0, len(names))
	for _, name := range names {
		if l, ok := r.limiters[name]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Snapshots returns the metrics of every limiter ordered by name.
func (r *Registry) Snapshots() []Snapshot {
	limiters := r.All()
	out := make([]Snapshot, 0, len(limiters))
	for _, l := range limiters {
		out = append(out, l.Metrics())
	}
	return out
}
