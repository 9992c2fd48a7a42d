package query

import (
	"context"
	"sync"
)

// Mutation wraps one write action of a screen. It tracks its own pending
// flag and last error, and invalidates the dependents of its resource only
// after the backend confirmed the write.
type Mutation[In, Out any] struct {
	name     string
	resource Resource
	cache    *Cache
	run      func(ctx context.Context, in In) (Out, error)

	mu      sync.Mutex
	pending int
	err     error
}

// NewMutation creates a mutation of resource. A nil cache skips invalidation.
func NewMutation[In, Out any](name string, resource Resource, cache *Cache, run func(ctx context.Context, in In) (Out, error)) *Mutation[In, Out] {
	return &Mutation[In, Out]{
		name:     name,
		resource: resource,
		cache:    cache,
		run:      run,
	}
}

// Name returns the mutation name.
func (m *Mutation[In, Out]) Name() string {
	return m.name
}

// Run performs the write. Overlapping runs are not serialized.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.pending++
	m.err = nil
	m.mu.Unlock()

	out, err := m.run(ctx, in)

	m.mu.Lock()
	m.pending--
	m.err = err
	m.mu.Unlock()

	if err != nil {
		return out, err
	}
	if m.cache != nil {
		m.cache.InvalidateAfter(m.resource)
	}
	return out, nil
}

// Pending reports whether a run is in progress.
func (m *Mutation[In, Out]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// Err returns the error of the last finished run.
func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset clears the last error.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
}
