package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultStaleTime is how long a read stays fresh without invalidation.
const DefaultStaleTime = 30 * time.Second

// EventKind tells subscribers what happened to a key.
type EventKind int

// Event kinds.
const (
	EventUpdated EventKind = iota
	EventInvalidated
)

// Event is published for every cache change.
type Event struct {
	Key  Key
	Kind EventKind
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

type inFlightCall struct {
	done  chan struct{}
	value any
	err   error
}

// Option configures a Cache.
type Option func(*Cache)

// WithResourceStaleTime overrides the stale time of one resource.
func WithResourceStaleTime(r Resource, d time.Duration) Option {
	return func(c *Cache) {
		c.resourceStale[r] = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache holds read results keyed by resource and token.
type Cache struct {
	staleTime     time.Duration
	resourceStale map[Resource]time.Duration
	now           func() time.Time
	log           zerolog.Logger
	lookups       metric.Int64Counter

	mu          sync.RWMutex
	entries     map[Key]*entry
	inFlight    map[Key]*inFlightCall
	generations map[Resource]uint64

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewCache creates a cache. A non-positive staleTime uses DefaultStaleTime.
func NewCache(staleTime time.Duration, opts ...Option) *Cache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	c := &Cache{
		staleTime:     staleTime,
		resourceStale: make(map[Resource]time.Duration),
		now:           time.Now,
		log:           logger.Component("query"),
		entries:       make(map[Key]*entry),
		inFlight:      make(map[Key]*inFlightCall),
		generations:   make(map[Resource]uint64),
		subs:          make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	c.lookups, err = otel.Meter("gitlab.com/yelinaung/finova-bot/internal/query").Int64Counter(
		"finova.cache.lookups",
		metric.WithDescription("Cache lookups by resource and outcome"))
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to create cache lookup counter")
	}
	return c
}

// Fetch returns the cached value of key while fresh, and otherwise calls
// fetch with the key's token. Concurrent misses of one key share a single
// call. Reads without a token fail with ErrDisabled.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T
	if key.Token == "" {
		return zero, ErrDisabled
	}

	return typedGet(ctx, c, key, func(ctx context.Context) (T, error) {
		return fetch(ctx, key.Token)
	})
}

// FetchPublic is Fetch for resources readable without a session.
func FetchPublic[T any](ctx context.Context, c *Cache, r Resource, fetch func(ctx context.Context) (T, error)) (T, error) {
	return typedGet(ctx, c, Key{Resource: r}, fetch)
}

func typedGet[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cached %s holds %T", key.Resource, v)
	}
	return typed, nil
}

func (c *Cache) get(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	fresh := ok && c.freshLocked(key, e, now)
	var value any
	if fresh {
		value = e.value
	}
	c.mu.RUnlock()
	if fresh {
		c.record(ctx, key, true)
		return value, nil
	}

	c.mu.Lock()
	// Re-check under write lock in case another goroutine refreshed it.
	if e, ok := c.entries[key]; ok && c.freshLocked(key, e, now) {
		value := e.value
		c.mu.Unlock()
		c.record(ctx, key, true)
		return value, nil
	}
	if call, waiting := c.inFlight[key]; waiting {
		c.mu.Unlock()
		return waitForInFlight(ctx, call)
	}

	call := &inFlightCall{done: make(chan struct{})}
	c.inFlight[key] = call
	generation := c.generations[key.Resource]
	c.mu.Unlock()
	c.record(ctx, key, false)

	// One caller's cancellation must not fail the other waiters.
	go c.fetchAndBroadcast(context.WithoutCancel(ctx), key, generation, fetch, call)
	return waitForInFlight(ctx, call)
}

func (c *Cache) fetchAndBroadcast(ctx context.Context, key Key, generation uint64, fetch func(context.Context) (any, error), call *inFlightCall) {
	value, err := fetch(ctx)

	c.mu.Lock()
	updated := false
	if err == nil {
		c.entries[key] = &entry{
			value:     value,
			fetchedAt: c.now(),
			// Invalidated while in flight: keep the value but refetch next time.
			stale: c.generations[key.Resource] != generation,
		}
		updated = true
	}
	call.value = value
	call.err = err
	if c.inFlight[key] == call {
		delete(c.inFlight, key)
	}
	c.mu.Unlock()

	// Subscribers hear about the update before waiters return.
	if updated {
		c.publish(Event{Key: key, Kind: EventUpdated})
	}
	close(call.done)
}

func waitForInFlight(ctx context.Context, call *inFlightCall) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.done:
		return call.value, call.err
	}
}

func (c *Cache) freshLocked(key Key, e *entry, now time.Time) bool {
	staleTime := c.staleTime
	if d, ok := c.resourceStale[key.Resource]; ok {
		staleTime = d
	}
	return !e.stale && now.Sub(e.fetchedAt) < staleTime
}

// IsStale reports whether the next read of key calls the backend.
func (c *Cache) IsStale(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return !ok || !c.freshLocked(key, e, c.now())
}

// Invalidate marks every entry of the given resources stale, for all tokens.
// Reads already in flight are not joined by later reads.
func (c *Cache) Invalidate(resources ...Resource) {
	var events []Event

	c.mu.Lock()
	for _, r := range resources {
		c.generations[r]++
		for key, e := range c.entries {
			if key.Resource == r && !e.stale {
				e.stale = true
				events = append(events, Event{Key: key, Kind: EventInvalidated})
			}
		}
		for key := range c.inFlight {
			if key.Resource == r {
				delete(c.inFlight, key)
			}
		}
	}
	c.mu.Unlock()

	c.log.Debug().Interface("resources", resources).Msg("Invalidated")
	for _, ev := range events {
		c.publish(ev)
	}
}

// InvalidateAfter applies the dependency table for a successful mutation of r.
func (c *Cache) InvalidateAfter(r Resource) {
	c.Invalidate(DependentsOf(r)...)
}

// Purge drops every entry of a token, e.g. after logout.
func (c *Cache) Purge(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.Token == token {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Subscribe registers fn for cache events and returns its remover.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Cache) publish(ev Event) {
	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Cache) record(ctx context.Context, key Key, hit bool) {
	if c.lookups == nil {
		return
	}
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("finova.resource", string(key.Resource)),
		attribute.Bool("hit", hit),
	))
}
