package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func counter(calls *atomic.Int32, value string) func(context.Context, string) (string, error) {
	return func(_ context.Context, token string) (string, error) {
		calls.Add(1)
		return value + ":" + token, nil
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("empty token disables the read", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		var calls atomic.Int32
		_, err := Fetch(context.Background(), c, Key{Resource: ResourceExpenses}, counter(&calls, "x"))
		require.ErrorIs(t, err, ErrDisabled)
		require.Zero(t, calls.Load())
	})

	t.Run("fresh entries are served from cache", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := NewCache(time.Minute, WithClock(clock.Now))
		key := Key{Resource: ResourceExpenses, Token: "a"}
		var calls atomic.Int32

		v, err := Fetch(context.Background(), c, key, counter(&calls, "gastos"))
		require.NoError(t, err)
		require.Equal(t, "gastos:a", v)

		_, err = Fetch(context.Background(), c, key, counter(&calls, "gastos"))
		require.NoError(t, err)
		require.Equal(t, int32(1), calls.Load())
		require.False(t, c.IsStale(key))
	})

	t.Run("entries expire after the stale time", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		c := NewCache(time.Minute, WithClock(clock.Now))
		key := Key{Resource: ResourceSummary, Token: "a"}
		var calls atomic.Int32

		_, err := Fetch(context.Background(), c, key, counter(&calls, "resumen"))
		require.NoError(t, err)

		clock.Advance(time.Minute)
		require.True(t, c.IsStale(key))

		_, err = Fetch(context.Background(), c, key, counter(&calls, "resumen"))
		require.NoError(t, err)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("tokens never share entries", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		var calls atomic.Int32

		a, err := Fetch(context.Background(), c, Key{Resource: ResourceProfile, Token: "a"}, counter(&calls, "p"))
		require.NoError(t, err)
		b, err := Fetch(context.Background(), c, Key{Resource: ResourceProfile, Token: "b"}, counter(&calls, "p"))
		require.NoError(t, err)

		require.Equal(t, "p:a", a)
		require.Equal(t, "p:b", b)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		key := Key{Resource: ResourceIncomes, Token: "a"}
		boom := errors.New("boom")
		var calls atomic.Int32
		fail := func(context.Context, string) (string, error) {
			calls.Add(1)
			return "", boom
		}

		_, err := Fetch(context.Background(), c, key, fail)
		require.ErrorIs(t, err, boom)
		_, err = Fetch(context.Background(), c, key, fail)
		require.ErrorIs(t, err, boom)
		require.Equal(t, int32(2), calls.Load())
		require.True(t, c.IsStale(key))
	})

	t.Run("concurrent misses share one call", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		key := Key{Resource: ResourceBudgetItems, Token: "a"}
		release := make(chan struct{})
		var calls atomic.Int32
		slow := func(context.Context, string) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := Fetch(context.Background(), c, key, slow)
				if err == nil {
					results[i] = v
				}
			}(i)
		}

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			require.Equal(t, 42, v)
		}
	})

	t.Run("cancelled waiter does not fail the fetch", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		key := Key{Resource: ResourceSummary, Token: "a"}
		release := make(chan struct{})
		slow := func(context.Context, string) (string, error) {
			<-release
			return "ok", nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := Fetch(ctx, c, key, slow)
			done <- err
		}()
		require.Eventually(t, func() bool {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return len(c.inFlight) == 1
		}, time.Second, time.Millisecond)

		cancel()
		require.ErrorIs(t, <-done, context.Canceled)

		close(release)
		require.Eventually(t, func() bool { return !c.IsStale(key) }, time.Second, time.Millisecond)
	})

	t.Run("type mismatch is an error", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Minute)
		key := Key{Resource: ResourceProfile, Token: "a"}
		_, err := Fetch(context.Background(), c, key, func(context.Context, string) (string, error) { return "s", nil })
		require.NoError(t, err)

		_, err = Fetch(context.Background(), c, key, func(context.Context, string) (int, error) { return 1, nil })
		require.ErrorContains(t, err, "holds string")
	})
}

func TestInvalidateAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutated   Resource
		stale     []Resource
		untouched []Resource
	}{
		{ResourceExpenses, []Resource{ResourceExpenses, ResourceSummary, ResourceBudgetItems}, []Resource{ResourceIncomes, ResourceProfile}},
		{ResourceIncomes, []Resource{ResourceIncomes, ResourceSummary, ResourceBudgetItems}, []Resource{ResourceExpenses, ResourceProfile}},
		{ResourceBudgetItems, []Resource{ResourceBudgetItems, ResourceSummary, ResourceExpenses}, []Resource{ResourceIncomes, ResourceProfile}},
		{ResourceProfile, []Resource{ResourceProfile}, []Resource{ResourceExpenses, ResourceIncomes, ResourceBudgetItems, ResourceSummary}},
	}

	all := []Resource{ResourceExpenses, ResourceIncomes, ResourceBudgetItems, ResourceSummary, ResourceProfile}

	for _, tt := range tests {
		t.Run(string(tt.mutated), func(t *testing.T) {
			t.Parallel()

			c := NewCache(time.Hour)
			var calls atomic.Int32
			for _, r := range all {
				_, err := Fetch(context.Background(), c, Key{Resource: r, Token: "a"}, counter(&calls, string(r)))
				require.NoError(t, err)
			}

			c.InvalidateAfter(tt.mutated)

			for _, r := range tt.stale {
				require.True(t, c.IsStale(Key{Resource: r, Token: "a"}), "%s should be stale", r)
			}
			for _, r := range tt.untouched {
				require.False(t, c.IsStale(Key{Resource: r, Token: "a"}), "%s should be fresh", r)
			}
		})
	}
}

func TestInvalidateAfter_ThreeWayProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		mutated := rapid.SampledFrom([]Resource{ResourceExpenses, ResourceIncomes, ResourceBudgetItems}).Draw(t, "resource")
		deps := DependentsOf(mutated)

		for _, want := range []Resource{mutated, ResourceSummary, ResourceBudgetItems} {
			found := false
			for _, d := range deps {
				if d == want {
					found = true
				}
			}
			if !found {
				t.Fatalf("mutating %s does not invalidate %s", mutated, want)
			}
		}
	})
}

func TestDependentsOf_Unlisted(t *testing.T) {
	t.Parallel()

	require.Equal(t, []Resource{ResourceAuthConfig}, DependentsOf(ResourceAuthConfig))
}

func TestInvalidate_InFlightResultIsStale(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour)
	key := Key{Resource: ResourceSummary, Token: "a"}
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	go func() {
		_, _ = Fetch(context.Background(), c, key, func(context.Context, string) (string, error) {
			calls.Add(1)
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started

	c.Invalidate(ResourceSummary)
	close(release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	require.True(t, c.IsStale(key))
	v, err := Fetch(context.Background(), c, key, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "new", nil
	})
	require.NoError(t, err)
	require.Equal(t, "new", v)
	require.Equal(t, int32(2), calls.Load())
}

func TestPurge(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour)
	var calls atomic.Int32
	for _, token := range []string{"a", "b"} {
		_, err := Fetch(context.Background(), c, Key{Resource: ResourceExpenses, Token: token}, counter(&calls, "g"))
		require.NoError(t, err)
	}

	c.Purge("a")
	require.Equal(t, 1, c.Len())
	require.True(t, c.IsStale(Key{Resource: ResourceExpenses, Token: "a"}))
	require.False(t, c.IsStale(Key{Resource: ResourceExpenses, Token: "b"}))
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Hour)
	var mu sync.Mutex
	var events []Event
	unsubscribe := c.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	key := Key{Resource: ResourceIncomes, Token: "a"}
	var calls atomic.Int32
	_, err := Fetch(context.Background(), c, key, counter(&calls, "i"))
	require.NoError(t, err)
	c.Invalidate(ResourceIncomes)
	c.Invalidate(ResourceIncomes)

	mu.Lock()
	require.Equal(t, []Event{{Key: key, Kind: EventUpdated}, {Key: key, Kind: EventInvalidated}}, events)
	mu.Unlock()

	unsubscribe()
	c.Invalidate(ResourceIncomes)
	_, err = Fetch(context.Background(), c, key, counter(&calls, "i"))
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, events, 2)
	mu.Unlock()
}

func TestMutation(t *testing.T) {
	t.Parallel()

	t.Run("success invalidates dependents", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Hour)
		var calls atomic.Int32
		for _, r := range []Resource{ResourceExpenses, ResourceIncomes, ResourceSummary, ResourceBudgetItems} {
			_, err := Fetch(context.Background(), c, Key{Resource: r, Token: "a"}, counter(&calls, string(r)))
			require.NoError(t, err)
		}

		create := NewMutation("create_expense", ResourceExpenses, c, func(_ context.Context, amount int) (int, error) {
			return amount, nil
		})
		out, err := create.Run(context.Background(), 15990)
		require.NoError(t, err)
		require.Equal(t, 15990, out)
		require.NoError(t, create.Err())
		require.False(t, create.Pending())

		require.True(t, c.IsStale(Key{Resource: ResourceExpenses, Token: "a"}))
		require.True(t, c.IsStale(Key{Resource: ResourceSummary, Token: "a"}))
		require.True(t, c.IsStale(Key{Resource: ResourceBudgetItems, Token: "a"}))
		require.False(t, c.IsStale(Key{Resource: ResourceIncomes, Token: "a"}))
	})

	t.Run("failure keeps caches and its own error", func(t *testing.T) {
		t.Parallel()

		c := NewCache(time.Hour)
		key := Key{Resource: ResourceExpenses, Token: "a"}
		var calls atomic.Int32
		_, err := Fetch(context.Background(), c, key, counter(&calls, "g"))
		require.NoError(t, err)

		boom := errors.New("El monto debe ser mayor a 0")
		update := NewMutation("update_expense", ResourceExpenses, c, func(context.Context, int) (struct{}, error) {
			return struct{}{}, boom
		})
		remove := NewMutation("delete_expense", ResourceExpenses, c, func(context.Context, int) (struct{}, error) {
			return struct{}{}, nil
		})

		_, err = update.Run(context.Background(), 1)
		require.ErrorIs(t, err, boom)
		require.False(t, c.IsStale(key))

		require.ErrorIs(t, update.Err(), boom)
		require.NoError(t, remove.Err())

		update.Reset()
		require.NoError(t, update.Err())
	})

	t.Run("pending while running", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		m := NewMutation("slow", ResourceIncomes, nil, func(context.Context, struct{}) (struct{}, error) {
			<-release
			return struct{}{}, nil
		})

		done := make(chan struct{})
		go func() {
			_, _ = m.Run(context.Background(), struct{}{})
			close(done)
		}()

		require.Eventually(t, m.Pending, time.Second, time.Millisecond)
		close(release)
		<-done
		require.False(t, m.Pending())
		require.Equal(t, "slow", m.Name())
	})
}

func TestFetchPublic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewCache(time.Second, WithClock(clock.Now), WithResourceStaleTime(ResourceAuthConfig, 5*time.Minute))
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "config", nil
	}

	v, err := FetchPublic(context.Background(), c, ResourceAuthConfig, fetch)
	require.NoError(t, err)
	require.Equal(t, "config", v)

	clock.Advance(time.Minute)
	_, err = FetchPublic(context.Background(), c, ResourceAuthConfig, fetch)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	clock.Advance(5 * time.Minute)
	require.True(t, c.IsStale(Key{Resource: ResourceAuthConfig}))
}
