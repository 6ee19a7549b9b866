package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Clock abstracts time so expiry can be driven by tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FakeClock is a manually advanced Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a size-bounded key/value cache whose entries expire a fixed
// duration after they were stored. Concurrent misses for the same key share
// one fetch. Writes are last-write-wins, and a Set or Invalidate issued while
// a fetch is in flight wins over that fetch's result.
type TTLCache[V any] struct {
	ttl     time.Duration
	clock   Clock
	entries *lru.Cache[string, entry[V]]
	group   singleflight.Group

	// gen is bumped by Set and Invalidate; a fetch only stores its result
	// when gen is unchanged since the fetch started.
	mu  sync.Mutex
	gen uint64
}

// NewTTL creates a cache holding at most size entries. A nil clock uses the wall clock.
func NewTTL[V any](ttl time.Duration, size int, clock Clock) (*TTLCache[V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	entries, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	return &TTLCache[V]{ttl: ttl, clock: clock, entries: entries}, nil
}

// Get returns the cached value when it is younger than the TTL.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	e, ok := c.entries.Get(key)
	if !ok || c.clock.Now().Sub(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Add(key, entry[V]{value: value, storedAt: c.clock.Now()})
}

func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Remove(key)
	c.group.Forget(key)
}

func (c *TTLCache[V]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *TTLCache[V]) storeIfCurrent(key string, value V, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries.Add(key, entry[V]{value: value, storedAt: c.clock.Now()})
}

func (c *TTLCache[V]) Len() int {
	return c.entries.Len()
}

// GetOrFetch returns the fresh cached value for key, or calls fetch and caches
// its result. Concurrent callers missing the same key wait for a single fetch.
// Fetch errors are returned to every waiter and nothing is cached.
//
// The shared fetch does not inherit the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (c *TTLCache[V]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// a concurrent flight may have filled the entry while we waited to enter
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		gen := c.generation()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}
