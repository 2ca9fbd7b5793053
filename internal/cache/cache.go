// Package cache memoizes the results of expensive lookups for a limited time.
//
// Entries are valid while now - writtenAt < ttl. Expired entries are never
// swept; they are replaced by the next lookup for the same key. Concurrent
// lookups for the same missing key share a single producer call.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when Get is called with a non-positive ttl.
const DefaultTTL = time.Hour

// Producer computes the value for a missing or expired key.
type Producer func(ctx context.Context) (any, error)

type entry struct {
	value     any
	writtenAt time.Time
	ttl       time.Duration
}

func (e entry) live(now time.Time) bool {
	return now.Sub(e.writtenAt) < e.ttl
}

// Cache is an in-memory TTL cache. The zero value is not usable; call New.
type Cache struct {
	clock      clockwork.Clock
	defaultTTL time.Duration

	mu         sync.Mutex
	entries    map[string]entry
	generation uint64

	group singleflight.Group
}

// New creates a Cache. A nil clock uses the real clock and a non-positive
// defaultTTL uses DefaultTTL.
func New(clock clockwork.Clock, defaultTTL time.Duration) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		clock:      clock,
		defaultTTL: defaultTTL,
		entries:    make(map[string]entry),
	}
}

// Get returns the live value stored under key, or calls producer and stores
// its result for ttl. Producer errors are returned as-is and nothing is stored.
// A caller whose ctx ends while waiting gets ctx.Err(); the producer keeps
// running for the other callers and its result is still stored.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, producer Producer) (any, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.live(c.clock.Now()) {
		c.mu.Unlock()
		return e.value, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// The generation is part of the flight key so callers arriving after a
	// Clear never join a flight that started before it.
	flightKey := strconv.FormatUint(gen, 10) + "\x00" + key
	// The flight is shared, so it must not inherit the cancellation of
	// whichever caller happened to start it.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		value, err := producer(flightCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = entry{value: value, writtenAt: c.clock.Now(), ttl: ttl}
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Clear removes every entry unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.generation++
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch is a typed wrapper around Cache.Get.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{Key: key, Value: v}
	}
	return typed, nil
}
