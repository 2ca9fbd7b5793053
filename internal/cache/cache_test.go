package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProducer returns the sequence of values in order and records how often it was called.
func countingProducer(values ...string) (Producer, *int32) {
	var calls int32
	return func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return values[int(n-1)%len(values)], nil
	}, &calls
}

func TestCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns cached value within ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := New(clock, 0)
		producer, calls := countingProducer("test-data")

		v1, err := c.Get(ctx, "test-key", 0, producer)
		require.NoError(t, err)
		clock.Advance(59 * time.Minute)
		v2, err := c.Get(ctx, "test-key", 0, producer)
		require.NoError(t, err)

		assert.Equal(t, "test-data", v1)
		assert.Equal(t, "test-data", v2)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	})

	t.Run("refetches after ttl expires", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := New(clock, time.Hour)
		producer, calls := countingProducer("first-data", "second-data")

		v1, err := c.Get(ctx, "test-key", 100*time.Millisecond, producer)
		require.NoError(t, err)
		clock.Advance(150 * time.Millisecond)
		v2, err := c.Get(ctx, "test-key", 100*time.Millisecond, producer)
		require.NoError(t, err)

		assert.Equal(t, "first-data", v1)
		assert.Equal(t, "second-data", v2)
		assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	})

	t.Run("entry expires exactly at ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := New(clock, 0)
		producer, calls := countingProducer("v")

		_, _ = c.Get(ctx, "k", time.Second, producer)
		clock.Advance(time.Second)
		_, _ = c.Get(ctx, "k", time.Second, producer)

		assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	})

	t.Run("does not cache producer errors", func(t *testing.T) {
		c := New(clockwork.NewFakeClock(), 0)
		boom := errors.New("boom")
		var calls int32
		failing := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, boom
		}

		_, err := c.Get(ctx, "k", 0, failing)
		require.ErrorIs(t, err, boom)
		_, err = c.Get(ctx, "k", 0, failing)
		require.ErrorIs(t, err, boom)

		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("keys are independent", func(t *testing.T) {
		c := New(clockwork.NewFakeClock(), 0)
		producer, calls := countingProducer("a", "b")

		va, _ := c.Get(ctx, "a", 0, producer)
		vb, _ := c.Get(ctx, "b", 0, producer)

		assert.Equal(t, "a", va)
		assert.Equal(t, "b", vb)
		assert.Equal(t, int32(2), atomic.LoadInt32(calls))
		assert.Equal(t, 2, c.Len())
	})
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := New(clockwork.NewFakeClock(), 0)
	producer, calls := countingProducer("test-data")

	_, err := c.Get(ctx, "test-key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, err = c.Get(ctx, "test-key", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCache_SingleFlight(t *testing.T) {
	ctx := context.Background()
	c := New(clockwork.NewFakeClock(), 0)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	producer := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Get(ctx, "k", 0, producer)
	}()
	<-started
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(ctx, "k", 0, producer)
		}(i)
	}
	// Give the followers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestCache_ClearDuringFlight(t *testing.T) {
	ctx := context.Background()
	c := New(clockwork.NewFakeClock(), 0)

	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "stale", nil
	}

	done := make(chan any)
	go func() {
		v, _ := c.Get(ctx, "k", 0, slow)
		done <- v
	}()
	<-started
	c.Clear()

	fresh, err := c.Get(ctx, "k", 0, func(ctx context.Context) (any, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", fresh)

	close(release)
	assert.Equal(t, "stale", <-done)

	// The flight that started before Clear must not overwrite the fresh entry.
	v, err := c.Get(ctx, "k", 0, func(ctx context.Context) (any, error) { return "unused", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestCache_CancelledCaller(t *testing.T) {
	t.Run("other callers of the same flight still get the value", func(t *testing.T) {
		c := New(clockwork.NewFakeClock(), 0)

		var calls int32
		started := make(chan struct{})
		release := make(chan struct{})
		producer := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return "shared", nil
		}

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.Get(firstCtx, "k", 0, producer)
			firstErr <- err
		}()
		<-started

		secondVal := make(chan any, 1)
		go func() {
			v, err := c.Get(context.Background(), "k", 0, producer)
			assert.NoError(t, err)
			secondVal <- v
		}()
		// Give the second caller time to join the in-flight call.
		time.Sleep(50 * time.Millisecond)

		cancelFirst()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		assert.Equal(t, "shared", <-secondVal)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Equal(t, 1, c.Len(), "the shared result is stored")
	})

	t.Run("already cancelled caller does not start a flight", func(t *testing.T) {
		c := New(clockwork.NewFakeClock(), 0)
		producer, calls := countingProducer("v")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Get(ctx, "k", 0, producer)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	c := New(clockwork.NewFakeClock(), 0)

	got, err := Fetch(ctx, c, "nums", 0, func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	_, err = Fetch(ctx, c, "nums", 0, func(ctx context.Context) (string, error) {
		return "never called", nil
	})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "nums", mismatch.Key)
}
