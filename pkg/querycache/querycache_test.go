package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesValue(t *testing.T) {
	c := New(nil)

	calls := 0
	fn := func(_ context.Context) (interface{}, error) {
		calls++
		return "fresh", nil
	}

	v, err := c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	v, err = c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	assert.Equal(t, 1, calls)
}

func TestGetOrComputeSharesInFlightCompute(t *testing.T) {
	c := New(nil)

	var calls atomic.Int64

	release := make(chan struct{})
	fn := func(_ context.Context) (interface{}, error) {
		calls.Add(1)
		<-release

		return "shared", nil
	}

	const workers = 10

	var wg sync.WaitGroup

	results := make([]interface{}, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
		}(i)
	}

	// Give the goroutines time to pile onto the same flight, then let the
	// single compute finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
}

func TestExpiredEntryRecomputed(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := New(func() time.Time { return now })

	calls := 0
	fn := func(_ context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrCompute(context.Background(), "weather", 30*time.Second, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(29 * time.Second)

	v, err = c.GetOrCompute(context.Background(), "weather", 30*time.Second, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Second)

	v, err = c.GetOrCompute(context.Background(), "weather", 30*time.Second, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestExpiredEntryEvictedOnGet(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := New(func() time.Time { return now })

	_, err := c.GetOrCompute(context.Background(), "weather", time.Second, func(_ context.Context) (interface{}, error) {
		return "v", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	now = now.Add(2 * time.Second)

	_, ok := c.Get("weather")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestComputeErrorNotCached(t *testing.T) {
	c := New(nil)

	errBoom := errors.New("upstream down")
	calls := 0

	fn := func(_ context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errBoom
		}

		return "recovered", nil
	}

	_, err := c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.ErrorIs(t, err, errBoom)

	v, err := c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestInvalidate(t *testing.T) {
	c := New(nil)

	calls := 0
	fn := func(_ context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	_, err := c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.NoError(t, err)

	c.Invalidate("weather")

	v, err := c.GetOrCompute(context.Background(), "weather", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
