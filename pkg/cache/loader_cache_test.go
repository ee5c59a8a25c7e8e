package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingCache(t *testing.T, size int) *LoaderCache[string, []float32] {
	t.Helper()

	c, err := NewLoaderCache[string, []float32](size, strings.ToLower)
	require.NoError(t, err)

	return c
}

func TestLoaderCache_Get_miss_then_hit(t *testing.T) {
	var loads atomic.Int32

	c := newEmbeddingCache(t, 10)
	ctx := context.Background()
	load := func(_ context.Context, key string) ([]float32, error) {
		loads.Add(1)

		return []float32{float32(len(key))}, nil
	}

	v, hit, err := c.Get(ctx, "What is a tort?", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []float32{15}, v)

	v, hit, err = c.Get(ctx, "what is a tort?", load)
	require.NoError(t, err)
	assert.True(t, hit, "keys are normalized by keyToString")
	assert.Equal(t, []float32{15}, v)
	assert.Equal(t, int32(1), loads.Load())
}

func TestLoaderCache_Get_coalesces_concurrent_misses(t *testing.T) {
	var loads atomic.Int32

	c := newEmbeddingCache(t, 10)
	ctx := context.Background()

	release := make(chan struct{})
	load := func(_ context.Context, _ string) ([]float32, error) {
		loads.Add(1)
		<-release

		return []float32{0.5}, nil
	}

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, _, err := c.Get(ctx, "q", load)
			assert.NoError(t, err)
			assert.Equal(t, []float32{0.5}, v)
		}()
	}

	close(release)
	wg.Wait()

	// Goroutines that arrive after the first load finished hit the cache; none load twice.
	n := loads.Load()
	assert.GreaterOrEqual(t, n, int32(1))
	assert.LessOrEqual(t, n, int32(8))
	assert.Equal(t, 1, c.Len())
}

func TestLoaderCache_Get_load_error_not_cached(t *testing.T) {
	c := newEmbeddingCache(t, 10)
	ctx := context.Background()
	loadErr := errors.New("embedding provider unavailable")

	_, hit, err := c.Get(ctx, "a", func(context.Context, string) ([]float32, error) {
		return nil, loadErr
	})
	require.ErrorIs(t, err, loadErr)
	assert.False(t, hit)
	assert.Zero(t, c.Len())
}

func TestLoaderCache_Get_cancelled_caller_does_not_cancel_load(t *testing.T) {
	c := newEmbeddingCache(t, 10)

	started := make(chan struct{})
	release := make(chan struct{})
	loadErrs := make(chan error, 1)

	load := func(ctx context.Context, _ string) ([]float32, error) {
		close(started)
		<-release
		loadErrs <- ctx.Err()

		return []float32{0.25}, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() {
		_, _, err := c.Get(firstCtx, "q", load)
		firstErr <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-loadErrs)

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	v, hit, err := c.Get(context.Background(), "q", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []float32{0.25}, v)
}

func TestLoaderCache_Get_load_timeout(t *testing.T) {
	c, err := NewLoaderCache[string, []float32](10, strings.ToLower, WithLoadTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, _, err = c.Get(context.Background(), "q", func(ctx context.Context, _ string) ([]float32, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Len())
}

func TestLoaderCache_evicts_least_recently_used(t *testing.T) {
	c := newEmbeddingCache(t, 2)
	ctx := context.Background()
	load := func(_ context.Context, key string) ([]float32, error) { return []float32{1}, nil }

	_, _, _ = c.Get(ctx, "a", load)
	_, _, _ = c.Get(ctx, "b", load)
	_, _, _ = c.Get(ctx, "a", load)
	_, _, _ = c.Get(ctx, "c", load)

	_, hit, _ := c.Get(ctx, "a", load)
	assert.True(t, hit)

	_, hit, _ = c.Get(ctx, "b", load)
	assert.False(t, hit, "b was least recently used and should be evicted")
}

func TestNewLoaderCache_rejects_non_positive_size(t *testing.T) {
	_, err := NewLoaderCache[string, int](0, func(s string) string { return s })
	assert.Error(t, err)
}
