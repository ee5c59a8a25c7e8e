// Package cache provides a generic loader cache: bounded LRU storage in front of a load
// callback, with concurrent misses for the same key coalesced into a single load.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a single load when no WithLoadTimeout option is given.
const DefaultLoadTimeout = 30 * time.Second

// LoaderCache caches values produced by a load callback.
// Keys are converted to strings via keyToString for the LRU and singleflight group.
// It is safe for concurrent use.
type LoaderCache[K comparable, V any] struct {
	lru         *lru.Cache[string, V]
	group       singleflight.Group
	keyToString func(K) string
	loadTimeout time.Duration
}

// Option configures a LoaderCache.
type Option func(*options)

type options struct {
	loadTimeout time.Duration
}

// WithLoadTimeout sets the deadline of each load. Non-positive values keep the default.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// NewLoaderCache creates a loader cache holding at most maxEntries values.
func NewLoaderCache[K comparable, V any](maxEntries int, keyToString func(K) string, opts ...Option) (*LoaderCache[K, V], error) {
	lruCache, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	o := options{loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &LoaderCache[K, V]{
		lru:         lruCache,
		keyToString: keyToString,
		loadTimeout: o.loadTimeout,
	}, nil
}

// Get returns the cached value for key, or loads it on a miss. The boolean reports a cache hit.
// The shared load keeps the first caller's context values but not its cancellation, and is
// bounded by the load timeout. A caller whose ctx ends first returns ctx.Err() while the load
// continues for the others. Failed loads are not cached.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, bool, error) {
	var zero V

	keyStr := c.keyToString(key)
	if v, ok := c.lru.Get(keyStr); ok {
		return v, true, nil
	}

	ch := c.group.DoChan(keyStr, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		loaded, loadErr := load(loadCtx, key)
		if loadErr != nil {
			return nil, loadErr
		}

		c.lru.Add(keyStr, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}

		return res.Val.(V), false, nil
	}
}

// Len returns the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
