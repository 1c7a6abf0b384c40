// Package cache memoizes function results for a fixed time window.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"tokenomics-api/internal/observability"
)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = 10 * time.Minute

// TTL stores values of type T under string keys, each valid for the TTL given when it was computed.
// Concurrent misses on the same key share one computation.
type TTL[T any] struct {
	store *gocache.Cache
	group singleflight.Group
}

// New creates an empty cache.
func New[T any](cleanupInterval time.Duration) *TTL[T] {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &TTL[T]{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get returns the live value for key.
func (c *TTL[T]) Get(key string) (T, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// GetOrCompute returns the live value for key, or runs compute and stores its
// result for ttl. Errors are returned to every waiting caller and are not cached.
// compute runs detached from ctx cancellation so one departing caller does not
// abort work shared with others.
func (c *TTL[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		observability.RecordCacheLookup(key, true)
		return v, nil
	}
	observability.RecordCacheLookup(key, false)

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited on the group.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		val, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, val, ttl)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Clear drops key. Intended for tests and debugging.
func (c *TTL[T]) Clear(key string) {
	c.store.Delete(key)
}
