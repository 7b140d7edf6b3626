// Package otter backs [bastion.LastKnownGood] with an Otter cache.
package otter

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/bastion"
)

// noExpiry stands in for a zero TTL, which Otter's variable-TTL cache does
// not treat as "never expires".
const noExpiry = 365 * 24 * time.Hour

// Cache adapts an otter.CacheWithVariableTTL to [bastion.Cache].
type Cache[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
}

var _ bastion.Cache[string, int] = (*Cache[string, int])(nil)

// New creates an Otter-backed cache holding up to cfg.MaxSize entries, each
// with its own TTL.
func New[K comparable, V any](cfg bastion.CacheConfig) (*Cache[K, V], error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf(
			"%w: cache max size %d is not positive",
			bastion.ErrInvalidConfiguration, cfg.MaxSize,
		)
	}

	cache, err := otter.MustBuilder[K, V](cfg.MaxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, fmt.Errorf("bastion/otter: build cache: %w", err)
	}

	return &Cache[K, V]{cache: cache}, nil
}

// MustNew is like [New] but panics on error.
func MustNew[K comparable, V any](cfg bastion.CacheConfig) *Cache[K, V] {
	c, err := New[K, V](cfg)
	if err != nil {
		panic(err)
	}

	return c
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.cache.Get(key)
}

// Set stores a value with the given TTL; zero keeps it until evicted.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = noExpiry
	}

	c.cache.Set(key, value, ttl)
}

// Delete removes a cached entry by key.
func (c *Cache[K, V]) Delete(key K) {
	c.cache.Delete(key)
}

// Close releases the cache's background resources.
func (c *Cache[K, V]) Close() {
	c.cache.Close()
}
