// Package ristretto backs [bastion.LastKnownGood] with a Ristretto cache.
package ristretto

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/bastion"
)

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the bastion.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// Cache adapts a ristretto.Cache to [bastion.Cache].
	//
	// Ristretto buffers writes; Set waits for the buffer to drain so that a
	// recorded value is visible to the very next fallback.
	Cache[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
	}
)

var _ bastion.Cache[string, int] = (*Cache[string, int])(nil)

// New creates a Ristretto-backed cache holding up to cfg.MaxSize entries.
func New[K Key, V any](cfg bastion.CacheConfig) (*Cache[K, V], error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf(
			"%w: cache max size %d is not positive",
			bastion.ErrInvalidConfiguration, cfg.MaxSize,
		)
	}

	// nolint:mnd // Ristretto recommends 10x max size for num counters and 64
	// buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * 10,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("bastion/ristretto: build cache: %w", err)
	}

	return &Cache[K, V]{cache: cache}, nil
}

// MustNew is like [New] but panics on error.
func MustNew[K Key, V any](cfg bastion.CacheConfig) *Cache[K, V] {
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
	c.cache.SetWithTTL(key, value, 1, max(ttl, 0))
	c.cache.Wait()
}

// Delete removes a cached entry by key.
func (c *Cache[K, V]) Delete(key K) {
	c.cache.Del(key)
}

// Close stops the cache's background goroutines.
func (c *Cache[K, V]) Close() {
	c.cache.Close()
}
