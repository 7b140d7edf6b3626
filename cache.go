package bastion

import (
	"sync"
	"time"
)

// Cache is the interface that cache adapters must implement. TTL is passed
// per Set call; the underlying cache library handles expiration.
type Cache[K comparable, V any] interface {
	// Get retrieves a cached value by key. Returns the value and true if
	// found.
	Get(key K) (V, bool)
	// Set stores a value with the given TTL.
	Set(key K, value V, ttl time.Duration)
	// Delete removes a cached entry by key.
	Delete(key K)
}

// CacheConfig sizes a cache adapter.
type CacheConfig struct {
	// MaxSize is the maximum number of entries the cache can hold.
	MaxSize int
}

type mapEntry[V any] struct {
	expires time.Time
	value   V
}

// mapCache is a mutex-guarded map honouring TTLs lazily on read.
type mapCache[K comparable, V any] struct {
	clock   Clock
	entries map[K]mapEntry[V]
	mu      sync.Mutex
}

// NewMapCache returns an unbounded in-memory [Cache]. A nil clock selects
// [RealClock]. Prefer the otter or ristretto adapters when the key space is
// large.
//
//nolint:ireturn // returns the Cache interface by design
func NewMapCache[K comparable, V any](clock Clock) Cache[K, V] {
	if clock == nil {
		clock = RealClock{}
	}

	return &mapCache[K, V]{clock: clock, entries: make(map[K]mapEntry[V])}
}

//nolint:ireturn // generic type parameter V, not an interface
func (c *mapCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if !e.expires.IsZero() && !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)

		var zero V

		return zero, false
	}

	return e.value, true
}

func (c *mapCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := mapEntry[V]{value: value}
	if ttl > 0 {
		e.expires = c.clock.Now().Add(ttl)
	}

	c.entries[key] = e
}

func (c *mapCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}
