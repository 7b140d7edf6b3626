package bastion

import (
	"context"
	"time"
)

type (
	// LastKnownGood remembers the latest successful value per key and serves
	// it as a fallback when a later execution for that key faults.
	//
	// Wrap the operation with [LastKnownGood.Record] so successes are stored,
	// and build the fallback with [LastKnownGood.Producer] for the same key.
	LastKnownGood[K comparable, V any] struct {
		cache         Cache[K, V]
		onStaleServed func(K)
		ttl           time.Duration
	}

	// LastKnownGoodOption configures a [LastKnownGood].
	LastKnownGoodOption[K comparable, V any] func(*LastKnownGood[K, V])
)

// OnStaleServed sets a callback invoked when a cached value replaces a fault.
func OnStaleServed[K comparable, V any](fn func(K)) LastKnownGoodOption[K, V] {
	return func(l *LastKnownGood[K, V]) {
		l.onStaleServed = fn
	}
}

// NewLastKnownGood creates a last-known-good store backed by cache. Entries
// expire after ttl; zero keeps them until evicted.
func NewLastKnownGood[K comparable, V any](
	cache Cache[K, V],
	ttl time.Duration,
	opts ...LastKnownGoodOption[K, V],
) *LastKnownGood[K, V] {
	l := &LastKnownGood[K, V]{cache: cache, ttl: ttl}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Record wraps op so that its successful values are stored under key.
func (l *LastKnownGood[K, V]) Record(key K, op Operation[V]) Operation[V] {
	return func(ctx context.Context) (V, error) {
		v, err := op(ctx)
		if err == nil {
			l.cache.Set(key, v, l.ttl)
		}

		return v, err
	}
}

// Producer returns a [FallbackProducer] serving the value stored under key.
// Without a stored value the handled outcome passes through unchanged.
func (l *LastKnownGood[K, V]) Producer(key K) FallbackProducer[V] {
	return func(_ context.Context, handled Outcome[V]) Outcome[V] {
		cached, ok := l.cache.Get(key)
		if !ok {
			return handled
		}

		if l.onStaleServed != nil {
			l.onStaleServed(key)
		}

		return Success(cached)
	}
}

// Forget drops the value stored under key.
func (l *LastKnownGood[K, V]) Forget(key K) { l.cache.Delete(key) }
