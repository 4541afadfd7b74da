// Package ristretto provides an adapter for the Ristretto cache library,
// implementing the c8r.Cache interface for use as a bounded c8r.Memo store.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/c8r"
)

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the c8r.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement c8r.Cache.
	adapter[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
		ttl   time.Duration
	}
)

// MustNew creates a c8r.Cache backed by a Ristretto cache. MaxSize from
// [c8r.CacheConfig] sets the capacity, with one unit of cost per entry; TTL
// is used when Set is called with a non-positive TTL (zero: no expiry).
// Ristretto admits entries probabilistically, so a Set may be dropped under
// contention; a Memo then simply recomputes. It panics if the cache cannot
// be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K Key, V any](cfg c8r.CacheConfig) c8r.Cache[K, V] {
	// nolint:mnd // Ristretto recommends 10x max size for num counters and 64
	// buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * 10,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: 64,
	})
	if err != nil {
		panic("c8r/ristretto: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache, ttl: cfg.TTL}
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL and waits for the write buffer to
// drain, so a following Get observes it when it was admitted.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = a.ttl
	}

	a.cache.SetWithTTL(key, value, 1, ttl)
	a.cache.Wait()
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Del(key)
	a.cache.Wait()
}
