// Package otter provides an adapter for the Otter cache library,
// implementing the c8r.Cache interface for use as a bounded c8r.Memo store.
package otter

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/c8r"
)

// noExpiry stands in for "never expires": Otter requires a positive TTL and
// stores expirations in seconds.
const noExpiry = 10 * 365 * 24 * time.Hour

// adapter wraps an otter.CacheWithVariableTTL to implement c8r.Cache.
type adapter[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
	ttl   time.Duration
}

// MustNew creates a c8r.Cache backed by an Otter cache with per-entry TTL
// support. MaxSize from [c8r.CacheConfig] sets the capacity; TTL is used
// when Set is called with a non-positive TTL, falling back to no expiry.
// It panics if the underlying Otter cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K comparable, V any](cfg c8r.CacheConfig) c8r.Cache[K, V] {
	cache, err := otter.MustBuilder[K, V](cfg.MaxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		panic("c8r/otter: failed to build cache: " + err.Error())
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = noExpiry
	}

	return &adapter[K, V]{cache: cache, ttl: ttl}
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = a.ttl
	}

	a.cache.Set(key, value, ttl)
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Delete(key)
}
