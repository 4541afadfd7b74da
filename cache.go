package c8r

import (
	"fmt"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xhit/go-str2duration/v2"
)

type (
	// Cache is the interface that memo stores must implement. TTL is passed
	// per Set call; a non-positive TTL means the entry never expires. The
	// otter and ristretto sub-packages provide bounded adapters.
	Cache[K comparable, V any] interface {
		// Get retrieves a cached value by key. Returns the value and true if
		// found.
		Get(key K) (V, bool)
		// Set stores a value with the given TTL.
		Set(key K, value V, ttl time.Duration)
		// Delete removes a cached entry by key.
		Delete(key K)
	}

	// CacheConfig holds configuration for a cache adapter instance.
	CacheConfig struct {
		// Options holds adapter-specific settings.
		Options map[string]any
		// TTL is the time-to-live for cached entries.
		TTL time.Duration
		// MaxSize is the maximum number of entries the cache can hold.
		MaxSize int
	}

	cacheConfigFile struct {
		Caches map[string]cacheConfigJSON `json:"caches"`
	}

	cacheConfigJSON struct {
		Options map[string]any `json:"options,omitempty"`
		TTL     string         `json:"ttl"`
		MaxSize int            `json:"max_size"`
	}
)

// LoadCacheConfig reads a JSON configuration file and returns the CacheConfig
// for the named cache entry. TTLs accept [time.ParseDuration] syntax plus
// "d" and "w" units.
func LoadCacheConfig(path, name string) (CacheConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("c8r: read cache config: %w", err)
	}

	var cfg cacheConfigFile

	if err = json.Unmarshal(data, &cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("c8r: parse cache config: %w", err)
	}

	raw, ok := cfg.Caches[name]
	if !ok {
		return CacheConfig{}, fmt.Errorf("c8r: cache %q not found in config", name)
	}

	if raw.MaxSize < 0 {
		return CacheConfig{}, fmt.Errorf("c8r: cache %q: %w", name,
			invalidf("negative max_size %d", raw.MaxSize))
	}

	cc := CacheConfig{
		Options: raw.Options,
		MaxSize: raw.MaxSize,
	}

	if raw.TTL != "" {
		ttl, ttlErr := str2duration.ParseDuration(raw.TTL)
		if ttlErr != nil {
			return CacheConfig{}, fmt.Errorf("c8r: cache %q: ttl: %w", name, ttlErr)
		}

		cc.TTL = ttl
	}

	return cc, nil
}

// ---------------------------------------------------------------------------
// MapCache: default unbounded store
// ---------------------------------------------------------------------------

type mapEntry[V any] struct {
	value   V
	expires time.Time // zero means never
}

// MapCache is an unbounded, mutex-guarded [Cache]. Expired entries are
// dropped lazily on Get.
type MapCache[K comparable, V any] struct {
	clock   Clock
	entries map[K]mapEntry[V]
	mu      sync.Mutex
}

// NewMapCache creates an empty [MapCache]. A nil clock means [RealClock].
func NewMapCache[K comparable, V any](clock Clock) *MapCache[K, V] {
	return &MapCache[K, V]{
		clock:   clockOrReal(clock),
		entries: make(map[K]mapEntry[V]),
	}
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (c *MapCache[K, V]) Get(key K) (V, bool) {
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

// Set stores a value. A non-positive ttl never expires.
func (c *MapCache[K, V]) Set(key K, value V, ttl time.Duration) {
	e := mapEntry[V]{value: value}
	if ttl > 0 {
		e.expires = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes a cached entry by key.
func (c *MapCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *MapCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
