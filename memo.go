package c8r

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type (
	memoConfig[K comparable, V any] struct {
		cache Cache[K, V]
		clock Clock
		hooks *Hooks
		ttl   time.Duration
	}

	// MemoOption configures a [Memo].
	MemoOption[K comparable, V any] func(*memoConfig[K, V])

	// Memo caches the results of a function per key.
	//
	// Pattern: Memoization with single-flight: a hit returns the stored
	// value without calling fn; concurrent misses for one key share a single
	// in-flight call. Errors are returned to every waiter and never cached.
	Memo[K comparable, V any] struct {
		fn    func(context.Context, K) (V, error)
		cache Cache[K, V]
		hooks *Hooks
		group singleflight.Group
		ttl   time.Duration

		mu      sync.Mutex
		flights map[K]*flight
		nextID  uint64
	}

	// flight names the single-flight group entry shared by every caller
	// currently inside [Memo.Do] for one key. A retired flight was
	// overtaken by [Memo.Forget]: it still answers its callers but must not
	// store its result.
	flight struct {
		id      string
		refs    int
		retired bool
	}
)

// MemoCache sets the backing store. Defaults to a [MapCache].
func MemoCache[K comparable, V any](c Cache[K, V]) MemoOption[K, V] {
	return func(cfg *memoConfig[K, V]) {
		cfg.cache = c
	}
}

// MemoTTL expires entries d after they are stored. Defaults to 0: entries
// persist for the lifetime of the Memo unless [Memo.Forget] is called.
func MemoTTL[K comparable, V any](d time.Duration) MemoOption[K, V] {
	return func(cfg *memoConfig[K, V]) {
		cfg.ttl = d
	}
}

// MemoClock sets the clock of the default store, used for TTL expiry.
func MemoClock[K comparable, V any](c Clock) MemoOption[K, V] {
	return func(cfg *memoConfig[K, V]) {
		cfg.clock = c
	}
}

// MemoHooks sets the hooks receiving hit and miss events.
func MemoHooks[K comparable, V any](h *Hooks) MemoOption[K, V] {
	return func(cfg *memoConfig[K, V]) {
		cfg.hooks = h
	}
}

// NewMemo wraps fn with a per-key result cache. It fails with
// [ErrInvalidConfiguration] when fn is nil or the TTL is negative.
func NewMemo[K comparable, V any](
	fn func(context.Context, K) (V, error),
	opts ...MemoOption[K, V],
) (*Memo[K, V], error) {
	var cfg memoConfig[K, V]
	for _, o := range opts {
		o(&cfg)
	}

	if fn == nil {
		return nil, invalidf("memo: nil function")
	}

	if cfg.ttl < 0 {
		return nil, invalidf("memo: negative ttl %v", cfg.ttl)
	}

	if cfg.cache == nil {
		cfg.cache = NewMapCache[K, V](cfg.clock)
	}

	return &Memo[K, V]{
		fn:      fn,
		cache:   cfg.cache,
		hooks:   cfg.hooks,
		ttl:     cfg.ttl,
		flights: make(map[K]*flight),
	}, nil
}

// Memoize returns fn wrapped with an unbounded, non-expiring [Memo].
func Memoize[K comparable, V any](
	fn func(context.Context, K) (V, error),
) func(context.Context, K) (V, error) {
	m, err := NewMemo(fn)
	if err != nil {
		// Only a nil fn fails; surface it on every call.
		return func(context.Context, K) (V, error) {
			var zero V
			return zero, err
		}
	}

	return m.Do
}

// Do returns the cached value for key, or calls fn, caches a successful
// result and returns it. The context of the call that starts the shared
// in-flight request is the one passed to fn.
//
//nolint:ireturn // generic type parameter V, not an interface
func (m *Memo[K, V]) Do(ctx context.Context, key K) (V, error) {
	if v, ok := m.cache.Get(key); ok {
		m.hooks.emitMemoHit()
		return v, nil
	}

	f := m.joinFlight(key)
	defer m.leaveFlight(key, f)

	res, err, _ := m.group.Do(f.id, func() (any, error) {
		// A flight that finished between our Get and Do already stored it.
		if v, ok := m.cache.Get(key); ok {
			m.hooks.emitMemoHit()
			return v, nil
		}

		m.hooks.emitMemoMiss()

		v, callErr := m.fn(ctx, key)
		if callErr != nil {
			return nil, callErr
		}

		m.store(key, f, v)

		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err //nolint:wrapcheck // caller's error returned as-is
	}

	v, _ := res.(V)

	return v, nil
}

// Forget removes key from the cache so the next [Memo.Do] calls fn again.
// An in-flight call for key is not interrupted and still answers the callers
// that joined it, but its result is not stored and later callers start a new
// call.
func (m *Memo[K, V]) Forget(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.flights[key]; ok {
		f.retired = true
		m.group.Forget(f.id)
		delete(m.flights, key)
	}

	m.cache.Delete(key)
}

// store caches v unless f was retired by Forget while fn ran.
func (m *Memo[K, V]) store(key K, f *flight, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !f.retired {
		m.cache.Set(key, v, m.ttl)
	}
}

// joinFlight returns the current flight for key, starting one if needed.
// Keys compare with ==, so two distinct keys never share a flight however
// they print.
func (m *Memo[K, V]) joinFlight(key K) *flight {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.flights[key]
	if !ok {
		m.nextID++
		f = &flight{id: strconv.FormatUint(m.nextID, 36)}
		m.flights[key] = f
	}

	f.refs++

	return f
}

func (m *Memo[K, V]) leaveFlight(key K, f *flight) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.refs--; f.refs == 0 && m.flights[key] == f {
		delete(m.flights, key)
	}
}
