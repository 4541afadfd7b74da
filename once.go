package c8r

import "sync"

// Once returns a function that calls fn on its first invocation only. Every
// invocation, concurrent ones included, returns the result and error of that
// single call. A panic in fn is re-raised on every invocation.
func Once[T any](fn func() (T, error)) func() (T, error) {
	return sync.OnceValues(fn)
}
