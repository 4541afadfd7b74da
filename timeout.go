package c8r

import (
	"context"
	"time"
)

// Pattern: Timeout: bounds a call with a context deadline, returning
// ErrTimeout if the operation does not complete in time. Distinguishes
// between timeout-caused cancellation and parent context cancellation.
//
// Go cannot preempt a goroutine. fn's context is cancelled at the deadline;
// if fn ignores it, fn keeps running in the background and its result is
// discarded. The call is abandoned, not cancelled.

// Timeout validates d once and returns fn wrapped with a deadline.
func Timeout[T any](
	fn func(context.Context) (T, error),
	d time.Duration,
	hooks *Hooks,
) (func(context.Context) (T, error), error) {
	if fn == nil {
		return nil, invalidf("timeout: nil function")
	}

	if d <= 0 {
		return nil, invalidf("timeout: duration must be positive, got %v", d)
	}

	return func(ctx context.Context) (T, error) {
		return DoTimeout(ctx, d, fn, hooks)
	}, nil
}

// DoTimeout executes fn with a timeout. If fn does not complete within d,
// the context passed to fn is cancelled and ErrTimeout is returned. A
// non-positive d fails with [ErrInvalidConfiguration] without calling fn.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoTimeout[T any](
	ctx context.Context,
	d time.Duration,
	fn func(context.Context) (T, error),
	hooks *Hooks,
) (T, error) {
	var zero T

	if d <= 0 {
		return zero, invalidf("timeout: duration must be positive, got %v", d)
	}

	if ctx.Err() != nil {
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}

	// Buffered so an abandoned fn can still complete its send and exit.
	ch := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}

		hooks.emitTimeout()

		return zero, ErrTimeout
	}
}
