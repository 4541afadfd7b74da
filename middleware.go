package c8r

import (
	"context"
	"time"
)

// Pattern: Decorator: each combinator wraps the next, forming a chain where
// order determines execution semantics.

// Middleware wraps a function call with additional behavior.
// Each middleware receives the next function in the chain and returns a
// wrapped version.
type Middleware[T any] func(next func(context.Context) (T, error)) func(context.Context) (T, error)

// Chain composes multiple middlewares into a single middleware.
//
// Chain(a, b, c) produces a(b(c(next))): a is outermost, c is innermost.
// Chain() with zero middlewares returns an identity middleware.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

// TimeoutMiddleware bounds each call by d. See [DoTimeout].
func TimeoutMiddleware[T any](d time.Duration, hooks *Hooks) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			return DoTimeout(ctx, d, next, hooks)
		}
	}
}

// RetryMiddleware retries each call per params. params must be valid; see
// [RetryParams.Validate].
func RetryMiddleware[T any](params RetryParams) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			return doRetry(ctx, next, &params)
		}
	}
}

// RateLimitMiddleware admits each call through rl before running it.
func RateLimitMiddleware[T any](rl *RateLimiter) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			if err := rl.Allow(ctx); err != nil {
				var zero T
				return zero, err
			}

			return next(ctx)
		}
	}
}

// CircuitBreakerMiddleware fails fast while cb is open and records the
// outcome of every admitted call.
func CircuitBreakerMiddleware[T any](cb *CircuitBreaker) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			permit, err := cb.Acquire()
			if err != nil {
				var zero T
				return zero, err
			}

			val, err := next(ctx)
			if err != nil {
				permit.Failure()
			} else {
				permit.Success()
			}

			return val, err
		}
	}
}
