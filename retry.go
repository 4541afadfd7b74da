package c8r

import (
	"context"
	"fmt"
	"time"
)

// RetryParams configures [DoRetry] and [Retry].
type RetryParams struct {
	// Strategy computes the wait between attempts. Required.
	Strategy BackoffStrategy
	// Clock drives backoff sleeps. Nil means [RealClock].
	Clock Clock
	// Hooks receives retry events. Optional.
	Hooks *Hooks
	// RetryIf, when set, must also accept an error for it to be retried.
	// Errors marked [Permanent] are never retried.
	RetryIf func(error) bool
	// MaxAttempts is the total number of calls, including the first. Must be
	// at least 1.
	MaxAttempts int
	// MaxDelay caps each backoff delay. Zero means no cap.
	MaxDelay time.Duration
	// PerAttemptTimeout bounds each call's context. Zero means none.
	PerAttemptTimeout time.Duration
}

// Validate reports an [ErrInvalidConfiguration] error for out-of-range
// parameters.
func (p *RetryParams) Validate() error {
	if p.MaxAttempts < 1 {
		return invalidf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}

	if p.Strategy == nil {
		return invalidf("retry: nil backoff strategy")
	}

	if err := p.Strategy.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}

	if p.MaxDelay < 0 {
		return invalidf("retry: negative max delay %v", p.MaxDelay)
	}

	if p.PerAttemptTimeout < 0 {
		return invalidf("retry: negative per-attempt timeout %v", p.PerAttemptTimeout)
	}

	return nil
}

// retryable reports whether err may be retried under p.
func (p *RetryParams) retryable(err error) bool {
	if IsPermanent(err) {
		return false
	}

	return p.RetryIf == nil || p.RetryIf(err)
}

// Pattern: Retry with Backoff: masks transient failures with a backoff
// schedule; respects Permanent error classification to stop early.

// Retry validates params once and returns fn wrapped with retry logic.
func Retry[T any](
	fn func(context.Context) (T, error),
	params RetryParams,
) (func(context.Context) (T, error), error) {
	if fn == nil {
		return nil, invalidf("retry: nil function")
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return func(ctx context.Context) (T, error) {
		return doRetry(ctx, fn, &params)
	}, nil
}

// DoRetry executes fn with retry logic. It calls fn up to params.MaxAttempts
// times, sleeping per the backoff strategy between failures. It returns the
// first success, a non-retryable error as-is, or [ErrRetriesExhausted]
// wrapping the last failure.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoRetry[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	params RetryParams,
) (T, error) {
	var zero T

	if fn == nil {
		return zero, invalidf("retry: nil function")
	}

	if err := params.Validate(); err != nil {
		return zero, err
	}

	return doRetry(ctx, fn, &params)
}

func doRetry[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	p *RetryParams,
) (T, error) {
	var (
		zero    T
		lastErr error
	)

	clock := clockOrReal(p.Clock)

	for attempt := range p.MaxAttempts {
		result, err := callAttempt(ctx, fn, p.PerAttemptTimeout)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !p.retryable(err) {
			return zero, err
		}

		// Last attempt: no sleep.
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.Strategy.delay(attempt, p.MaxDelay)

		// 1-indexed attempt number of the failed call.
		p.Hooks.emitRetry(attempt+1, err, delay)

		timer := clock.NewTimer(delay)
		select {
		case <-timer.C():
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}
	}

	p.Hooks.emitRetriesExhausted(p.MaxAttempts, lastErr)

	return zero, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// callAttempt runs fn once, under a per-attempt deadline when d > 0.
func callAttempt[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	d time.Duration,
) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	return fn(attemptCtx)
}
