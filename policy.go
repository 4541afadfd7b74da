package c8r

import (
	"context"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Policy[T]: stacking call-shaped combinators
// ---------------------------------------------------------------------------

// Policy stacks timeout, circuit breaker, rate limiter and retry around a
// function behind a single [Policy.Do] method. Patterns are ordered by
// priority regardless of option order: the timeout bounds the whole call,
// the breaker and limiter admit it once, and retries run innermost.
//
// Pattern: Functional Options: configures Policy[T] via composable option
// values; options are typed any to work around Go's generic constraint on
// function signatures.
type Policy[T any] struct {
	name  string
	chain Middleware[T]

	entries []PatternEntry[T]
	cb      *CircuitBreaker
	rl      *RateLimiter
}

// Name returns the policy's name.
func (p *Policy[T]) Name() string { return p.name }

// Patterns returns the names of the configured patterns, outermost first.
func (p *Policy[T]) Patterns() []string {
	names := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		names = append(names, e.Name)
	}

	return names
}

// CircuitBreaker returns the policy's breaker, or nil if none is configured.
func (p *Policy[T]) CircuitBreaker() *CircuitBreaker { return p.cb }

// RateLimiter returns the policy's limiter, or nil if none is configured.
func (p *Policy[T]) RateLimiter() *RateLimiter { return p.rl }

// Do executes fn through the composed middleware chain.
func (p *Policy[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return p.chain(fn)(ctx)
}

// ---------------------------------------------------------------------------
// Option descriptors: stored as any, interpreted by NewPolicy[T]
// ---------------------------------------------------------------------------

type (
	// policyOptionFunc is a non-generic option that modifies policySetup.
	policyOptionFunc func(*policySetup)

	// policySetup holds non-generic configuration collected during NewPolicy.
	policySetup struct {
		clock Clock
		hooks *Hooks
	}

	timeoutDesc struct {
		d time.Duration
	}

	retryDesc struct {
		params RetryParams
	}

	circuitBreakerDesc struct {
		threshold int
		cooldown  time.Duration
	}

	rateLimitDesc struct {
		opts     []RateLimitOption
		capacity int
		rate     float64
	}
)

// WithClock sets the clock used by all patterns within the policy.
func WithClock(c Clock) any {
	return policyOptionFunc(func(s *policySetup) {
		s.clock = c
	})
}

// WithHooks sets the hooks used by all patterns within the policy.
func WithHooks(h *Hooks) any {
	return policyOptionFunc(func(s *policySetup) {
		s.hooks = h
	})
}

// WithTimeout bounds every call by d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRetry retries failed calls per params. A nil Clock or Hooks in params
// inherits the policy's.
func WithRetry(params RetryParams) any {
	return retryDesc{params: params}
}

// WithCircuitBreaker fails fast after threshold consecutive failures until
// cooldown elapses.
func WithCircuitBreaker(threshold int, cooldown time.Duration) any {
	return circuitBreakerDesc{threshold: threshold, cooldown: cooldown}
}

// WithRateLimit admits calls from a token bucket of the given capacity,
// refilled at rate tokens per second.
func WithRateLimit(capacity int, rate float64, opts ...RateLimitOption) any {
	return rateLimitDesc{capacity: capacity, rate: rate, opts: opts}
}

// ---------------------------------------------------------------------------
// NewPolicy[T]: construct and wire up the policy
// ---------------------------------------------------------------------------

// NewPolicy creates a [Policy] with the given name and options. Options are
// processed in two phases: clock and hooks first, then pattern descriptors,
// which build their middleware with the resolved clock and hooks. Invalid
// parameters and unknown option values fail with [ErrInvalidConfiguration].
func NewPolicy[T any](name string, opts ...any) (*Policy[T], error) {
	var setup policySetup

	for _, opt := range opts {
		if pof, ok := opt.(policyOptionFunc); ok {
			pof(&setup)
		}
	}

	clock := clockOrReal(setup.clock)
	hooks := setup.hooks

	var (
		entries []PatternEntry[T]
		cb      *CircuitBreaker
		rl      *RateLimiter
	)

	for i, opt := range opts {
		switch desc := opt.(type) {
		case policyOptionFunc:
			// Already processed in phase 1.

		case timeoutDesc:
			if desc.d <= 0 {
				return nil, invalidf("policy %q: timeout must be positive, got %v", name, desc.d)
			}

			entries = append(entries, PatternEntry[T]{
				Priority: priorityTimeout,
				Name:     "timeout",
				MW:       TimeoutMiddleware[T](desc.d, hooks),
			})

		case retryDesc:
			params := desc.params
			if params.Clock == nil {
				params.Clock = clock
			}

			if params.Hooks == nil {
				params.Hooks = hooks
			}

			if err := params.Validate(); err != nil {
				return nil, fmt.Errorf("policy %q: %w", name, err)
			}

			entries = append(entries, PatternEntry[T]{
				Priority: priorityRetry,
				Name:     "retry",
				MW:       RetryMiddleware[T](params),
			})

		case circuitBreakerDesc:
			var err error

			cb, err = NewCircuitBreaker(desc.threshold, desc.cooldown, clock, hooks)
			if err != nil {
				return nil, fmt.Errorf("policy %q: %w", name, err)
			}

			entries = append(entries, PatternEntry[T]{
				Priority: priorityCircuitBreaker,
				Name:     "circuit_breaker",
				MW:       CircuitBreakerMiddleware[T](cb),
			})

		case rateLimitDesc:
			var err error

			rl, err = NewRateLimiter(desc.capacity, desc.rate, clock, hooks, desc.opts...)
			if err != nil {
				return nil, fmt.Errorf("policy %q: %w", name, err)
			}

			entries = append(entries, PatternEntry[T]{
				Priority: priorityRateLimiter,
				Name:     "rate_limiter",
				MW:       RateLimitMiddleware[T](rl),
			})

		default:
			return nil, invalidf("policy %q: option %d: unsupported value of type %T", name, i, opt)
		}
	}

	return &Policy[T]{
		name:    name,
		chain:   Chain(SortPatterns(entries)...),
		entries: sortEntries(entries),
		cb:      cb,
		rl:      rl,
	}, nil
}
