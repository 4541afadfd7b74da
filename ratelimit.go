package c8r

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type rateLimitConfig struct {
	blocking bool
	poll     time.Duration
}

// RateLimitOption configures rate limiter behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitBlocking makes [RateLimiter.Allow] wait for a token instead of
// rejecting.
func RateLimitBlocking() RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.blocking = true
	}
}

// RateLimitPollInterval sets how often a blocked [RateLimiter.Allow] checks
// for a refilled token. Defaults to the time one token takes to refill,
// clamped to [1ms, 100ms].
func RateLimitPollInterval(d time.Duration) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.poll = d
	}
}

// ---------------------------------------------------------------------------
// RateLimiter
// ---------------------------------------------------------------------------

// fixedPointScale converts floating-point tokens to fixed-point integers.
// Using 1e9 makes one nanosecond at one token per second worth one unit.
const fixedPointScale int64 = 1_000_000_000

// RateLimiter admits calls from a token bucket that starts full, holds at
// most capacity tokens and refills continuously at rate tokens per second.
//
// Pattern: Rate Limiter: token bucket controls call throughput;
// lock-free via atomic CAS for token acquisition and refill.
type RateLimiter struct {
	clock    Clock
	hooks    *Hooks
	cfg      rateLimitConfig
	rate     float64 // tokens per second
	capacity int64   // max tokens in fixed-point

	tokens   atomic.Int64 // current tokens in fixed-point
	lastNano atomic.Int64 // last refill timestamp (unix nano)
}

// NewRateLimiter creates a token bucket of the given capacity refilled at
// rate tokens per second. A rate of 0 never refills. A nil clock means
// [RealClock]. It fails with [ErrInvalidConfiguration] when capacity is below
// 1, rate is negative or NaN, or blocking mode is requested with rate 0.
func NewRateLimiter(
	capacity int,
	rate float64,
	clock Clock,
	hooks *Hooks,
	opts ...RateLimitOption,
) (*RateLimiter, error) {
	var cfg rateLimitConfig
	for _, o := range opts {
		o(&cfg)
	}

	if capacity < 1 {
		return nil, invalidf("rate limiter: capacity must be >= 1, got %d", capacity)
	}

	if int64(capacity) > math.MaxInt64/fixedPointScale {
		return nil, invalidf("rate limiter: capacity %d too large", capacity)
	}

	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return nil, invalidf("rate limiter: rate must be finite and >= 0, got %v", rate)
	}

	if cfg.blocking && rate == 0 {
		return nil, invalidf("rate limiter: blocking mode requires a positive rate")
	}

	if cfg.poll < 0 {
		return nil, invalidf("rate limiter: negative poll interval %v", cfg.poll)
	}

	if cfg.poll == 0 && rate > 0 {
		cfg.poll = min(max(time.Duration(float64(time.Second)/rate), time.Millisecond), 100*time.Millisecond)
	}

	clock = clockOrReal(clock)
	full := int64(capacity) * fixedPointScale

	rl := &RateLimiter{
		rate:     rate,
		capacity: full,
		clock:    clock,
		hooks:    hooks,
		cfg:      cfg,
	}

	rl.tokens.Store(full)
	rl.lastNano.Store(clock.Now().UnixNano())

	return rl, nil
}

// refill adds tokens based on elapsed time since the last refill. It claims
// the elapsed window with a CAS on the timestamp, then adds the tokens with a
// CAS loop, so concurrent refills never double-count time.
func (rl *RateLimiter) refill() {
	if rl.rate == 0 {
		return
	}

	for {
		oldLastNano := rl.lastNano.Load()
		nowNano := rl.clock.Now().UnixNano()
		elapsedNano := nowNano - oldLastNano

		if elapsedNano <= 0 {
			return
		}

		if !rl.lastNano.CompareAndSwap(oldLastNano, nowNano) {
			continue
		}

		// elapsed_seconds * rate tokens == elapsedNano * rate fixed-point units.
		add := float64(elapsedNano) * rl.rate

		var addTokens int64
		if add >= float64(rl.capacity) {
			addTokens = rl.capacity
		} else {
			addTokens = int64(add)
		}

		if addTokens <= 0 {
			return
		}

		for {
			oldTokens := rl.tokens.Load()
			newTokens := min(oldTokens+addTokens, rl.capacity)

			if rl.tokens.CompareAndSwap(oldTokens, newTokens) {
				return
			}
		}
	}
}

// acquire attempts to take one token using a CAS loop.
func (rl *RateLimiter) acquire() bool {
	for {
		current := rl.tokens.Load()
		if current < fixedPointScale {
			return false
		}

		if rl.tokens.CompareAndSwap(current, current-fixedPointScale) {
			return true
		}
	}
}

// TryAcquire refills the bucket and consumes one token if available. It
// reports whether the call is admitted and never blocks. Two callers
// contending for the last token never both succeed.
func (rl *RateLimiter) TryAcquire() bool {
	rl.refill()

	if rl.acquire() {
		return true
	}

	rl.hooks.emitRateLimited()

	return false
}

// Allow acquires a token. By default it returns [ErrRateLimited] when the
// bucket is empty. With [RateLimitBlocking] it waits for a token, returning
// the context's error if ctx ends first.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	rl.refill()

	if rl.acquire() {
		return nil
	}

	if !rl.cfg.blocking {
		rl.hooks.emitRateLimited()
		return ErrRateLimited
	}

	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // preserving context error identity
		}

		timer := rl.clock.NewTimer(rl.cfg.poll)
		select {
		case <-timer.C():
			rl.refill()

			if rl.acquire() {
				return nil
			}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err() //nolint:wrapcheck // preserving context error identity
		}
	}
}

// Tokens returns the number of tokens currently available, including
// fractional refill.
func (rl *RateLimiter) Tokens() float64 {
	rl.refill()
	return float64(rl.tokens.Load()) / float64(fixedPointScale)
}

// Saturated returns true if the bucket has no whole token available.
func (rl *RateLimiter) Saturated() bool {
	rl.refill()
	return rl.tokens.Load() < fixedPointScale
}
