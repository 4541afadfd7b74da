package c8r

import (
	"math"
	"math/rand/v2"
	"time"
)

// maxDuration is the saturation value for overflowing delays.
const maxDuration = time.Duration(math.MaxInt64)

// BackoffStrategy determines the delay between retry attempts.
//
// The set of strategies is closed: use [ConstantBackoff], [LinearBackoff],
// [ExponentialBackoff] or [ExponentialJitterBackoff]. Keeping the set closed
// makes every schedule deterministic except for declared jitter.
//
// Pattern: Strategy: swap backoff algorithms without changing retry logic.
type BackoffStrategy interface {
	// Delay returns the duration to wait before the given retry attempt
	// (0-indexed: attempt 0 is the delay before the first retry). Jittered
	// strategies return a random draw.
	Delay(attempt int) time.Duration
	// Validate reports an [ErrInvalidConfiguration] error for out-of-range
	// parameters.
	Validate() error

	// delay computes the wait for attempt, capped at maxDelay when positive.
	delay(attempt int, maxDelay time.Duration) time.Duration
}

// capDelay clamps d to maxDelay when maxDelay is positive.
func capDelay(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}

	return d
}

// scaled returns base * multiplier^attempt, saturating at [maxDuration].
func scaled(base time.Duration, multiplier float64, attempt int) time.Duration {
	f := float64(base) * math.Pow(multiplier, float64(attempt))
	if f >= float64(maxDuration) || math.IsInf(f, 1) {
		return maxDuration
	}

	return time.Duration(f)
}

// ---------------------------------------------------------------------------
// ConstantBackoff
// ---------------------------------------------------------------------------

// constantBackoff returns the same delay for every attempt.
type constantBackoff struct {
	d time.Duration
}

func (b *constantBackoff) Delay(attempt int) time.Duration { return b.delay(attempt, 0) }

func (b *constantBackoff) delay(_ int, maxDelay time.Duration) time.Duration {
	return capDelay(b.d, maxDelay)
}

func (b *constantBackoff) Validate() error {
	if b.d <= 0 {
		return invalidf("constant backoff: delay must be positive, got %v", b.d)
	}

	return nil
}

// ConstantBackoff returns a [BackoffStrategy] that always waits d.
func ConstantBackoff(d time.Duration) BackoffStrategy {
	return &constantBackoff{d: d}
}

// ---------------------------------------------------------------------------
// LinearBackoff
// ---------------------------------------------------------------------------

// linearBackoff returns step * (attempt + 1).
type linearBackoff struct {
	step time.Duration
}

func (b *linearBackoff) Delay(attempt int) time.Duration { return b.delay(attempt, 0) }

func (b *linearBackoff) delay(attempt int, maxDelay time.Duration) time.Duration {
	n := time.Duration(attempt + 1)
	if b.step > 0 && n > maxDuration/b.step {
		return capDelay(maxDuration, maxDelay)
	}

	return capDelay(b.step*n, maxDelay)
}

func (b *linearBackoff) Validate() error {
	if b.step <= 0 {
		return invalidf("linear backoff: step must be positive, got %v", b.step)
	}

	return nil
}

// LinearBackoff returns a [BackoffStrategy] whose delay increases linearly:
// step * (attempt + 1).
func LinearBackoff(step time.Duration) BackoffStrategy {
	return &linearBackoff{step: step}
}

// ---------------------------------------------------------------------------
// ExponentialBackoff
// ---------------------------------------------------------------------------

// exponentialBackoff returns base * multiplier^attempt.
type exponentialBackoff struct {
	base       time.Duration
	multiplier float64
}

func (b *exponentialBackoff) Delay(attempt int) time.Duration { return b.delay(attempt, 0) }

func (b *exponentialBackoff) delay(attempt int, maxDelay time.Duration) time.Duration {
	return capDelay(scaled(b.base, b.multiplier, attempt), maxDelay)
}

func (b *exponentialBackoff) Validate() error {
	return validateExponential("exponential backoff", b.base, b.multiplier)
}

func validateExponential(name string, base time.Duration, multiplier float64) error {
	if base <= 0 {
		return invalidf("%s: base must be positive, got %v", name, base)
	}

	if math.IsNaN(multiplier) || multiplier < 1 {
		return invalidf("%s: multiplier must be >= 1, got %v", name, multiplier)
	}

	return nil
}

// ExponentialBackoff returns a [BackoffStrategy] whose delay grows
// geometrically: base * multiplier^attempt. For the n-th retry (1-indexed)
// that is base * multiplier^(n-1).
func ExponentialBackoff(base time.Duration, multiplier float64) BackoffStrategy {
	return &exponentialBackoff{base: base, multiplier: multiplier}
}

// ---------------------------------------------------------------------------
// ExponentialJitterBackoff
// ---------------------------------------------------------------------------

// exponentialJitterBackoff draws uniformly from [0, min(base * multiplier^attempt, maxDelay)].
type exponentialJitterBackoff struct {
	base       time.Duration
	multiplier float64
}

func (b *exponentialJitterBackoff) Delay(attempt int) time.Duration { return b.delay(attempt, 0) }

func (b *exponentialJitterBackoff) delay(attempt int, maxDelay time.Duration) time.Duration {
	upper := int64(capDelay(scaled(b.base, b.multiplier, attempt), maxDelay))
	if upper <= 0 {
		return 0
	}

	if upper == math.MaxInt64 {
		return time.Duration(rand.Int64N(upper))
	}

	return time.Duration(rand.Int64N(upper + 1))
}

func (b *exponentialJitterBackoff) Validate() error {
	return validateExponential("exponential jitter backoff", b.base, b.multiplier)
}

// ExponentialJitterBackoff returns a [BackoffStrategy] with full jitter: the
// delay is uniformly distributed in [0, base * multiplier^attempt]. The cap
// from [RetryParams.MaxDelay] is applied before the draw, so the draw stays
// uniform over the capped range.
func ExponentialJitterBackoff(base time.Duration, multiplier float64) BackoffStrategy {
	return &exponentialJitterBackoff{base: base, multiplier: multiplier}
}
