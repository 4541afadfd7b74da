package c8r

import (
	"sync/atomic"
	"time"
)

// BreakerState is the state of a [CircuitBreaker].
type BreakerState uint32

// Circuit breaker states.
const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns "closed", "open" or "half_open".
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker tracks consecutive failures of a dependency and fails fast
// while it is down.
//
// Pattern: Circuit Breaker: opens after threshold consecutive failures,
// lets one probe through after the cooldown and closes again when the probe
// succeeds. Lock-free via atomic CAS.
type CircuitBreaker struct {
	clock     Clock
	hooks     *Hooks
	threshold int64
	cooldown  time.Duration

	state        atomic.Uint32
	failureCount atomic.Int64
	openedNano   atomic.Int64 // unix nano when the breaker last opened
	probing      atomic.Bool  // a half-open probe is in flight
}

// NewCircuitBreaker creates a closed breaker. A nil clock means [RealClock].
// It fails with [ErrInvalidConfiguration] when threshold is below 1 or
// cooldown is not positive.
func NewCircuitBreaker(
	threshold int,
	cooldown time.Duration,
	clock Clock,
	hooks *Hooks,
) (*CircuitBreaker, error) {
	if threshold < 1 {
		return nil, invalidf("circuit breaker: threshold must be >= 1, got %d", threshold)
	}

	if cooldown <= 0 {
		return nil, invalidf("circuit breaker: cooldown must be positive, got %v", cooldown)
	}

	return &CircuitBreaker{
		clock:     clockOrReal(clock),
		hooks:     hooks,
		threshold: int64(threshold),
		cooldown:  cooldown,
	}, nil
}

// Permit is an admission granted by [CircuitBreaker.Acquire]. Report the
// outcome of the admitted call exactly once. The zero Permit reports nothing.
type Permit struct {
	cb    *CircuitBreaker
	probe bool
}

// Probe reports whether the permit is the half-open trial call.
func (p Permit) Probe() bool { return p.probe }

// Success records that the admitted call succeeded. Only the probe closes a
// half-open breaker.
func (p Permit) Success() {
	if p.cb != nil {
		p.cb.recordSuccess(p.probe)
	}
}

// Failure records that the admitted call failed. Only the probe reopens a
// half-open breaker; failures of calls admitted while closed count toward
// the threshold.
func (p Permit) Failure() {
	if p.cb != nil {
		p.cb.recordFailure(p.probe)
	}
}

// Acquire admits a call and returns the [Permit] its outcome is reported
// through. It returns [ErrCircuitOpen] while the breaker is open and the
// cooldown has not elapsed, and while a half-open probe is already in flight.
func (cb *CircuitBreaker) Acquire() (Permit, error) {
	switch BreakerState(cb.state.Load()) {
	case BreakerOpen:
		opened := time.Unix(0, cb.openedNano.Load())
		if cb.clock.Since(opened) < cb.cooldown {
			return Permit{}, ErrCircuitOpen
		}

		if cb.state.CompareAndSwap(uint32(BreakerOpen), uint32(BreakerHalfOpen)) {
			cb.hooks.emitCircuitHalfOpen()
		}

		return cb.claimProbe()

	case BreakerHalfOpen:
		return cb.claimProbe()

	default:
		return Permit{cb: cb}, nil
	}
}

func (cb *CircuitBreaker) claimProbe() (Permit, error) {
	if cb.probing.CompareAndSwap(false, true) {
		return Permit{cb: cb, probe: true}, nil
	}

	return Permit{}, ErrCircuitOpen
}

// Allow reports whether a call may proceed, like [CircuitBreaker.Acquire]
// without the permit. Callers that overlap calls should use Acquire so that
// late outcomes of calls admitted while closed cannot settle a probe.
func (cb *CircuitBreaker) Allow() error {
	_, err := cb.Acquire()
	return err
}

// RecordSuccess records a successful call. While half-open the call is taken
// to be the probe, so a success closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.recordSuccess(cb.probing.Load())
}

// RecordFailure records a failed call. Reaching the threshold in the closed
// state, or a failure while half-open, opens the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.recordFailure(cb.probing.Load())
}

func (cb *CircuitBreaker) recordSuccess(probe bool) {
	cb.failureCount.Store(0)

	if !probe {
		return
	}

	if cb.state.CompareAndSwap(uint32(BreakerHalfOpen), uint32(BreakerClosed)) {
		cb.probing.Store(false)
		cb.hooks.emitCircuitClose()
	}
}

func (cb *CircuitBreaker) recordFailure(probe bool) {
	switch BreakerState(cb.state.Load()) {
	case BreakerClosed:
		if cb.failureCount.Add(1) < cb.threshold {
			return
		}

		cb.open(BreakerClosed)

	case BreakerHalfOpen:
		if probe {
			cb.open(BreakerHalfOpen)
		}

	default:
	}
}

func (cb *CircuitBreaker) open(from BreakerState) {
	cb.openedNano.Store(cb.clock.Now().UnixNano())

	if cb.state.CompareAndSwap(uint32(from), uint32(BreakerOpen)) {
		cb.probing.Store(false)
		cb.failureCount.Store(0)
		cb.hooks.emitCircuitOpen()
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	return BreakerState(cb.state.Load())
}
