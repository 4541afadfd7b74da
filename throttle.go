package c8r

import (
	"runtime"
	"sync"
	"time"
)

// Pattern: Throttle: leading and trailing edge. The first call of a fresh
// window runs immediately on the caller's goroutine; later calls inside the
// window are collapsed into one trailing execution at the window boundary
// with the arguments of the last of them.

type (
	// Throttler wraps a function so that it runs at most once per interval.
	// Create one with [NewThrottler] or [Throttle].
	//
	// Executions never overlap and happen in call order. Dropping the last
	// reference to a Throttler cancels a pending trailing execution.
	Throttler[A any] struct {
		state *throttleState[A]
	}

	throttleState[A any] struct {
		fn       func(A)
		clock    Clock
		hooks    *Hooks
		interval time.Duration

		mu       sync.Mutex
		timer    Timer
		lastExec time.Time
		arg      A
		gen      uint64
		ran      bool
		pending  bool

		execMu sync.Mutex
	}
)

// NewThrottler wraps fn with an execution interval. A nil clock means
// [RealClock]. It fails with [ErrInvalidConfiguration] when fn is nil or
// interval is not positive.
func NewThrottler[A any](
	fn func(A),
	interval time.Duration,
	clock Clock,
	hooks *Hooks,
) (*Throttler[A], error) {
	if fn == nil {
		return nil, invalidf("throttle: nil function")
	}

	if interval <= 0 {
		return nil, invalidf("throttle: interval must be positive, got %v", interval)
	}

	state := &throttleState[A]{
		fn:       fn,
		clock:    clockOrReal(clock),
		hooks:    hooks,
		interval: interval,
	}

	t := &Throttler[A]{state: state}
	runtime.AddCleanup(t, func(s *throttleState[A]) { s.cancel() }, state)

	return t, nil
}

// Throttle wraps fn with an execution interval on the real clock.
func Throttle[A any](fn func(A), interval time.Duration) (*Throttler[A], error) {
	return NewThrottler(fn, interval, RealClock{}, nil)
}

// Call runs fn(arg) now when a full interval has passed since the previous
// execution and nothing is pending. Otherwise it stores arg for the trailing
// execution and returns without blocking.
func (t *Throttler[A]) Call(arg A) { t.state.call(arg) }

// Cancel drops the pending trailing execution and reports whether there was
// one.
func (t *Throttler[A]) Cancel() bool { return t.state.cancel() }

// Pending reports whether a trailing execution is scheduled.
func (t *Throttler[A]) Pending() bool {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	return t.state.pending
}

func (s *throttleState[A]) call(arg A) {
	s.mu.Lock()

	now := s.clock.Now()
	elapsed := now.Sub(s.lastExec)

	if !s.pending && (!s.ran || elapsed >= s.interval) {
		s.ran = true
		s.lastExec = now
		s.mu.Unlock()

		s.run(arg, false)

		return
	}

	s.arg = arg

	if !s.pending {
		s.pending = true
		s.gen++

		gen := s.gen
		s.timer = s.clock.AfterFunc(s.interval-elapsed, func() { s.fire(gen) })
	}
	s.mu.Unlock()

	s.hooks.emitThrottleDeferred()
}

func (s *throttleState[A]) fire(gen uint64) {
	s.mu.Lock()

	if !s.pending || s.gen != gen {
		s.mu.Unlock()
		return
	}

	var zero A

	arg := s.arg
	s.arg = zero
	s.pending = false
	s.timer = nil
	s.lastExec = s.clock.Now()
	s.mu.Unlock()

	s.run(arg, true)
}

func (s *throttleState[A]) run(arg A, trailing bool) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.fn(arg)
	s.hooks.emitThrottleFired(trailing)
}

func (s *throttleState[A]) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return false
	}

	if s.timer != nil {
		s.timer.Stop()
	}

	var zero A

	s.gen++
	s.arg = zero
	s.pending = false
	s.timer = nil

	return true
}
