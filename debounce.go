package c8r

import (
	"runtime"
	"sync"
	"time"
)

// Pattern: Debounce: collapses a burst of calls into one deferred execution
// carrying the arguments of the last call. The deferred execution runs on the
// clock's timer goroutine, never on the caller's.

type (
	// Debouncer wraps a function so that it runs only once calls have stopped
	// arriving for a quiet period. Create one with [NewDebouncer] or
	// [Debounce].
	//
	// Go has no destructors: when the last reference to a Debouncer is
	// dropped, a runtime cleanup cancels any pending execution. Call
	// [Debouncer.Cancel] for deterministic teardown.
	Debouncer[A any] struct {
		state *debounceState[A]
	}

	// debounceState holds everything the timer callback touches. It must
	// never reference the owning Debouncer, or the cleanup would never run.
	debounceState[A any] struct {
		fn    func(A)
		clock Clock
		hooks *Hooks
		quiet time.Duration

		mu      sync.Mutex
		timer   Timer
		arg     A
		gen     uint64
		pending bool

		// execMu serializes executions of fn.
		execMu sync.Mutex
	}
)

// NewDebouncer wraps fn with a quiet period. A nil clock means [RealClock].
// It fails with [ErrInvalidConfiguration] when fn is nil or quiet is not
// positive.
func NewDebouncer[A any](
	fn func(A),
	quiet time.Duration,
	clock Clock,
	hooks *Hooks,
) (*Debouncer[A], error) {
	if fn == nil {
		return nil, invalidf("debounce: nil function")
	}

	if quiet <= 0 {
		return nil, invalidf("debounce: quiet period must be positive, got %v", quiet)
	}

	state := &debounceState[A]{
		fn:    fn,
		clock: clockOrReal(clock),
		hooks: hooks,
		quiet: quiet,
	}

	d := &Debouncer[A]{state: state}
	runtime.AddCleanup(d, func(s *debounceState[A]) { s.cancel() }, state)

	return d, nil
}

// Debounce wraps fn with a quiet period on the real clock.
func Debounce[A any](fn func(A), quiet time.Duration) (*Debouncer[A], error) {
	return NewDebouncer(fn, quiet, RealClock{}, nil)
}

// Call records arg as the latest argument and reschedules execution for one
// quiet period from now, replacing any pending execution. It never blocks on
// fn.
func (d *Debouncer[A]) Call(arg A) { d.state.call(arg) }

// Flush runs the pending execution immediately on the caller's goroutine and
// reports whether there was one.
func (d *Debouncer[A]) Flush() bool { return d.state.flush() }

// Cancel drops the pending execution, if any, and reports whether one was
// dropped. The Debouncer stays usable.
func (d *Debouncer[A]) Cancel() bool { return d.state.cancel() }

// Pending reports whether an execution is scheduled.
func (d *Debouncer[A]) Pending() bool { return d.state.isPending() }

func (s *debounceState[A]) call(arg A) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	s.gen++
	s.arg = arg
	s.pending = true

	gen := s.gen
	s.timer = s.clock.AfterFunc(s.quiet, func() { s.fire(gen) })
}

// fire runs fn if gen still identifies the latest schedule. Stale firings
// (a Stop that lost the race against the timer) are discarded.
func (s *debounceState[A]) fire(gen uint64) {
	arg, ok := s.take(gen)
	if !ok {
		return
	}

	s.run(arg)
}

// take claims the pending argument for generation gen.
func (s *debounceState[A]) take(gen uint64) (A, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero A
	if !s.pending || s.gen != gen {
		return zero, false
	}

	arg := s.arg
	s.arg = zero
	s.pending = false
	s.timer = nil

	return arg, true
}

func (s *debounceState[A]) run(arg A) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.fn(arg)
	s.hooks.emitDebounceFired()
}

func (s *debounceState[A]) flush() bool {
	s.mu.Lock()
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	arg, ok := s.take(gen)
	if !ok {
		return false
	}

	s.run(arg)

	return true
}

func (s *debounceState[A]) cancel() bool {
	s.mu.Lock()

	if !s.pending {
		s.mu.Unlock()
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
	s.mu.Unlock()

	s.hooks.emitDebounceCanceled()

	return true
}

func (s *debounceState[A]) isPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}
