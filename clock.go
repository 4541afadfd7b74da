package c8r

import "time"

// Clock abstracts time operations so that combinators can be tested
// deterministically. Production code uses [RealClock]; tests substitute a
// manual implementation that advances time on demand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// NewTimer creates a [Timer] that delivers on its channel after d.
	NewTimer(d time.Duration) Timer
	// AfterFunc waits for d to elapse and then calls f on its own
	// goroutine. The returned [Timer] can cancel the call with Stop; its C
	// method returns nil.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer abstracts [time.Timer] so that fake clocks can provide controllable
// timers for backoff sleeps and deferred executions.
type Timer interface {
	// C returns the channel on which the timer's firing time is delivered.
	C() <-chan time.Time
	// Stop prevents the timer from firing and reports whether it was stopped
	// before it fired.
	Stop() bool
	// Reset changes the timer to fire after duration d and reports whether the
	// timer had been active before the reset.
	Reset(d time.Duration) bool
}

// RealClock is a zero-value [Clock] backed by the real [time] package.
// It is safe for concurrent use because it holds no mutable state.
type RealClock struct{}

// Now returns the current wall-clock time via [time.Now].
func (RealClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t via [time.Since].
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewTimer creates a real [Timer] that fires after d via [time.NewTimer].
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{inner: time.NewTimer(d)}
}

// AfterFunc schedules f via [time.AfterFunc].
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return &realTimer{inner: time.AfterFunc(d, f)}
}

// realTimer wraps [time.Timer] to satisfy the [Timer] interface.
type realTimer struct {
	inner *time.Timer
}

func (t *realTimer) C() <-chan time.Time        { return t.inner.C }
func (t *realTimer) Stop() bool                 { return t.inner.Stop() }
func (t *realTimer) Reset(d time.Duration) bool { return t.inner.Reset(d) }

// clockOrReal returns c, or [RealClock] when c is nil.
//
//nolint:ireturn // returns the Clock interface by design
func clockOrReal(c Clock) Clock {
	if c == nil {
		return RealClock{}
	}

	return c
}
