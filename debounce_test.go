package c8r

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recorder collects executions with the clock time they happened at.
type recorder[A any] struct {
	mu    sync.Mutex
	clock Clock
	args  []A
	times []time.Time
}

func (r *recorder[A]) fn(a A) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.args = append(r.args, a)
	r.times = append(r.times, r.clock.Now())
}

func (r *recorder[A]) calls() ([]A, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]A(nil), r.args...), append([]time.Time(nil), r.times...)
}

// ---------------------------------------------------------------------------
// Tests: burst collapses into one execution with the last argument
// ---------------------------------------------------------------------------

func TestDebounceBurstRunsOnceAfterQuietPeriod(t *testing.T) {
	clk := newManualClock()
	start := clk.Now()
	rec := &recorder[string]{clock: clk}

	d, err := NewDebouncer(rec.fn, 100*time.Millisecond, clk, nil)
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	d.Call("t0")
	clk.advance(50 * time.Millisecond)
	d.Call("t50")
	clk.advance(40 * time.Millisecond)
	d.Call("t90")

	// 189ms: still quiet.
	clk.advance(99 * time.Millisecond)

	if args, _ := rec.calls(); len(args) != 0 {
		t.Fatalf("executions before quiet period = %v, want none", args)
	}

	clk.advance(time.Millisecond)

	args, times := rec.calls()
	if len(args) != 1 || args[0] != "t90" {
		t.Fatalf("executions = %v, want [t90]", args)
	}

	if got := times[0].Sub(start); got != 190*time.Millisecond {
		t.Fatalf("execution at %v, want 190ms", got)
	}

	// Nothing else fires later.
	clk.advance(time.Second)

	if args, _ = rec.calls(); len(args) != 1 {
		t.Fatalf("executions = %v, want exactly one", args)
	}
}

func TestDebounceSeparateBurstsRunSeparately(t *testing.T) {
	clk := newManualClock()
	rec := &recorder[int]{clock: clk}

	d, err := NewDebouncer(rec.fn, 10*time.Millisecond, clk, nil)
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	d.Call(1)
	d.Call(2)
	clk.advance(10 * time.Millisecond)
	d.Call(3)
	clk.advance(10 * time.Millisecond)

	args, _ := rec.calls()
	if len(args) != 2 || args[0] != 2 || args[1] != 3 {
		t.Fatalf("executions = %v, want [2 3]", args)
	}
}

func TestDebounceAtMostOneTimerPending(t *testing.T) {
	clk := newManualClock()

	d, err := NewDebouncer(func(int) {}, time.Second, clk, nil)
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	for i := range 20 {
		d.Call(i)
	}

	if n := clk.activeTimers(); n != 1 {
		t.Fatalf("active timers = %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// Tests: concurrent callers
// ---------------------------------------------------------------------------

func TestDebounceConcurrentCallsExecuteOnce(t *testing.T) {
	clk := newManualClock()

	var (
		runs atomic.Int32
		got  atomic.Int64
	)

	d, err := NewDebouncer(func(n int) {
		runs.Add(1)
		got.Store(int64(n))
	}, 50*time.Millisecond, clk, nil)
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Call(i)
		}()
	}
	wg.Wait()

	// The last call in lock order is the one that survives.
	d.Call(1000)
	clk.advance(50 * time.Millisecond)

	if n := runs.Load(); n != 1 {
		t.Fatalf("executions = %d, want 1", n)
	}

	if g := got.Load(); g != 1000 {
		t.Fatalf("executed with %d, want 1000", g)
	}
}

// ---------------------------------------------------------------------------
// Tests: Cancel, Flush, Pending
// ---------------------------------------------------------------------------

func TestDebounceCancelDropsPending(t *testing.T) {
	clk := newManualClock()
	rec := &recorder[int]{clock: clk}

	var canceled atomic.Int32

	hooks := &Hooks{OnDebounceCanceled: func() { canceled.Add(1) }}

	d, err := NewDebouncer(rec.fn, 10*time.Millisecond, clk, hooks)
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	d.Call(1)

	if !d.Pending() {
		t.Fatal("Pending() = false after Call, want true")
	}

	if !d.Cancel() {
		t.Fatal("Cancel() = false, want true")
	}

	if d.Cancel() {
		t.Fatal("second Cancel() = true, want false")
	}

	clk.advance(time.Second)

	if args, _ := rec.calls(); len(args) != 0 {
		t.Fatalf("executions after Cancel = %v, want none", args)
	}

	if canceled.Load() != 1 {
		t.Fatalf("OnDebounceCanceled calls = %d, want 1", canceled.Load())
	}

	// Still usable.
	d.Call(2)
	clk.advance(10 * time.Millisecond)

	if args, _ := rec.calls(); len(args) != 1 || args[0] != 2 {
		t.Fatalf("executions = %v, want [2]", args)
	}
}

func TestDebounceFlushRunsNow(t *testing.T) {
	clk := newManualClock()
	rec := &recorder[int]{clock: clk}

	var fired atomic.Int32

	d, err := NewDebouncer(rec.fn, time.Minute, clk, &Hooks{
		OnDebounceFired: func() { fired.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewDebouncer() error = %v", err)
	}

	if d.Flush() {
		t.Fatal("Flush() with nothing pending = true, want false")
	}

	d.Call(7)

	if !d.Flush() {
		t.Fatal("Flush() = false, want true")
	}

	if args, _ := rec.calls(); len(args) != 1 || args[0] != 7 {
		t.Fatalf("executions = %v, want [7]", args)
	}

	clk.advance(time.Hour)

	if args, _ := rec.calls(); len(args) != 1 {
		t.Fatalf("executions after Flush = %v, want one", args)
	}

	if d.Pending() {
		t.Fatal("Pending() = true after Flush, want false")
	}

	if fired.Load() != 1 {
		t.Fatalf("OnDebounceFired calls = %d, want 1", fired.Load())
	}
}

// ---------------------------------------------------------------------------
// Tests: dropping the wrapper cancels the pending timer
// ---------------------------------------------------------------------------

func TestDebounceDroppedWrapperCancelsPending(t *testing.T) {
	clk := newManualClock()

	var runs atomic.Int32

	func() {
		d, err := NewDebouncer(func(int) { runs.Add(1) }, time.Second, clk, nil)
		if err != nil {
			t.Fatalf("NewDebouncer() error = %v", err)
		}

		d.Call(1)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for clk.activeTimers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("pending timer not cancelled after the Debouncer was dropped")
		}

		runtime.GC()
		time.Sleep(time.Millisecond)
	}

	clk.advance(time.Hour)

	if runs.Load() != 0 {
		t.Fatalf("executions = %d, want 0", runs.Load())
	}
}

// ---------------------------------------------------------------------------
// Tests: real clock runs fn off the caller's goroutine
// ---------------------------------------------------------------------------

func TestDebounceRealClockRunsInBackground(t *testing.T) {
	done := make(chan string, 1)

	d, err := Debounce(func(s string) { done <- s }, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Debounce() error = %v", err)
	}

	start := time.Now()
	d.Call("a")
	d.Call("b")

	if time.Since(start) > 25*time.Millisecond {
		t.Fatal("Call blocked the caller")
	}

	select {
	case got := <-done:
		if got != "b" {
			t.Fatalf("executed with %q, want %q", got, "b")
		}
	case <-time.After(time.Second):
		t.Fatal("debounced function did not run within 1s")
	}
}

// ---------------------------------------------------------------------------
// Tests: construction validation
// ---------------------------------------------------------------------------

func TestNewDebouncerRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(int)
		quiet time.Duration
	}{
		{name: "nil fn", fn: nil, quiet: time.Second},
		{name: "zero quiet", fn: func(int) {}, quiet: 0},
		{name: "negative quiet", fn: func(int) {}, quiet: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDebouncer(tt.fn, tt.quiet, nil, nil)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("NewDebouncer() error = %v, want ErrInvalidConfiguration", err)
			}

			if d != nil {
				t.Fatal("NewDebouncer() returned a non-nil Debouncer on error")
			}
		})
	}
}
