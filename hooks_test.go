package c8r

import (
	"errors"
	"testing"
	"time"
)

func TestNilHooksAreSafe(t *testing.T) {
	var h *Hooks

	h.emitRetry(1, errBoom, time.Second)
	h.emitRetriesExhausted(3, errBoom)
	h.emitTimeout()
	h.emitRateLimited()
	h.emitCircuitOpen()
	h.emitCircuitClose()
	h.emitCircuitHalfOpen()
	h.emitDebounceFired()
	h.emitDebounceCanceled()
	h.emitThrottleDeferred()
	h.emitThrottleFired(true)
	h.emitMemoHit()
	h.emitMemoMiss()

	// A Hooks with no fields set is equally silent.
	(&Hooks{}).emitTimeout()
}

func TestMergeHooksFansOut(t *testing.T) {
	var order []string

	a := &Hooks{
		OnTimeout: func() { order = append(order, "a.timeout") },
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if attempt != 2 || !errors.Is(err, errBoom) || delay != time.Second {
				t.Errorf("OnRetry(%d, %v, %v), want (2, boom, 1s)", attempt, err, delay)
			}

			order = append(order, "a.retry")
		},
	}
	b := &Hooks{
		OnTimeout:       func() { order = append(order, "b.timeout") },
		OnThrottleFired: func(trailing bool) { order = append(order, "b.throttle") },
	}

	h := MergeHooks(a, nil, b)

	h.emitTimeout()
	h.emitRetry(2, errBoom, time.Second)
	h.emitThrottleFired(true)
	h.emitMemoHit()

	want := []string{"a.timeout", "b.timeout", "a.retry", "b.throttle"}
	if len(order) != len(want) {
		t.Fatalf("events = %v, want %v", order, want)
	}

	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("events = %v, want %v", order, want)
		}
	}
}
