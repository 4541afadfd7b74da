package c8r

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestOnceCallsFnOnce(t *testing.T) {
	var calls atomic.Int32

	f := Once(func() (int, error) {
		return int(calls.Add(1)), nil
	})

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if got, err := f(); err != nil || got != 1 {
				t.Errorf("f() = %d, %v, want 1, nil", got, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestOnceRemembersError(t *testing.T) {
	var calls int

	f := Once(func() (string, error) {
		calls++
		return "", errBoom
	})

	for range 3 {
		if _, err := f(); !errors.Is(err, errBoom) {
			t.Fatalf("f() error = %v, want errBoom", err)
		}
	}

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
