package c8r

import "time"

// Hooks holds optional callback functions for combinator lifecycle events.
// All fields are nil by default; callers set only the hooks they care about.
// Once constructed, a Hooks value must not be mutated: emit methods read the
// function fields without synchronisation. A nil *Hooks is valid and emits
// nothing.
//
// Pattern: Observer: decouples event emission from consumers (logging,
// metrics) without combinators knowing about observers.
type Hooks struct {
	OnRetry            func(attempt int, err error, delay time.Duration)
	OnRetriesExhausted func(attempts int, err error)
	OnTimeout          func()
	OnRateLimited      func()
	OnCircuitOpen      func()
	OnCircuitClose     func()
	OnCircuitHalfOpen  func()
	OnDebounceFired    func()
	OnDebounceCanceled func()
	OnThrottleDeferred func()
	OnThrottleFired    func(trailing bool)
	OnMemoHit          func()
	OnMemoMiss         func()
}

// MergeHooks returns a [Hooks] that fans every event out to all non-nil
// members of hs, in order.
func MergeHooks(hs ...*Hooks) *Hooks {
	var live []*Hooks

	for _, h := range hs {
		if h != nil {
			live = append(live, h)
		}
	}

	each := func(fn func(*Hooks)) {
		for _, h := range live {
			fn(h)
		}
	}

	return &Hooks{
		OnRetry: func(attempt int, err error, delay time.Duration) {
			each(func(h *Hooks) { h.emitRetry(attempt, err, delay) })
		},
		OnRetriesExhausted: func(attempts int, err error) {
			each(func(h *Hooks) { h.emitRetriesExhausted(attempts, err) })
		},
		OnTimeout:          func() { each((*Hooks).emitTimeout) },
		OnRateLimited:      func() { each((*Hooks).emitRateLimited) },
		OnCircuitOpen:      func() { each((*Hooks).emitCircuitOpen) },
		OnCircuitClose:     func() { each((*Hooks).emitCircuitClose) },
		OnCircuitHalfOpen:  func() { each((*Hooks).emitCircuitHalfOpen) },
		OnDebounceFired:    func() { each((*Hooks).emitDebounceFired) },
		OnDebounceCanceled: func() { each((*Hooks).emitDebounceCanceled) },
		OnThrottleDeferred: func() { each((*Hooks).emitThrottleDeferred) },
		OnThrottleFired: func(trailing bool) {
			each(func(h *Hooks) { h.emitThrottleFired(trailing) })
		},
		OnMemoHit:  func() { each((*Hooks).emitMemoHit) },
		OnMemoMiss: func() { each((*Hooks).emitMemoMiss) },
	}
}

func (h *Hooks) emitRetry(attempt int, err error, delay time.Duration) {
	if h != nil && h.OnRetry != nil {
		h.OnRetry(attempt, err, delay)
	}
}

func (h *Hooks) emitRetriesExhausted(attempts int, err error) {
	if h != nil && h.OnRetriesExhausted != nil {
		h.OnRetriesExhausted(attempts, err)
	}
}

func (h *Hooks) emitTimeout() {
	if h != nil && h.OnTimeout != nil {
		h.OnTimeout()
	}
}

func (h *Hooks) emitRateLimited() {
	if h != nil && h.OnRateLimited != nil {
		h.OnRateLimited()
	}
}

func (h *Hooks) emitCircuitOpen() {
	if h != nil && h.OnCircuitOpen != nil {
		h.OnCircuitOpen()
	}
}

func (h *Hooks) emitCircuitClose() {
	if h != nil && h.OnCircuitClose != nil {
		h.OnCircuitClose()
	}
}

func (h *Hooks) emitCircuitHalfOpen() {
	if h != nil && h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen()
	}
}

func (h *Hooks) emitDebounceFired() {
	if h != nil && h.OnDebounceFired != nil {
		h.OnDebounceFired()
	}
}

func (h *Hooks) emitDebounceCanceled() {
	if h != nil && h.OnDebounceCanceled != nil {
		h.OnDebounceCanceled()
	}
}

func (h *Hooks) emitThrottleDeferred() {
	if h != nil && h.OnThrottleDeferred != nil {
		h.OnThrottleDeferred()
	}
}

func (h *Hooks) emitThrottleFired(trailing bool) {
	if h != nil && h.OnThrottleFired != nil {
		h.OnThrottleFired(trailing)
	}
}

func (h *Hooks) emitMemoHit() {
	if h != nil && h.OnMemoHit != nil {
		h.OnMemoHit()
	}
}

func (h *Hooks) emitMemoMiss() {
	if h != nil && h.OnMemoMiss != nil {
		h.OnMemoMiss()
	}
}
