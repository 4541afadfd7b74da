// Package zaphooks logs c8r combinator events with a zap logger.
//
// Failures (retries, exhaustion, timeouts, breaker openings) log at Warn;
// rejections and state recoveries at Info; high-volume events (debounce,
// throttle, memo) at Debug.
package zaphooks

import (
	"time"

	"go.uber.org/zap"

	"github.com/byte4ever/c8r"
)

// New returns hooks that log every event to logger, tagged with the given
// combinator name.
func New(logger *zap.Logger, name string) *c8r.Hooks {
	l := logger.With(zap.String("combinator", name))

	debug := func(msg string) func() {
		return func() { l.Debug(msg) }
	}

	return &c8r.Hooks{
		OnRetry: func(attempt int, err error, delay time.Duration) {
			l.Warn("retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
		OnRetriesExhausted: func(attempts int, err error) {
			l.Warn("retries exhausted", zap.Int("attempts", attempts), zap.Error(err))
		},
		OnTimeout:         func() { l.Warn("timed out") },
		OnCircuitOpen:     func() { l.Warn("circuit opened") },
		OnCircuitHalfOpen: func() { l.Info("circuit half-open") },
		OnCircuitClose:    func() { l.Info("circuit closed") },
		OnRateLimited:     func() { l.Info("rate limited") },

		OnDebounceFired:    debug("debounce fired"),
		OnDebounceCanceled: debug("debounce canceled"),
		OnThrottleDeferred: debug("throttle deferred"),
		OnThrottleFired: func(trailing bool) {
			l.Debug("throttle fired", zap.Bool("trailing", trailing))
		},
		OnMemoHit:  debug("memo hit"),
		OnMemoMiss: debug("memo miss"),
	}
}
