// Package promhooks exports c8r combinator events as Prometheus metrics.
package promhooks

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/byte4ever/c8r"
)

// Event label values of the events_total counter.
const (
	EventRetry            = "retry"
	EventRetriesExhausted = "retries_exhausted"
	EventTimeout          = "timeout"
	EventRateLimited      = "rate_limited"
	EventCircuitOpen      = "circuit_open"
	EventCircuitClose     = "circuit_close"
	EventCircuitHalfOpen  = "circuit_half_open"
	EventDebounceFired    = "debounce_fired"
	EventDebounceCanceled = "debounce_canceled"
	EventThrottleDeferred = "throttle_deferred"
	EventThrottleFired    = "throttle_fired"
	EventMemoHit          = "memo_hit"
	EventMemoMiss         = "memo_miss"
)

// Metrics holds the collectors behind the hooks returned by [New].
type Metrics struct {
	// Events counts combinator events by "event" label; throttle_fired also
	// carries "trailing".
	Events *prometheus.CounterVec
	// RetryDelay observes the backoff delay before each retry, in seconds.
	RetryDelay prometheus.Histogram
}

// New registers the collectors with reg under namespace and returns hooks
// feeding them, along with the collectors for inspection.
func New(reg prometheus.Registerer, namespace string) (*c8r.Hooks, *Metrics, error) {
	reg = prometheus.WrapRegistererWith(
		prometheus.Labels{"component": "c8r"},
		reg,
	)

	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of combinator lifecycle events",
		}, []string{"event", "trailing"}),
		RetryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay before a retry",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.Events, m.RetryDelay} {
		if err := reg.Register(c); err != nil {
			return nil, nil, fmt.Errorf("promhooks: register: %w", err)
		}
	}

	inc := func(event string) func() {
		counter := m.Events.WithLabelValues(event, "")
		return counter.Inc
	}

	hooks := &c8r.Hooks{
		OnRetry: func(_ int, _ error, delay time.Duration) {
			m.Events.WithLabelValues(EventRetry, "").Inc()
			m.RetryDelay.Observe(delay.Seconds())
		},
		OnRetriesExhausted: func(int, error) {
			m.Events.WithLabelValues(EventRetriesExhausted, "").Inc()
		},
		OnTimeout:          inc(EventTimeout),
		OnRateLimited:      inc(EventRateLimited),
		OnCircuitOpen:      inc(EventCircuitOpen),
		OnCircuitClose:     inc(EventCircuitClose),
		OnCircuitHalfOpen:  inc(EventCircuitHalfOpen),
		OnDebounceFired:    inc(EventDebounceFired),
		OnDebounceCanceled: inc(EventDebounceCanceled),
		OnThrottleDeferred: inc(EventThrottleDeferred),
		OnThrottleFired: func(trailing bool) {
			m.Events.WithLabelValues(EventThrottleFired, strconv.FormatBool(trailing)).Inc()
		},
		OnMemoHit:  inc(EventMemoHit),
		OnMemoMiss: inc(EventMemoMiss),
	}

	return hooks, m, nil
}
