package hxdyn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Content request outcomes.
const (
	OutcomeLoaded       = "loaded"
	OutcomeUnacceptable = "unacceptable"
	OutcomeTransport    = "transport_error"
	OutcomeStale        = "stale"
)

// Failure reasons.
const (
	ReasonTransport        = "transport"
	ReasonRetriesExhausted = "retries_exhausted"
	ReasonNoPath           = "no_path"
)

// Metrics holds the component and content-loading metrics. A nil *Metrics
// records nothing.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	ContentRequests *prometheus.CounterVec
	ContentRetries  prometheus.Counter
	ContentFailures *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hxdyn",
				Subsystem: "registry",
				Name:      "registrations_total",
				Help:      "Total number of components bound by a registry scan",
			},
			[]string{"type"},
		),

		ContentRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hxdyn",
				Subsystem: "content",
				Name:      "requests_total",
				Help:      "Total number of content area requests by outcome",
			},
			[]string{"outcome"},
		),

		ContentRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hxdyn",
				Subsystem: "content",
				Name:      "retries_total",
				Help:      "Total number of content loads retried after an unacceptable response",
			},
		),

		ContentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hxdyn",
				Subsystem: "content",
				Name:      "failures_total",
				Help:      "Total number of content loads that ended in the error state",
			},
			[]string{"reason"},
		),

		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "hxdyn",
				Subsystem: "content",
				Name:      "fetch_duration_seconds",
				Help:      "Content fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.Registrations,
			m.ContentRequests,
			m.ContentRetries,
			m.ContentFailures,
			m.FetchDuration,
		)
	}
	return m
}

func (m *Metrics) registered(typeName string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(typeName).Inc()
}

func (m *Metrics) request(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ContentRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeStale {
		m.FetchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.ContentRetries.Inc()
}

func (m *Metrics) failed(reason string) {
	if m == nil {
		return
	}
	m.ContentFailures.WithLabelValues(reason).Inc()
}
