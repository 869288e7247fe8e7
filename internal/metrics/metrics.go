// Package metrics is the passive Prometheus registry described in §4.G:
// counters, gauges, and a histogram updated by the pipeline's other
// components. It never drives behavior itself.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_gateway_requests_total",
			Help: "Total number of /analyze requests received",
		},
	)

	RequestsAdmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_gateway_requests_admitted_total",
			Help: "Total number of requests admitted onto the work queue",
		},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_gateway_cache_hits_total",
			Help: "Total number of /analyze requests short-circuited by a cache hit",
		},
	)

	RequestsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_gateway_requests_rejected_total",
			Help: "Total number of /analyze requests rejected at admission, by reason",
		},
		[]string{"reason"},
	)

	RequestsErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_gateway_requests_errors_total",
			Help: "Total number of requests that reached a terminal error status",
		},
	)

	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_gateway_queue_size",
			Help: "Current number of items resident on the work queue",
		},
	)

	InflightProcessing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_gateway_inflight_processing",
			Help: "Current number of items with status=processing",
		},
	)

	ItemLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_gateway_item_latency_seconds",
			Help:    "Per-item latency from dequeue to terminal write",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Metrics is a thin, toggleable facade over the package-level collectors,
// matching the teacher's enabled/disabled monitoring.Metrics shape.
type Metrics struct {
	enabled bool
}

// New creates a Metrics facade. When enabled is false every method is a
// no-op, so components never need their own enabled/disabled branching.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) isEnabled() bool {
	return m != nil && m.enabled
}

// RecordRequest increments the total-requests counter.
func (m *Metrics) RecordRequest() {
	if !m.isEnabled() {
		return
	}
	RequestsTotal.Inc()
}

// RecordAdmitted increments the admitted-to-queue counter.
func (m *Metrics) RecordAdmitted() {
	if !m.isEnabled() {
		return
	}
	RequestsAdmittedTotal.Inc()
}

// RecordCacheHit increments the cache-hit counter.
func (m *Metrics) RecordCacheHit() {
	if !m.isEnabled() {
		return
	}
	CacheHitsTotal.Inc()
}

// RecordRejected increments the rejected-at-admission counter for the
// given reason (e.g. "empty_input", "overloaded").
func (m *Metrics) RecordRejected(reason string) {
	if !m.isEnabled() {
		return
	}
	RequestsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordError increments the terminal-error counter.
func (m *Metrics) RecordError() {
	if !m.isEnabled() {
		return
	}
	RequestsErrorsTotal.Inc()
}

// SetQueueSize sets the queue-size gauge.
func (m *Metrics) SetQueueSize(n int) {
	if !m.isEnabled() {
		return
	}
	QueueSize.Set(float64(n))
}

// SetInflightProcessing sets the in-flight-processing gauge.
func (m *Metrics) SetInflightProcessing(n int) {
	if !m.isEnabled() {
		return
	}
	InflightProcessing.Set(float64(n))
}

// ObserveItemLatency records the dequeue-to-terminal latency for one item.
func (m *Metrics) ObserveItemLatency(d time.Duration) {
	if !m.isEnabled() {
		return
	}
	ItemLatencySeconds.Observe(d.Seconds())
}
