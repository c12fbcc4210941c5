// Package metrics exposes Prometheus collectors for feedback collection and question generation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors.
type Metrics struct {
	submissions       *prometheus.CounterVec
	generations       *prometheus.CounterVec
	generationLatency prometheus.Histogram
	applies           *prometheus.CounterVec
	exports           prometheus.Counter
	activeSessions    prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers a fresh set of collectors on reg and panics on conflicts.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedback",
			Name:      "submissions_total",
			Help:      "Feedback submissions by outcome.",
		}, []string{"outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Question generation requests by outcome.",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feedback",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Time spent waiting on the generation capability.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
		}),
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "generation",
			Name:      "apply_decisions_total",
			Help:      "Apply decisions on generated questions by policy.",
		}, []string{"policy"}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedback",
			Name:      "csv_exports_total",
			Help:      "CSV exports served.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedback",
			Name:      "active_sessions",
			Help:      "Events with an in-process session.",
		}),
	}
	reg.MustRegister(m.submissions, m.generations, m.generationLatency, m.applies, m.exports, m.activeSessions)
	return m
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// Generation records one generation attempt; elapsed is zero when the capability was never called.
func (m *Metrics) Generation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.generationLatency.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Apply(policy string) {
	if m == nil {
		return
	}
	m.applies.WithLabelValues(policy).Inc()
}

func (m *Metrics) Export() {
	if m == nil {
		return
	}
	m.exports.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
