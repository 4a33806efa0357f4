// Package metrics exposes Prometheus collectors for quiz activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated   prometheus.Counter
	sessionsCompleted prometheus.Counter
	joins             *prometheus.CounterVec
	answers           *prometheus.CounterVec
	failures          *prometheus.CounterVec
	opDuration        *prometheus.HistogramVec
	connections       prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_created_total",
			Help: "Quiz sessions created.",
		}),
		sessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Quiz sessions that reached the completed state.",
		}),
		joins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_joins_total",
			Help: "Join intents by outcome (new, reconnect).",
		}, []string{"kind"}),
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Answer submissions by result (correct, incorrect, duplicate).",
		}, []string{"result"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_operation_failures_total",
			Help: "Failed controller operations by operation and error kind.",
		}, []string{"op", "kind"}),
		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_operation_duration_seconds",
			Help:    "Controller operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_ws_connections",
			Help: "Open websocket connections.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionCreated() {
	if m != nil {
		m.sessionsCreated.Inc()
	}
}

func (m *Metrics) SessionCompleted() {
	if m != nil {
		m.sessionsCompleted.Inc()
	}
}

func (m *Metrics) Joined(reconnect bool) {
	if m == nil {
		return
	}
	kind := "new"
	if reconnect {
		kind = "reconnect"
	}
	m.joins.WithLabelValues(kind).Inc()
}

func (m *Metrics) Answered(correct, duplicate bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	switch {
	case duplicate:
		result = "duplicate"
	case correct:
		result = "correct"
	}
	m.answers.WithLabelValues(result).Inc()
}

// Observe records the latency of op and, when kind is non-empty, a failure.
func (m *Metrics) Observe(op string, started time.Time, kind string) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if kind != "" {
		m.failures.WithLabelValues(op, kind).Inc()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}
