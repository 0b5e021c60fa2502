// Package metrics exposes Prometheus instrumentation for the worker: the
// outbox dispatcher, message delivery and the import pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label constants for metrics.
const (
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelNetwork   = "network"
	LabelStatus    = "status"
	LabelPhase     = "phase"
	LabelJob       = "job"
)

// Outcome constants for dispatched outbox events.
const (
	OutcomeProcessed    = "processed"
	OutcomeRescheduled  = "rescheduled"
	OutcomeDeadLettered = "dead_lettered"
)

// Phase constants for import row counters.
const (
	PhaseStage   = "stage"
	PhaseProcess = "process"
)

// Outcome constants for import rows.
const (
	OutcomeStaged  = "staged"
	OutcomeFailed  = "failed"
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeBad     = "bad"
)

// Metrics provides Prometheus metrics for the background worker. All record
// methods are nil-safe so callers can run unmetered.
type Metrics struct {
	outboxDispatchedTotal *prometheus.CounterVec
	outboxPendingGauge    prometheus.Gauge
	tickDuration          *prometheus.HistogramVec

	messagesTotal   *prometheus.CounterVec
	importRowsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers worker metrics.
// If registry is nil, metrics are created but not registered (useful for
// testing).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		outboxDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blast",
				Subsystem: "outbox",
				Name:      "dispatched_total",
				Help:      "Total number of outbox events by dispatch outcome",
			},
			[]string{LabelOutcome},
		),

		outboxPendingGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "blast",
				Subsystem: "outbox",
				Name:      "pending",
				Help:      "Number of outbox events awaiting dispatch",
			},
		),

		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blast",
				Subsystem: "worker",
				Name:      "tick_duration_seconds",
				Help:      "Duration of one worker job tick",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{LabelJob},
		),

		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blast",
				Subsystem: "messages",
				Name:      "delivered_total",
				Help:      "Total number of message delivery attempts by terminal status",
			},
			[]string{LabelNetwork, LabelStatus},
		),

		importRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blast",
				Subsystem: "imports",
				Name:      "rows_total",
				Help:      "Total number of import rows by phase and outcome",
			},
			[]string{LabelPhase, LabelOutcome},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.outboxDispatchedTotal,
			m.outboxPendingGauge,
			m.tickDuration,
			m.messagesTotal,
			m.importRowsTotal,
		)
	}

	return m
}

// RecordDispatched counts one dispatched outbox event.
func (m *Metrics) RecordDispatched(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.outboxDispatchedTotal.WithLabelValues(outcome).Add(float64(n))
}

// SetPendingOutbox records the current outbox backlog size.
func (m *Metrics) SetPendingOutbox(n int64) {
	if m == nil {
		return
	}
	m.outboxPendingGauge.Set(float64(n))
}

// ObserveTick records the duration of one job tick.
func (m *Metrics) ObserveTick(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordDelivery counts one message delivery attempt.
func (m *Metrics) RecordDelivery(network, status string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(network, status).Inc()
}

// RecordImportRows counts rows handled by an import phase.
func (m *Metrics) RecordImportRows(phase, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.importRowsTotal.WithLabelValues(phase, outcome).Add(float64(n))
}
