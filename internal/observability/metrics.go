package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the account operation collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	compensations *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountsvc_operations_total",
				Help: "Total number of account operations by outcome",
			},
			[]string{"operation", "outcome", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accountsvc_operation_duration_seconds",
				Help:    "Account operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountsvc_compensations_total",
				Help: "Rollbacks run after a failed notification",
			},
			[]string{"operation", "outcome"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.operations, m.duration, m.compensations)
	return m
}

// RecordOperation counts one finished operation. kind is empty on success.
func (m *Metrics) RecordOperation(operation, kind string, started time.Time) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if kind != "" {
		outcome = OutcomeFailure
	}
	m.operations.WithLabelValues(operation, outcome, kind).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordCompensation counts one compensation attempt sequence
func (m *Metrics) RecordCompensation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.compensations.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
