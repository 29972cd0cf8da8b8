package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	StepsTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	CarrierErrors *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		StepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trovemart_fulfillment_steps_total",
				Help: "Total fulfillment step executions by step and status",
			},
			[]string{"step", "status"},
		),
		StepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trovemart_fulfillment_step_duration_seconds",
				Help:    "Fulfillment step duration in seconds by step",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trovemart_carrier_errors_total",
				Help: "Total carrier API errors by error type",
			},
			[]string{"error_type"},
		),
	}
}

// RecordStep records one fulfillment step execution.
func (m *Metrics) RecordStep(step, status string, duration float64) {
	m.StepsTotal.WithLabelValues(step, status).Inc()
	m.StepDuration.WithLabelValues(step).Observe(duration)
}

// RecordError records a failed step by error class.
func (m *Metrics) RecordError(errorType string) {
	m.CarrierErrors.WithLabelValues(errorType).Inc()
}
