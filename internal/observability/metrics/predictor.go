package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PredictorMetrics contains Prometheus metrics for external prediction
// service calls.
type PredictorMetrics struct {
	registry *prometheus.Registry

	callsTotal   *prometheus.CounterVec
	callDuration prometheus.Histogram
}

// NewPredictorMetrics creates predictor metrics and registers them with the
// registry.
func NewPredictorMetrics(registry *prometheus.Registry) (*PredictorMetrics, error) {
	m := &PredictorMetrics{registry: registry}

	m.callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_predictor_calls_total",
			Help: "Total number of prediction service calls by result",
		},
		[]string{"result"},
	)
	m.callDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hydronet_predictor_call_duration_seconds",
			Help:    "Duration of prediction service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	for _, c := range []prometheus.Collector{m.callsTotal, m.callDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordCall records one prediction service call with its result
// (success, error, timeout) and duration.
func (m *PredictorMetrics) RecordCall(result string, seconds float64) {
	m.callsTotal.WithLabelValues(result).Inc()
	m.callDuration.Observe(seconds)
}
