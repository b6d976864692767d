// Package metrics provides Prometheus metric collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics contains Prometheus metrics for batch run operations.
type BatchMetrics struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	pointsProcessed   prometheus.Counter
	pointErrorsTotal  *prometheus.CounterVec
	anomaliesDetected *prometheus.CounterVec
	pendencyUpserts   *prometheus.CounterVec
	progressGauge     prometheus.Gauge
}

// NewBatchMetrics creates batch metrics and registers them with the registry.
func NewBatchMetrics(registry *prometheus.Registry) (*BatchMetrics, error) {
	m := &BatchMetrics{registry: registry}

	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_batch_runs_total",
			Help: "Total number of batch runs by final status",
		},
		[]string{"status"},
	)
	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hydronet_batch_run_duration_seconds",
			Help:    "Duration of batch runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	m.pointsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hydronet_batch_points_processed_total",
			Help: "Total number of measurement points processed",
		},
	)
	m.pointErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_batch_point_errors_total",
			Help: "Total number of per-point processing errors by category",
		},
		[]string{"category"},
	)
	m.anomaliesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_anomalies_detected_total",
			Help: "Total number of anomalous hours detected by type",
		},
		[]string{"type"},
	)
	m.pendencyUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_pendency_upserts_total",
			Help: "Total number of pendency upserts by outcome",
		},
		[]string{"outcome"},
	)
	m.progressGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydronet_batch_progress_percent",
			Help: "Progress of the currently running batch in percent",
		},
	)

	collectors := []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.pointsProcessed,
		m.pointErrorsTotal,
		m.anomaliesDetected,
		m.pendencyUpserts,
		m.progressGauge,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRun records a completed batch run with its final status and duration.
func (m *BatchMetrics) RecordRun(status string, seconds float64) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

// RecordPointProcessed increments the processed point counter.
func (m *BatchMetrics) RecordPointProcessed() {
	m.pointsProcessed.Inc()
}

// RecordPointError increments the per-point error counter for a category.
func (m *BatchMetrics) RecordPointError(category string) {
	m.pointErrorsTotal.WithLabelValues(category).Inc()
}

// RecordAnomaly increments the detected anomaly counter for a type.
func (m *BatchMetrics) RecordAnomaly(anomalyType string) {
	m.anomaliesDetected.WithLabelValues(anomalyType).Inc()
}

// RecordUpsert increments the pendency upsert counter for an outcome
// (created, refreshed, skipped_finalized, failed).
func (m *BatchMetrics) RecordUpsert(outcome string) {
	m.pendencyUpserts.WithLabelValues(outcome).Inc()
}

// SetProgress sets the current batch progress percentage.
func (m *BatchMetrics) SetProgress(percent float64) {
	m.progressGauge.Set(percent)
}
