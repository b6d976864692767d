// Package observability provides metrics and monitoring for the engine.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquatel/hydronet-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Batch     *metrics.BatchMetrics
	Predictor *metrics.PredictorMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	batchMetrics, err := metrics.NewBatchMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch metrics: %w", err)
	}

	predictorMetrics, err := metrics.NewPredictorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create predictor metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Batch:     batchMetrics,
		Predictor: predictorMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint with the provided mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
