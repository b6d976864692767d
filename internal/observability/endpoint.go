package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Endpoint serves the Prometheus-compatible metrics over its own listener so
// scraping stays separate from the operator API.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint creates a telemetry endpoint. Returns an error if telemetry is
// not enabled in the settings.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Telemetry.Enabled {
		return nil, fmt.Errorf("telemetry not enabled in settings")
	}
	return &Endpoint{
		listenAddress: settings.Telemetry.Listen,
		metrics:       metrics,
	}, nil
}

// Start runs the HTTP server in a goroutine and shuts it down gracefully when
// quitChan closes.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	log := logging.ForService("observability")

	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	e.server = &http.Server{
		Addr:    e.listenAddress,
		Handler: mux,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("telemetry endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("telemetry HTTP server error", "error", err)
		}
	}()

	go func() {
		<-quitChan
		log.Info("stopping telemetry server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			log.Error("telemetry server shutdown error", "error", err)
		}
	}()
}
