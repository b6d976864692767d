// Package engine wires the datastore, the orchestrator and the optional
// collaborators into one runtime for the CLI commands and the server.
package engine

import (
	"context"
	"fmt"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/batch"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/httpclient"
	"github.com/aquatel/hydronet-go/internal/logging"
	"github.com/aquatel/hydronet-go/internal/notification"
	"github.com/aquatel/hydronet-go/internal/observability"
	"github.com/aquatel/hydronet-go/internal/predictor"
	"github.com/aquatel/hydronet-go/internal/relation"
)

// Engine bundles the long-lived components of a running instance.
type Engine struct {
	Settings     *conf.Settings
	DS           datastore.Interface
	Auth         authz.Service
	Orchestrator *batch.Orchestrator
	Deriver      *relation.Deriver
	Publisher    *notification.Publisher
	Metrics      *observability.Metrics

	httpClient *httpclient.Client
}

// Bootstrap opens the datastore and assembles the orchestrator with every
// collaborator the configuration enables.
func Bootstrap(settings *conf.Settings, auth authz.Service) (*Engine, error) {
	if err := conf.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ds := datastore.New(settings)
	if ds == nil {
		return nil, fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return nil, fmt.Errorf("opening datastore: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	hc := httpclient.New(nil)
	publisher := notification.NewPublisher(settings)
	publisher.Connect(context.Background())

	opts := []batch.Option{
		batch.WithMetrics(metrics),
		batch.WithPublisher(publisher),
	}
	if pc := predictor.New(settings.Engine.Predictor, hc); pc != nil {
		opts = append(opts, batch.WithPredictor(pc))
	}

	e := &Engine{
		Settings:     settings,
		DS:           ds,
		Auth:         auth,
		Orchestrator: batch.New(ds, settings, auth, opts...),
		Deriver:      &relation.Deriver{DS: ds, Auth: auth},
		Publisher:    publisher,
		Metrics:      metrics,
		httpClient:   hc,
	}
	return e, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() {
	e.Publisher.Close()
	e.httpClient.Close()
	if err := e.DS.Close(); err != nil {
		logging.Error("closing datastore", "error", err)
	}
}
