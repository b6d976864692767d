// Package batch orchestrates a detection run: it walks every active
// measurement point for a reference date, runs detection, classification,
// estimation and scoring, and upserts the resulting treatment pendencies.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/estimation"
	"github.com/aquatel/hydronet-go/internal/logging"
	"github.com/aquatel/hydronet-go/internal/notification"
	"github.com/aquatel/hydronet-go/internal/observability"
	"github.com/aquatel/hydronet-go/internal/predictor"
)

// Run statuses persisted on BatchRun rows.
const (
	RunStatusScheduled = "scheduled"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PointError records one absorbed per-point failure. The batch continues past
// it; the operator sees the list in the run result.
type PointError struct {
	PointID uint   `json:"pointId"`
	Tag     string `json:"tag"`
	Error   string `json:"error"`
}

// Result summarizes one batch run.
type Result struct {
	RunID          string       `json:"runId"`
	Date           string       `json:"date"`
	Processed      int          `json:"processed"`
	AnomaliesFound int          `json:"anomaliesFound"`
	Pendencies     int          `json:"pendencies"`
	Errors         []PointError `json:"errors"`
	Duration       time.Duration `json:"-"`
}

// Progress is a point-in-time snapshot of the running batch, safe to poll
// from the API while workers are active.
type Progress struct {
	Running bool    `json:"running"`
	RunID   string  `json:"runId,omitempty"`
	Date    string  `json:"date,omitempty"`
	Current int64   `json:"current"`
	Total   int64   `json:"total"`
	Percent float64 `json:"percent"`
}

// Orchestrator runs detection batches. One orchestrator serves both the CLI
// and the operator API; only one batch runs at a time.
type Orchestrator struct {
	ds        datastore.Interface
	settings  *conf.Settings
	auth      authz.Service
	methods   []estimation.Method
	predictor *predictor.Client
	publisher *notification.Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger

	running atomic.Bool
	current atomic.Int64
	total   atomic.Int64
	runID   atomic.Value // string
	runDate atomic.Value // string
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithPredictor attaches the external prediction service client.
func WithPredictor(c *predictor.Client) Option {
	return func(o *Orchestrator) { o.predictor = c }
}

// WithPublisher attaches the MQTT event publisher.
func WithPublisher(p *notification.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithMetrics attaches the Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator over the datastore using the built-in
// estimation methods.
func New(ds datastore.Interface, settings *conf.Settings, auth authz.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ds:       ds,
		settings: settings,
		auth:     auth,
		methods:  estimation.DefaultMethods(),
		logger:   logging.ForService("batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecuteBatch processes every active point for the reference date. Per-point
// failures are absorbed into the result; only setup failures (permissions,
// datastore unavailable, a batch already running) return an error.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, date string) (*Result, error) {
	if err := authz.Require(ctx, o.auth, authz.ActionBatchExecute); err != nil {
		return nil, err
	}
	if _, err := time.Parse(datastore.DateFormat, date); err != nil {
		return nil, errors.New(fmt.Errorf("invalid reference date %q: %w", date, errors.ErrValidation)).
			Component("batch").
			Category(errors.CategoryValidation).
			Build()
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, errors.Newf("a batch is already running").
			Component("batch").
			Category(errors.CategoryBatch).
			Build()
	}
	defer o.running.Store(false)

	started := time.Now()
	points, err := o.ds.GetActivePoints()
	if err != nil {
		return nil, err
	}

	env, err := o.loadEnvironment(date)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	o.runID.Store(runID)
	o.runDate.Store(date)
	o.total.Store(int64(len(points)))
	o.current.Store(0)
	o.setProgressMetric()

	run := &datastore.BatchRun{
		RunID:         runID,
		ReferenceDate: date,
		Status:        RunStatusScheduled,
		StartedAt:     started,
	}
	if err := o.ds.SaveBatchRun(run); err != nil {
		return nil, err
	}
	run.Status = RunStatusRunning
	if err := o.ds.UpdateBatchRun(run); err != nil {
		return nil, err
	}

	o.logger.Info("batch started",
		"run_id", runID, "date", date, "points", len(points), "workers", o.workers())

	result := o.processAll(ctx, date, points, env)
	result.RunID = runID
	result.Duration = time.Since(started)

	status := RunStatusCompleted
	if ctx.Err() != nil {
		status = RunStatusFailed
	}
	now := time.Now()
	run.Status = status
	run.Processed = result.Processed
	run.AnomaliesFound = result.AnomaliesFound
	run.ErrorCount = len(result.Errors)
	run.FinishedAt = &now
	if err := o.ds.UpdateBatchRun(run); err != nil {
		o.logger.Error("failed to update batch run record", "run_id", runID, "error", err)
	}

	if o.metrics != nil {
		o.metrics.Batch.RecordRun(status, result.Duration.Seconds())
	}
	o.publisher.BatchCompleted(ctx, &notification.BatchEvent{
		RunID:      runID,
		Date:       date,
		Status:     status,
		Processed:  result.Processed,
		Anomalies:  result.AnomaliesFound,
		ErrorCount: len(result.Errors),
		DurationMs: result.Duration.Milliseconds(),
	})

	o.logger.Info("batch finished",
		"run_id", runID, "status", status,
		"processed", result.Processed,
		"anomalies", result.AnomaliesFound,
		"pendencies", result.Pendencies,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// ReprocessPoint runs the same pipeline for a single point, typically after
// an operator fixed its registration or telemetry.
func (o *Orchestrator) ReprocessPoint(ctx context.Context, pointID uint, date string) (*Result, error) {
	if err := authz.Require(ctx, o.auth, authz.ActionBatchExecute); err != nil {
		return nil, err
	}
	point, err := o.ds.GetPoint(pointID)
	if err != nil {
		return nil, errors.New(errors.Join(errors.ErrNotFound, err)).
			Component("batch").
			Category(errors.CategoryNotFound).
			Context("point_id", pointID).
			Build()
	}

	env, err := o.loadEnvironment(date)
	if err != nil {
		return nil, err
	}

	result := &Result{Date: date}
	stats, err := o.processPoint(ctx, &point, date, env)
	if err != nil {
		result.Errors = append(result.Errors, PointError{PointID: point.ID, Tag: point.TelemetryTag, Error: err.Error()})
	} else {
		result.Processed = 1
		result.AnomaliesFound = stats.anomalousHours
		result.Pendencies = stats.pendencies
		if stats.predictorErr != nil {
			result.Errors = append(result.Errors, PointError{PointID: point.ID, Tag: point.TelemetryTag, Error: stats.predictorErr.Error()})
		}
	}
	return result, nil
}

// Progress returns the current batch progress without locking.
func (o *Orchestrator) Progress() Progress {
	p := Progress{
		Running: o.running.Load(),
		Current: o.current.Load(),
		Total:   o.total.Load(),
	}
	if id, ok := o.runID.Load().(string); ok {
		p.RunID = id
	}
	if d, ok := o.runDate.Load().(string); ok {
		p.Date = d
	}
	if p.Total > 0 {
		p.Percent = 100 * float64(p.Current) / float64(p.Total)
	}
	return p
}

// Status aggregates the pendency counts of a reference date. Read-only.
func (o *Orchestrator) Status(date string) (datastore.PendencySummary, error) {
	return o.ds.Summary(date)
}

// processAll fans the points out over a bounded worker pool. Cancellation is
// honored between points; a point already being processed finishes.
func (o *Orchestrator) processAll(ctx context.Context, date string, points []datastore.MeasurementPoint, env *environment) *Result {
	result := &Result{Date: date}

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan datastore.MeasurementPoint)

	for i := 0; i < o.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for point := range work {
				stats, err := o.processPoint(ctx, &point, date, env)

				mu.Lock()
				if err != nil {
					result.Errors = append(result.Errors, PointError{
						PointID: point.ID,
						Tag:     point.TelemetryTag,
						Error:   err.Error(),
					})
					if o.metrics != nil {
						o.metrics.Batch.RecordPointError(string(errors.CategoryOf(err)))
					}
				} else {
					result.Processed++
					result.AnomaliesFound += stats.anomalousHours
					result.Pendencies += stats.pendencies
					if stats.predictorErr != nil {
						// The point completed with the built-in methods; the
						// external-model failure is still reported.
						result.Errors = append(result.Errors, PointError{
							PointID: point.ID,
							Tag:     point.TelemetryTag,
							Error:   stats.predictorErr.Error(),
						})
						if o.metrics != nil {
							o.metrics.Batch.RecordPointError(string(errors.CategoryOf(stats.predictorErr)))
						}
					}
				}
				mu.Unlock()

				o.current.Add(1)
				o.setProgressMetric()
				if o.metrics != nil {
					o.metrics.Batch.RecordPointProcessed()
				}
			}
		}()
	}

feed:
	for _, point := range points {
		select {
		case <-ctx.Done():
			o.logger.Warn("batch cancelled", "date", date, "remaining", int64(len(points))-o.current.Load())
			break feed
		case work <- point:
		}
	}
	close(work)
	wg.Wait()

	return result
}

func (o *Orchestrator) workers() int {
	if w := o.settings.Engine.Workers; w > 0 {
		return w
	}
	return 4
}

func (o *Orchestrator) setProgressMetric() {
	if o.metrics == nil {
		return
	}
	total := o.total.Load()
	if total > 0 {
		o.metrics.Batch.SetProgress(100 * float64(o.current.Load()) / float64(total))
	}
}

// environment is the per-run shared state: the relation neighborhood and the
// point registry, loaded once instead of per point.
type environment struct {
	neighborsByTag map[string][]string
	pointsByTag    map[string]datastore.MeasurementPoint
}

func (o *Orchestrator) loadEnvironment(date string) (*environment, error) {
	relations, err := o.ds.GetDerivedRelations()
	if err != nil {
		return nil, fmt.Errorf("loading derived relations: %w", err)
	}
	points, err := o.ds.GetActivePoints()
	if err != nil {
		return nil, fmt.Errorf("loading active points: %w", err)
	}

	env := &environment{
		neighborsByTag: make(map[string][]string),
		pointsByTag:    make(map[string]datastore.MeasurementPoint, len(points)),
	}
	for _, p := range points {
		env.pointsByTag[p.TelemetryTag] = p
	}
	for _, r := range relations {
		env.neighborsByTag[r.PrincipalTag] = append(env.neighborsByTag[r.PrincipalTag], r.AuxiliaryTag)
		env.neighborsByTag[r.AuxiliaryTag] = append(env.neighborsByTag[r.AuxiliaryTag], r.PrincipalTag)
	}
	return env, nil
}
