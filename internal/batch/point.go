package batch

import (
	"context"
	"time"

	"github.com/aquatel/hydronet-go/internal/anomaly"
	"github.com/aquatel/hydronet-go/internal/classifier"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/estimation"
	"github.com/aquatel/hydronet-go/internal/notification"
	"github.com/aquatel/hydronet-go/internal/predictor"
	"github.com/aquatel/hydronet-go/internal/scoring"
	"github.com/aquatel/hydronet-go/internal/series"
)

// pointStats summarizes one point's trip through the pipeline. predictorErr
// is the absorbed external-model failure: the point still completes with the
// built-in methods but the failure is reported in the run result.
type pointStats struct {
	anomalousHours int
	pendencies     int
	predictorErr   error
}

// processPoint runs detection, classification, estimation, scoring and the
// pendency upsert for one point and date.
func (o *Orchestrator) processPoint(ctx context.Context, point *datastore.MeasurementPoint, date string, env *environment) (pointStats, error) {
	var stats pointStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	readings, rawCount, err := o.ds.GetDayReadings(point.ID, date)
	if err != nil {
		return stats, err
	}
	history, err := o.ds.GetHistory(point.ID, date, o.historyWeeks())
	if err != nil {
		return stats, err
	}

	minWeek := o.settings.Engine.ValidWeekMinReadings
	rec := anomaly.Detect(point.ID, date, &readings, &history, &o.settings.Engine.Detection, minWeek)

	estNeighbors, clsNeighbors, err := o.loadNeighbors(env, point.TelemetryTag, date)
	if err != nil {
		return stats, err
	}

	var predicted *series.HourlySeries
	if o.predictor != nil {
		res, perr := o.callPredictor(ctx, point, date, &readings, estNeighbors)
		if perr != nil {
			stats.predictorErr = perr
		} else if res != nil {
			rec.MergePredictor(&res.Flags)
			if res.Predicted.Count() > 0 {
				predicted = &res.Predicted
			}
		}
	}

	stats.anomalousHours = countFlags(&rec.Anomalous)
	if stats.anomalousHours == 0 {
		return stats, nil
	}
	if o.metrics != nil {
		for h := 0; h < series.HoursPerDay; h++ {
			if t, ok := rec.TypeAt(h); ok {
				o.metrics.Batch.RecordAnomaly(string(t))
			}
		}
	}

	in := &estimation.Input{
		PointID:              point.ID,
		Tag:                  point.TelemetryTag,
		Date:                 date,
		Readings:             readings,
		Anomalous:            [series.HoursPerDay]bool(rec.Anomalous),
		History:              history,
		Neighbors:            estNeighbors,
		ValidWeekMinReadings: minWeek,
	}

	bestEstimate, bestMethod, bestScore := o.runMethods(ctx, in, predicted)

	baseline := in.ValidHistory().Baseline()
	cls := classifier.Classify(rec, &readings, &baseline, clsNeighbors)

	// Signal quality is the share of expected raw samples the day carried.
	signalQuality := float64(rawCount) / float64(o.expectedDailyReadings())
	if signalQuality > 1 {
		signalQuality = 1
	}
	confidence := scoring.Composite(o.settings.Engine.Scoring, signalQuality, cls.Certainty, bestScore)

	n, err := o.persistPendencies(ctx, point, date, rec, cls, bestEstimate, bestMethod, confidence)
	stats.pendencies = n
	return stats, err
}

// runMethods executes every estimation method and keeps the best scoring
// estimate. Methods that cannot run are skipped; the external model joins
// only when the predictor already returned a vector for this point.
func (o *Orchestrator) runMethods(ctx context.Context, in *estimation.Input, predicted *series.HourlySeries) (best series.HourlySeries, bestMethod string, bestScore float64) {
	best = series.Empty()

	normalizer := 0.0
	baseline := in.ValidHistory().Baseline()
	if m, ok := baseline.MeanMagnitude(); ok {
		normalizer = m
	}

	methods := o.methods
	if predicted != nil {
		p := *predicted
		methods = append(methods[:len(methods):len(methods)], &estimation.ExternalModelMethod{
			Predict: func(context.Context, *estimation.Input) (series.HourlySeries, error) {
				return p, nil
			},
		})
	}

	for _, m := range methods {
		est, _, err := m.Estimate(ctx, in)
		if err != nil {
			if !errors.Is(err, errors.ErrInsufficientData) {
				o.logger.Debug("estimation method failed",
					"method", m.Name(), "point_id", in.PointID, "error", err)
			}
			continue
		}
		score, ok := scoring.Adherence(&est, &in.Readings, &in.Anomalous, normalizer)
		if !ok {
			continue
		}
		if bestMethod == "" || score > bestScore {
			best, bestMethod, bestScore = est, m.Name(), score
		}
	}
	return best, bestMethod, bestScore
}

// persistPendencies upserts one pendency per anomalous hour. A failed upsert
// is retried once after the configured backoff; rows already finalized by an
// operator are skipped without error.
func (o *Orchestrator) persistPendencies(ctx context.Context, point *datastore.MeasurementPoint, date string, rec *anomaly.Record, cls classifier.Result, estimate series.HourlySeries, method string, confidence float64) (int, error) {
	persisted := 0
	for h := 0; h < series.HoursPerDay; h++ {
		anomalyType, ok := rec.TypeAt(h)
		if !ok {
			continue
		}

		p := &datastore.TreatmentPendency{
			PointID:        point.ID,
			Date:           date,
			AnomalyType:    string(anomalyType),
			Hour:           h,
			Classification: string(cls.Classification),
			Status:         datastore.StatusPending,
			Confidence:     confidence,
			Method:         method,
			GeneratedAt:    time.Now(),
		}
		if estimate.Has(h) {
			p.SuggestedValue = estimate[h]
		}

		err := o.ds.UpsertPendency(p)
		if err != nil && !errors.Is(err, errors.ErrConcurrentModification) {
			o.upsertMetric("retried")
			select {
			case <-time.After(o.settings.Engine.UpsertRetryBackoff):
			case <-ctx.Done():
				return persisted, ctx.Err()
			}
			err = o.ds.UpsertPendency(p)
		}
		switch {
		case err == nil:
			persisted++
			o.upsertMetric("persisted")
			o.publisher.PendencyCreated(ctx, &notification.PendencyEvent{
				PendencyID:     p.ID,
				PointID:        point.ID,
				Tag:            point.TelemetryTag,
				Date:           date,
				Hour:           h,
				AnomalyType:    string(anomalyType),
				Classification: string(cls.Classification),
				Confidence:     confidence,
				SuggestedValue: p.SuggestedValue,
				Method:         method,
			})
		case errors.Is(err, errors.ErrConcurrentModification):
			// An operator already finalized this row; leave it alone.
			o.upsertMetric("skipped_finalized")
		default:
			o.upsertMetric("failed")
			return persisted, err
		}
	}
	return persisted, nil
}

// loadNeighbors resolves the derived-relation neighborhood of a tag into the
// readings and histories the estimators and the classifier consume.
func (o *Orchestrator) loadNeighbors(env *environment, tag, date string) ([]estimation.Neighbor, []classifier.Neighbor, error) {
	tags := env.neighborsByTag[tag]
	estN := make([]estimation.Neighbor, 0, len(tags))
	clsN := make([]classifier.Neighbor, 0, len(tags))

	for _, ntag := range tags {
		np, ok := env.pointsByTag[ntag]
		if !ok {
			continue
		}
		readings, _, err := o.ds.GetDayReadings(np.ID, date)
		if err != nil {
			return nil, nil, err
		}
		history, err := o.ds.GetHistory(np.ID, date, o.historyWeeks())
		if err != nil {
			return nil, nil, err
		}
		valid := history.Valid(o.settings.Engine.ValidWeekMinReadings)

		estN = append(estN, estimation.Neighbor{Tag: ntag, Readings: readings, History: history})
		clsN = append(clsN, classifier.Neighbor{Tag: ntag, Readings: readings, Baseline: valid.Baseline()})
	}
	return estN, clsN, nil
}

// callPredictor asks the external model for flags and a predicted vector,
// recording latency and outcome.
func (o *Orchestrator) callPredictor(ctx context.Context, point *datastore.MeasurementPoint, date string, readings *series.HourlySeries, neighbors []estimation.Neighbor) (*predictor.Result, error) {
	features := make([]predictor.NeighborFeature, 0, len(neighbors))
	for i := range neighbors {
		features = append(features, predictor.NeighborFeature{
			Tag:    neighbors[i].Tag,
			Values: predictor.EncodeSeries(&neighbors[i].Readings),
		})
	}

	started := time.Now()
	res, err := o.predictor.Predict(ctx, &predictor.Request{
		PointID:   point.ID,
		Tag:       point.TelemetryTag,
		Date:      date,
		Readings:  predictor.EncodeSeries(readings),
		Neighbors: features,
	})
	if o.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		o.metrics.Predictor.RecordCall(outcome, time.Since(started).Seconds())
	}
	return res, err
}

func (o *Orchestrator) historyWeeks() int {
	if w := o.settings.Engine.HistoryWeeks; w > 0 {
		return w
	}
	return 4
}

func (o *Orchestrator) expectedDailyReadings() int {
	if n := o.settings.Engine.ExpectedDailyReadings; n > 0 {
		return n
	}
	return 96
}

func (o *Orchestrator) upsertMetric(outcome string) {
	if o.metrics != nil {
		o.metrics.Batch.RecordUpsert(outcome)
	}
}

func countFlags(f *anomaly.Flags) int {
	n := 0
	for h := 0; h < series.HoursPerDay; h++ {
		if f[h] {
			n++
		}
	}
	return n
}
