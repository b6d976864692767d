// Package estimation implements the independent numerical methods that each
// produce a 24-hour estimate of the "true" values for a point and day.
//
// Every method degrades to ErrInsufficientData instead of failing the point:
// downstream scoring simply skips absent methods.
package estimation

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/series"
)

// Method names, used as the Method field of persisted pendencies.
const (
	MethodPCHIP           = "pchip"
	MethodHistoricalTrend = "historical_trend"
	MethodNetworkTrend    = "network_trend"
	MethodProportion      = "historical_proportion"
	MethodLeastSquares    = "least_squares"
	MethodExternalModel   = "external_model"
)

// Neighbor carries the current readings and history of one topology neighbor.
type Neighbor struct {
	Tag      string
	Readings series.HourlySeries
	History  series.History
}

// Input is everything a method may consult for one point and day.
type Input struct {
	PointID   uint
	Tag       string
	Date      string
	Readings  series.HourlySeries        // the day as measured
	Anomalous [series.HoursPerDay]bool   // hours flagged anomalous
	History   series.History             // own same-weekday history, oldest first
	Neighbors []Neighbor

	// ValidWeekMinReadings is the raw reading count a historical day needs to
	// count as a valid week.
	ValidWeekMinReadings int
}

// CleanReadings returns the day's readings with anomalous hours removed.
// Methods anchor on these; the flagged hours are what they estimate.
func (in *Input) CleanReadings() series.HourlySeries {
	out := in.Readings
	for h := 0; h < series.HoursPerDay; h++ {
		if in.Anomalous[h] {
			out.Clear(h)
		}
	}
	return out
}

// ValidHistory returns the history filtered to valid weeks.
func (in *Input) ValidHistory() series.History {
	return in.History.Valid(in.ValidWeekMinReadings)
}

// Meta describes how an estimate was produced, for scoring.
type Meta struct {
	Method string  // method name
	R2     float64 // model fit where the method computes one, else 0
}

// Method is one independent estimator. Estimate returns the full-day estimate
// (missing hours stay NaN) or ErrInsufficientData when the method cannot run.
type Method interface {
	Name() string
	Estimate(ctx context.Context, in *Input) (series.HourlySeries, Meta, error)
}

// DefaultMethods returns the built-in estimators, in scoring order. The
// external model method is appended by the orchestrator when the prediction
// service is configured.
func DefaultMethods() []Method {
	return []Method{
		&PCHIPMethod{},
		&HistoricalTrendMethod{},
		&NetworkTrendMethod{},
		&ProportionMethod{},
		&LeastSquaresMethod{},
	}
}
