// historical.go: same-weekday historical baseline scaled by the day's trend
package estimation

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// HistoricalTrendMethod averages the point's own readings for the same
// weekday across the recent valid weeks, then scales that baseline by how
// today is running against history: trend = (today's sum over clean hours) /
// (historical sum over the same hours).
type HistoricalTrendMethod struct{}

// Name implements Method.
func (m *HistoricalTrendMethod) Name() string { return MethodHistoricalTrend }

// Estimate implements Method.
func (m *HistoricalTrendMethod) Estimate(_ context.Context, in *Input) (series.HourlySeries, Meta, error) {
	valid := in.ValidHistory()
	baseline := valid.Baseline()
	if baseline.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}

	factor := trendFactor(in.CleanReadings(), baseline)

	// Every hour with a baseline gets an estimate: the anomalous hours are
	// the suggestion, the clean hours feed adherence scoring.
	out := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		if baseline.Has(h) {
			out[h] = baseline[h] * factor
		}
	}
	if out.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	return out, Meta{Method: m.Name()}, nil
}

// trendFactor compares today's clean hours against the historical baseline
// over exactly those hours. Defaults to 1.0 when history has nothing to
// compare against, so a missing baseline never zeroes an estimate.
func trendFactor(clean, baseline series.HourlySeries) float64 {
	currentSum := 0.0
	historicalSum := 0.0
	for h := 0; h < series.HoursPerDay; h++ {
		if clean.Has(h) && baseline.Has(h) {
			currentSum += clean[h]
			historicalSum += baseline[h]
		}
	}
	if historicalSum == 0 {
		return 1.0
	}
	return currentSum / historicalSum
}
