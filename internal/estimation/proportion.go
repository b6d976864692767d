// proportion.go: historical share of the neighbor total applied to today
package estimation

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// ProportionMethod assumes the point keeps its historical share of the flow
// its neighborhood carries: share = historical(point) / historical(neighbor
// total), estimate = share x current neighbor total.
type ProportionMethod struct{}

// Name implements Method.
func (m *ProportionMethod) Name() string { return MethodProportion }

// Estimate implements Method.
func (m *ProportionMethod) Estimate(_ context.Context, in *Input) (series.HourlySeries, Meta, error) {
	if len(in.Neighbors) == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	ownBaseline := in.ValidHistory().Baseline()
	if ownBaseline.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}

	// Per-hour historical neighbor totals and current neighbor totals.
	// An hour only counts when every value entering the share is present.
	var histTotal [series.HoursPerDay]float64
	var histN [series.HoursPerDay]int
	var currentTotal [series.HoursPerDay]float64
	var currentN [series.HoursPerDay]int
	for i := range in.Neighbors {
		nb := &in.Neighbors[i]
		nbBaseline := nb.History.Valid(in.ValidWeekMinReadings).Baseline()
		for h := 0; h < series.HoursPerDay; h++ {
			if nbBaseline.Has(h) {
				histTotal[h] += nbBaseline[h]
				histN[h]++
			}
			if nb.Readings.Has(h) {
				currentTotal[h] += nb.Readings[h]
				currentN[h]++
			}
		}
	}

	out := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		if !ownBaseline.Has(h) || histN[h] == 0 || currentN[h] == 0 || histTotal[h] == 0 {
			continue
		}
		share := ownBaseline[h] / histTotal[h]
		out[h] = share * currentTotal[h]
	}
	if out.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	return out, Meta{Method: m.Name()}, nil
}
