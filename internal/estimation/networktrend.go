// networktrend.go: neighbor current/historical ratios applied to own baseline
package estimation

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// NetworkTrendMethod estimates from how the surrounding network is behaving:
// each neighbor's per-hour (current / historical) ratio is averaged with
// equal weight, and the averaged ratio scales the point's own historical
// baseline. A sector-wide demand surge shows up in every neighbor and carries
// over to the estimate.
type NetworkTrendMethod struct{}

// Name implements Method.
func (m *NetworkTrendMethod) Name() string { return MethodNetworkTrend }

// Estimate implements Method.
func (m *NetworkTrendMethod) Estimate(_ context.Context, in *Input) (series.HourlySeries, Meta, error) {
	if len(in.Neighbors) == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	baseline := in.ValidHistory().Baseline()
	if baseline.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}

	// Per-hour mean of neighbor current/historical ratios.
	var ratioSum [series.HoursPerDay]float64
	var ratioN [series.HoursPerDay]int
	for i := range in.Neighbors {
		nb := &in.Neighbors[i]
		nbBaseline := nb.History.Valid(in.ValidWeekMinReadings).Baseline()
		for h := 0; h < series.HoursPerDay; h++ {
			if nb.Readings.Has(h) && nbBaseline.Has(h) && nbBaseline[h] != 0 {
				ratioSum[h] += nb.Readings[h] / nbBaseline[h]
				ratioN[h]++
			}
		}
	}

	out := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		if ratioN[h] > 0 && baseline.Has(h) {
			out[h] = baseline[h] * (ratioSum[h] / float64(ratioN[h]))
		}
	}
	if out.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	return out, Meta{Method: m.Name()}, nil
}
