// leastsquares.go: linear projection of same-hour values across week indexes
package estimation

import (
	"context"
	"math"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// LeastSquaresMethod fits, per hour, a line of value against week index over
// the historical weeks and projects it to the current week. Captures slow
// drift (seasonal demand growth, reservoir drawdown) the flat baseline
// methods miss. Reports the mean R-squared of the per-hour fits.
type LeastSquaresMethod struct{}

// Name implements Method.
func (m *LeastSquaresMethod) Name() string { return MethodLeastSquares }

// Estimate implements Method.
func (m *LeastSquaresMethod) Estimate(_ context.Context, in *Input) (series.HourlySeries, Meta, error) {
	valid := in.ValidHistory()
	if len(valid) < 2 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	projectWeek := float64(len(valid)) // the current week, one past the history

	out := series.Empty()
	r2Sum := 0.0
	r2N := 0
	for h := 0; h < series.HoursPerDay; h++ {
		weeks, values := valid.HourValues(h)
		if len(values) < 2 {
			continue
		}
		slope, intercept, r2, ok := linearFit(weeks, values)
		if !ok {
			continue
		}
		out[h] = intercept + slope*projectWeek
		r2Sum += r2
		r2N++
	}
	if out.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}

	meta := Meta{Method: m.Name()}
	if r2N > 0 {
		meta.R2 = r2Sum / float64(r2N)
	}
	return out, meta, nil
}

// linearFit computes an ordinary least squares line y = intercept + slope*x
// and its coefficient of determination.
func linearFit(xs, ys []float64) (slope, intercept, r2 float64, ok bool) {
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0, 0, 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i := range xs {
		pred := intercept + slope*xs[i]
		ssRes += (ys[i] - pred) * (ys[i] - pred)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}
	if ssTot == 0 {
		// All historical values identical; the flat fit is exact.
		return slope, intercept, 1.0, true
	}
	r2 = 1 - ssRes/ssTot
	if math.IsNaN(r2) || r2 < 0 {
		r2 = 0
	}
	return slope, intercept, r2, true
}
