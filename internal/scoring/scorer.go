// Package scoring turns method estimates into comparable confidence scores.
//
// Two formulas live here. The per-method adherence score grades how well a
// method reproduces the day's clean hours. The composite confidence blends
// signal quality, classification certainty and the best method score into the
// single 0-10 value that ranks pendencies for the operator.
package scoring

import (
	"math"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/series"
)

// Fixed weights of the adherence formula. These are part of the formula
// definition, unlike the composite weights which are configuration.
const (
	adherenceR2Weight   = 0.40
	adherenceMAEWeight  = 0.30
	adherenceRMSEWeight = 0.30
)

// MaxScore is the upper bound of both score scales.
const MaxScore = 10.0

// Adherence grades a method estimate against the actual readings over the
// hours of the day NOT flagged anomalous:
//
//	score = 10 x (0.40*R2 + 0.30*(1-nMAE) + 0.30*(1-nRMSE)), clamped to [0,10]
//
// MAE and RMSE are normalized by the historical mean magnitude so the score
// is scale-free across L/s flows and mH2O pressures. Returns false when no
// clean hour has both an estimate and an actual reading.
func Adherence(estimate, actual *series.HourlySeries, anomalous *[series.HoursPerDay]bool, histMeanMagnitude float64) (float64, bool) {
	var est, act []float64
	for h := 0; h < series.HoursPerDay; h++ {
		if anomalous[h] {
			continue
		}
		if estimate.Has(h) && actual.Has(h) {
			est = append(est, (*estimate)[h])
			act = append(act, (*actual)[h])
		}
	}
	if len(est) == 0 {
		return 0, false
	}

	r2 := rSquared(act, est)

	var absSum, sqSum float64
	for i := range est {
		diff := act[i] - est[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	mae := absSum / float64(len(est))
	rmse := math.Sqrt(sqSum / float64(len(est)))

	normalizer := histMeanMagnitude
	if normalizer == 0 {
		// No usable history; fall back to the day's own magnitude so the
		// score stays scale-free rather than degenerate.
		for i := range act {
			normalizer += math.Abs(act[i])
		}
		normalizer /= float64(len(act))
	}
	if normalizer == 0 {
		return 0, false
	}

	nMAE := clamp01(mae / normalizer)
	nRMSE := clamp01(rmse / normalizer)

	score := MaxScore * (adherenceR2Weight*r2 + adherenceMAEWeight*(1-nMAE) + adherenceRMSEWeight*(1-nRMSE))
	return clamp(score, 0, MaxScore), true
}

// Composite blends the three confidence signals into the 0-10 pendency score.
// signalQuality and certainty are fractions in [0,1]; bestMethodScore is an
// adherence score in [0,10]. The weights come from configuration so tests can
// assert against the values actually deployed.
func Composite(w conf.ScoringWeights, signalQuality, certainty, bestMethodScore float64) float64 {
	signalQuality = clamp01(signalQuality)
	certainty = clamp01(certainty)
	bestMethodScore = clamp(bestMethodScore, 0, MaxScore)

	score := MaxScore*(w.SignalQuality*signalQuality+w.Certainty*certainty) + w.BestMethod*bestMethodScore
	return clamp(score, 0, MaxScore)
}

// rSquared computes the coefficient of determination of predictions against
// actuals. Negative values (fit worse than the mean) clamp to zero.
func rSquared(actual, predicted []float64) float64 {
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if math.IsNaN(r2) || r2 < 0 {
		return 0
	}
	return r2
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
