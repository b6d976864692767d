// Package classifier decides whether a flagged anomaly is a sensor fault or a
// real hydraulic event by comparing the point against its topology neighbors.
package classifier

import (
	"math"

	"github.com/aquatel/hydronet-go/internal/anomaly"
	"github.com/aquatel/hydronet-go/internal/series"
)

// Classification labels the likely cause of an anomaly.
type Classification string

const (
	// Technical means the pattern is isolated to the point itself, which
	// implies a sensor or equipment fault. The data should be corrected.
	Technical Classification = "technical"
	// Operational means neighbors deviate in a correlated way, which implies
	// a real network event such as a valve closure. The data is correct.
	Operational Classification = "operational"
)

// Deviation fraction beyond which a neighbor counts as deviating rather than
// normal, relative to its own historical baseline.
const deviationThreshold = 0.30

// Certainty assigned when no neighbor has usable data in the anomalous
// window. Operational events need corroboration, so the tie-break is always
// Technical at low confidence.
const inconclusiveCertainty = 0.25

// Neighbor carries a topology neighbor's readings for the same reference date
// together with its historical baseline.
type Neighbor struct {
	Tag      string
	Readings series.HourlySeries
	Baseline series.HourlySeries
}

// Result is the classification outcome with its certainty in [0,1].
type Result struct {
	Classification Classification
	Certainty      float64
}

// Classify labels an anomaly record by neighbor agreement. Neighbors showing
// normal behavior in the anomalous window vote Technical; neighbors deviating
// in the same direction as the point vote Operational. A neighbor with no
// overlapping data in the window abstains.
func Classify(rec *anomaly.Record, readings, baseline *series.HourlySeries, neighbors []Neighbor) Result {
	ownDev := windowDeviation(&rec.Anomalous, readings, baseline)

	var normal, correlated int
	for i := range neighbors {
		dev, ok := neighborDeviation(&rec.Anomalous, &neighbors[i])
		if !ok {
			continue
		}
		if math.Abs(dev) < deviationThreshold {
			normal++
			continue
		}
		if sameDirection(ownDev, dev) {
			correlated++
		}
		// Contrary deviation is neither corroboration nor a clean bill of
		// health; it abstains like missing data.
	}

	informative := normal + correlated
	if informative == 0 {
		return Result{Classification: Technical, Certainty: inconclusiveCertainty}
	}

	if correlated > normal {
		return Result{
			Classification: Operational,
			Certainty:      0.5 + 0.5*float64(correlated)/float64(informative),
		}
	}
	return Result{
		Classification: Technical,
		Certainty:      0.5 + 0.5*float64(normal)/float64(informative),
	}
}

// windowDeviation computes the point's own mean relative deviation from its
// baseline over the anomalous hours. Hours with no reading (gaps, dropped
// samples) count as full negative deviation since expected flow is absent.
func windowDeviation(window *anomaly.Flags, readings, baseline *series.HourlySeries) float64 {
	var sum float64
	var n int
	for h := 0; h < series.HoursPerDay; h++ {
		if !window[h] || !baseline.Has(h) || baseline[h] == 0 {
			continue
		}
		if !readings.Has(h) {
			sum -= 1
			n++
			continue
		}
		sum += (readings[h] - (*baseline)[h]) / math.Abs((*baseline)[h])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func neighborDeviation(window *anomaly.Flags, nb *Neighbor) (float64, bool) {
	var sum float64
	var n int
	for h := 0; h < series.HoursPerDay; h++ {
		if !window[h] || !nb.Readings.Has(h) || !nb.Baseline.Has(h) || nb.Baseline[h] == 0 {
			continue
		}
		sum += (nb.Readings[h] - nb.Baseline[h]) / math.Abs(nb.Baseline[h])
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func sameDirection(a, b float64) bool {
	if a == 0 {
		// Own direction unknown; any strong neighbor deviation corroborates.
		return true
	}
	return (a > 0) == (b > 0)
}
