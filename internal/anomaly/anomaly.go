// Package anomaly flags suspicious hours in a day of telemetry readings.
//
// Detection works on the averaged hourly series plus the same-weekday history
// and produces per-hour flags and a dominant anomaly type. Records are
// ephemeral; only the pendencies derived from them are persisted.
package anomaly

import (
	"math"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/series"
)

// Type identifies the dominant anomaly pattern of a flagged hour.
type Type string

const (
	TypeZeroed     Type = "zeroed"
	TypeFlatline   Type = "flatline"
	TypeSpike      Type = "spike"
	TypeOutOfRange Type = "out_of_range"
	TypeGap        Type = "gap"
)

// Flags holds the per-hour detector outputs for one pattern.
type Flags [series.HoursPerDay]bool

// Record is the detection result for one point and reference date.
type Record struct {
	PointID uint
	Date    string

	Zeroed     Flags
	Flatlined  Flags
	Spike      Flags
	OutOfRange Flags
	Gap        Flags

	// Anomalous is the union of all pattern flags.
	Anomalous Flags
}

// Any reports whether at least one hour was flagged.
func (r *Record) Any() bool {
	for h := 0; h < series.HoursPerDay; h++ {
		if r.Anomalous[h] {
			return true
		}
	}
	return false
}

// TypeAt returns the dominant anomaly type for a flagged hour. Precedence
// mirrors severity: a gap beats everything since there is no value at all,
// then out-of-range, zeroed, flatline and finally spike.
func (r *Record) TypeAt(hour int) (Type, bool) {
	switch {
	case r.Gap[hour]:
		return TypeGap, true
	case r.OutOfRange[hour]:
		return TypeOutOfRange, true
	case r.Zeroed[hour]:
		return TypeZeroed, true
	case r.Flatlined[hour]:
		return TypeFlatline, true
	case r.Spike[hour]:
		return TypeSpike, true
	}
	return "", false
}

// MergePredictor folds externally predicted per-hour flags into the record.
// Predictor hours land in the spike bucket since the model reports deviation
// from expected consumption, not a specific failure mode.
func (r *Record) MergePredictor(flags *Flags) {
	if flags == nil {
		return
	}
	for h := 0; h < series.HoursPerDay; h++ {
		if flags[h] && !r.Gap[h] {
			r.Spike[h] = true
			r.Anomalous[h] = true
		}
	}
}

// Detect runs all detectors over a day of readings. The history is used for
// the spike band; an empty history disables spike detection for the day.
func Detect(pointID uint, date string, readings *series.HourlySeries, hist *series.History, settings *conf.DetectionSettings, minWeekReadings int) *Record {
	rec := &Record{PointID: pointID, Date: date}

	detectGaps(readings, rec)
	detectZeroed(readings, rec)
	detectFlatline(readings, settings.FlatlineRunHours, rec)
	detectOutOfRange(readings, settings, rec)
	if hist != nil {
		baseline := hist.Valid(minWeekReadings).Baseline()
		detectSpikes(readings, &baseline, settings.SpikeFactor, rec)
	}

	for h := 0; h < series.HoursPerDay; h++ {
		rec.Anomalous[h] = rec.Gap[h] || rec.Zeroed[h] || rec.Flatlined[h] || rec.OutOfRange[h] || rec.Spike[h]
	}
	return rec
}

func detectGaps(readings *series.HourlySeries, rec *Record) {
	for h := 0; h < series.HoursPerDay; h++ {
		if !readings.Has(h) {
			rec.Gap[h] = true
		}
	}
}

func detectZeroed(readings *series.HourlySeries, rec *Record) {
	for h := 0; h < series.HoursPerDay; h++ {
		if readings.Has(h) && readings[h] == 0 {
			rec.Zeroed[h] = true
		}
	}
}

// detectFlatline flags runs of minRun or more consecutive identical readings.
// Runs of zeros are left to the zeroed detector.
func detectFlatline(readings *series.HourlySeries, minRun int, rec *Record) {
	if minRun < 2 {
		minRun = 2
	}
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= minRun && readings[runStart] != 0 {
			for h := runStart; h < end; h++ {
				rec.Flatlined[h] = true
			}
		}
		runStart = -1
	}
	for h := 0; h < series.HoursPerDay; h++ {
		if !readings.Has(h) {
			flush(h)
			continue
		}
		if runStart < 0 {
			runStart = h
			continue
		}
		if readings[h] != readings[runStart] {
			flush(h)
			runStart = h
		}
	}
	flush(series.HoursPerDay)
}

func detectOutOfRange(readings *series.HourlySeries, settings *conf.DetectionSettings, rec *Record) {
	for h := 0; h < series.HoursPerDay; h++ {
		if !readings.Has(h) {
			continue
		}
		v := readings[h]
		if v < settings.RangeMin {
			rec.OutOfRange[h] = true
		}
		if settings.RangeMax > 0 && v > settings.RangeMax {
			rec.OutOfRange[h] = true
		}
	}
}

// detectSpikes flags hours whose reading exceeds factor times the historical
// baseline (or falls below baseline/factor). Hours without a baseline are
// skipped rather than guessed.
func detectSpikes(readings, baseline *series.HourlySeries, factor float64, rec *Record) {
	if factor <= 1 {
		return
	}
	for h := 0; h < series.HoursPerDay; h++ {
		if !readings.Has(h) || !baseline.Has(h) {
			continue
		}
		base := math.Abs(baseline[h])
		if base == 0 {
			continue
		}
		v := math.Abs(readings[h])
		if v > base*factor || v < base/factor {
			rec.Spike[h] = true
		}
	}
}
