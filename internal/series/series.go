// Package series provides the hourly value series used throughout the engine.
//
// A day of telemetry is modeled as 24 hourly slots. Missing or discarded
// readings are NaN, never zero: a zero flow is a real measurement, an absent
// one is not.
package series

import "math"

// HoursPerDay is the number of slots in an HourlySeries.
const HoursPerDay = 24

// HourlySeries holds one value per hour of a day. Missing hours are NaN.
type HourlySeries [HoursPerDay]float64

// Empty returns a series with every hour missing.
func Empty() HourlySeries {
	var s HourlySeries
	for h := range s {
		s[h] = math.NaN()
	}
	return s
}

// Has reports whether hour h holds a value.
func (s *HourlySeries) Has(h int) bool {
	return h >= 0 && h < HoursPerDay && !math.IsNaN(s[h])
}

// Set stores v at hour h. Out-of-range hours are ignored.
func (s *HourlySeries) Set(h int, v float64) {
	if h >= 0 && h < HoursPerDay {
		s[h] = v
	}
}

// Clear marks hour h as missing.
func (s *HourlySeries) Clear(h int) {
	if h >= 0 && h < HoursPerDay {
		s[h] = math.NaN()
	}
}

// Count returns the number of hours holding a value.
func (s *HourlySeries) Count() int {
	n := 0
	for h := range s {
		if !math.IsNaN(s[h]) {
			n++
		}
	}
	return n
}

// Sum returns the sum over present hours and how many hours contributed.
func (s *HourlySeries) Sum() (sum float64, n int) {
	for h := range s {
		if !math.IsNaN(s[h]) {
			sum += s[h]
			n++
		}
	}
	return sum, n
}

// PartialSum sums the present hours strictly before hour `through`.
func (s *HourlySeries) PartialSum(through int) (sum float64, n int) {
	if through > HoursPerDay {
		through = HoursPerDay
	}
	for h := 0; h < through; h++ {
		if !math.IsNaN(s[h]) {
			sum += s[h]
			n++
		}
	}
	return sum, n
}

// Mean returns the mean over present hours, or false when the series is empty.
func (s *HourlySeries) Mean() (float64, bool) {
	sum, n := s.Sum()
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MeanMagnitude returns the mean of absolute values over present hours.
// Used to normalize error metrics into scale-free scores.
func (s *HourlySeries) MeanMagnitude() (float64, bool) {
	sum := 0.0
	n := 0
	for h := range s {
		if !math.IsNaN(s[h]) {
			sum += math.Abs(s[h])
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// DaySample is one historical day of readings together with the raw sample
// count that composed it. The raw count decides whether the week is "valid"
// for baseline building (sub-hourly telemetry yields more than 24 samples).
type DaySample struct {
	Values       HourlySeries
	ReadingCount int
}

// History is a run of same-weekday day samples ordered oldest first, so the
// slice index doubles as the regression week index.
type History []DaySample

// Valid returns the samples with at least minReadings raw readings.
func (h History) Valid(minReadings int) History {
	out := make(History, 0, len(h))
	for _, d := range h {
		if d.ReadingCount >= minReadings {
			out = append(out, d)
		}
	}
	return out
}

// Baseline computes the per-hour mean across the history. Hours with no
// contributing sample stay missing.
func (h History) Baseline() HourlySeries {
	base := Empty()
	for hour := 0; hour < HoursPerDay; hour++ {
		sum := 0.0
		n := 0
		for _, d := range h {
			if d.Values.Has(hour) {
				sum += d.Values[hour]
				n++
			}
		}
		if n > 0 {
			base[hour] = sum / float64(n)
		}
	}
	return base
}

// HourValues collects the values a single hour took across the history,
// paired with their week indexes. Missing hours are skipped.
func (h History) HourValues(hour int) (weeks []float64, values []float64) {
	for i, d := range h {
		if d.Values.Has(hour) {
			weeks = append(weeks, float64(i))
			values = append(values, d.Values[hour])
		}
	}
	return weeks, values
}
