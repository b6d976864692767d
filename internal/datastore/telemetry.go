// telemetry.go: read-only access to the raw telemetry readings
package datastore

import (
	"fmt"
	"time"

	"github.com/aquatel/hydronet-go/internal/series"
)

// DateFormat is the canonical reference date layout used across the engine.
const DateFormat = "2006-01-02"

// GetDayReadings returns the hourly series for a point and date plus the raw
// valid reading count. Hours with several sub-hourly samples are averaged;
// discarded readings are treated as absent, never as zero.
func (ds *DataStore) GetDayReadings(pointID uint, date string) (series.HourlySeries, int, error) {
	var rows []TelemetryReading
	err := ds.DB.Where("point_id = ? AND date = ? AND discarded = ?", pointID, date, false).
		Order("hour ASC").
		Find(&rows).Error
	if err != nil {
		return series.Empty(), 0, fmt.Errorf("loading readings for point %d on %s: %w", pointID, date, err)
	}

	var sums [series.HoursPerDay]float64
	var counts [series.HoursPerDay]int
	for _, r := range rows {
		if r.Hour < 0 || r.Hour >= series.HoursPerDay {
			continue
		}
		sums[r.Hour] += r.Value
		counts[r.Hour]++
	}

	out := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		if counts[h] > 0 {
			out[h] = sums[h] / float64(counts[h])
		}
	}
	return out, len(rows), nil
}

// GetHistory returns the same-weekday day samples for the `weeks` weeks
// preceding the reference date, oldest first, so the slice index doubles as
// the regression week index.
func (ds *DataStore) GetHistory(pointID uint, date string, weeks int) (series.History, error) {
	ref, err := time.Parse(DateFormat, date)
	if err != nil {
		return nil, fmt.Errorf("invalid reference date %q: %w", date, err)
	}

	history := make(series.History, 0, weeks)
	for i := weeks; i >= 1; i-- {
		day := ref.AddDate(0, 0, -7*i).Format(DateFormat)
		values, count, err := ds.GetDayReadings(pointID, day)
		if err != nil {
			return nil, err
		}
		history = append(history, series.DaySample{Values: values, ReadingCount: count})
	}
	return history, nil
}
