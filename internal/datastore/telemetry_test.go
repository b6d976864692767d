// telemetry_test.go: tests for hourly averaging and same-weekday history
package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedReadings(t *testing.T, ds *DataStore, pointID uint, date string, hour int, values ...float64) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, ds.DB.Create(&TelemetryReading{
			PointID: pointID, Date: date, Hour: hour, Value: v,
		}).Error)
	}
}

func TestGetDayReadings(t *testing.T) {
	ds := setupTestDB(t)

	seedReadings(t, ds, 1, "2025-06-02", 8, 10, 12, 14)
	seedReadings(t, ds, 1, "2025-06-02", 9, 20)
	require.NoError(t, ds.DB.Create(&TelemetryReading{
		PointID: 1, Date: "2025-06-02", Hour: 10, Value: 999, Discarded: true,
	}).Error)

	got, raw, err := ds.GetDayReadings(1, "2025-06-02")
	require.NoError(t, err)

	assert.Equal(t, 4, raw)
	assert.InDelta(t, 12.0, got[8], 1e-9)
	assert.InDelta(t, 20.0, got[9], 1e-9)
	// Discarded readings are absent, never zero.
	assert.False(t, got.Has(10))
	assert.False(t, got.Has(0))
}

func TestGetHistory(t *testing.T) {
	ds := setupTestDB(t)

	// Reference 2025-06-30 is a Monday; the prior Mondays are June 23, 16, 9, 2.
	mondays := []string{"2025-06-02", "2025-06-09", "2025-06-16", "2025-06-23"}
	for i, day := range mondays {
		seedReadings(t, ds, 1, day, 14, float64(10+i))
	}
	// A Tuesday reading must never appear in Monday history.
	seedReadings(t, ds, 1, "2025-06-24", 14, 999)

	hist, err := ds.GetHistory(1, "2025-06-30", 4)
	require.NoError(t, err)
	require.Len(t, hist, 4)

	// Oldest first, so the index works as the regression week index.
	for i := range hist {
		assert.InDelta(t, float64(10+i), hist[i].Values[14], 1e-9)
		assert.Equal(t, 1, hist[i].ReadingCount)
	}
}

func TestGetHistoryInvalidDate(t *testing.T) {
	ds := setupTestDB(t)
	_, err := ds.GetHistory(1, "30/06/2025", 4)
	require.Error(t, err)
}
