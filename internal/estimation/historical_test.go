package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// flatHistory builds weeks of identical day samples from an hour->value map.
func flatHistory(weeks, readingCount int, values map[int]float64) series.History {
	hist := make(series.History, 0, weeks)
	for w := 0; w < weeks; w++ {
		day := series.Empty()
		for h, v := range values {
			day.Set(h, v)
		}
		hist = append(hist, series.DaySample{Values: day, ReadingCount: readingCount})
	}
	return hist
}

func TestHistoricalTrend(t *testing.T) {
	t.Run("scales baseline by the day trend", func(t *testing.T) {
		// Historical average 12.5 L/s for hours 0-13 (sum 175) and 20.0 L/s
		// at hour 14. Today runs at 13.0 through hour 13 (sum 182), so the
		// trend factor is 182/175 and hour 14 suggests 20.8.
		baseline := make(map[int]float64, 15)
		for h := 0; h < 14; h++ {
			baseline[h] = 12.5
		}
		baseline[14] = 20.0

		in := &Input{
			Readings:             series.Empty(),
			History:              flatHistory(4, 96, baseline),
			ValidWeekMinReadings: 50,
		}
		for h := 0; h < 14; h++ {
			in.Readings.Set(h, 13.0)
		}
		in.Anomalous[14] = true

		m := &HistoricalTrendMethod{}
		out, meta, err := m.Estimate(t.Context(), in)
		require.NoError(t, err)
		assert.Equal(t, MethodHistoricalTrend, meta.Method)
		require.True(t, out.Has(14))
		assert.InDelta(t, 20.8, out[14], 0.05)
	})

	t.Run("factor defaults to one on zero historical sum", func(t *testing.T) {
		in := &Input{
			Readings:             series.Empty(),
			History:              flatHistory(4, 96, map[int]float64{3: 0, 14: 20.0}),
			ValidWeekMinReadings: 50,
		}
		in.Readings.Set(3, 7.0)
		in.Anomalous[14] = true

		m := &HistoricalTrendMethod{}
		out, _, err := m.Estimate(t.Context(), in)
		require.NoError(t, err)
		assert.InDelta(t, 20.0, out[14], 1e-9)
	})

	t.Run("weeks below the reading threshold are discarded", func(t *testing.T) {
		in := &Input{
			Readings:             series.Empty(),
			History:              flatHistory(4, 10, map[int]float64{14: 20.0}),
			ValidWeekMinReadings: 50,
		}
		in.Anomalous[14] = true

		m := &HistoricalTrendMethod{}
		_, _, err := m.Estimate(t.Context(), in)
		assert.True(t, errors.Is(err, errors.ErrInsufficientData))
	})
}
