package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// trendingHistory builds weeks where every hour starts at base and grows by
// step per week.
func trendingHistory(weeks int, base, step float64) series.History {
	hist := make(series.History, 0, weeks)
	for w := 0; w < weeks; w++ {
		day := series.Empty()
		for h := 0; h < series.HoursPerDay; h++ {
			day.Set(h, base+step*float64(w))
		}
		hist = append(hist, series.DaySample{Values: day, ReadingCount: 96})
	}
	return hist
}

func TestLeastSquares(t *testing.T) {
	m := &LeastSquaresMethod{}

	t.Run("projects a linear trend one week past the history", func(t *testing.T) {
		// 10, 11, 12, 13 across weeks 0-3; the fit extends to 14 at week 4.
		in := &Input{
			Readings:             series.Empty(),
			History:              trendingHistory(4, 10.0, 1.0),
			ValidWeekMinReadings: 50,
		}

		out, meta, err := m.Estimate(t.Context(), in)
		require.NoError(t, err)
		assert.Equal(t, MethodLeastSquares, meta.Method)
		assert.InDelta(t, 1.0, meta.R2, 1e-9)
		for h := 0; h < series.HoursPerDay; h++ {
			require.True(t, out.Has(h))
			assert.InDelta(t, 14.0, out[h], 1e-9)
		}
	})

	t.Run("flat history projects the constant with perfect fit", func(t *testing.T) {
		in := &Input{
			Readings:             series.Empty(),
			History:              trendingHistory(5, 8.5, 0),
			ValidWeekMinReadings: 50,
		}

		out, meta, err := m.Estimate(t.Context(), in)
		require.NoError(t, err)
		assert.InDelta(t, 8.5, out[0], 1e-9)
		assert.InDelta(t, 1.0, meta.R2, 1e-9)
	})

	t.Run("requires at least two valid weeks", func(t *testing.T) {
		in := &Input{
			Readings:             series.Empty(),
			History:              trendingHistory(1, 10.0, 1.0),
			ValidWeekMinReadings: 50,
		}

		_, _, err := m.Estimate(t.Context(), in)
		assert.True(t, errors.Is(err, errors.ErrInsufficientData))

		in.History = trendingHistory(4, 10.0, 1.0)
		for i := range in.History {
			in.History[i].ReadingCount = 10
		}
		_, _, err = m.Estimate(t.Context(), in)
		assert.True(t, errors.Is(err, errors.ErrInsufficientData))
	})

	t.Run("hours missing from the whole history stay empty", func(t *testing.T) {
		hist := trendingHistory(3, 10.0, 1.0)
		for i := range hist {
			hist[i].Values.Clear(5)
		}
		in := &Input{
			Readings:             series.Empty(),
			History:              hist,
			ValidWeekMinReadings: 50,
		}

		out, _, err := m.Estimate(t.Context(), in)
		require.NoError(t, err)
		assert.False(t, out.Has(5))
		assert.True(t, out.Has(6))
	})
}
