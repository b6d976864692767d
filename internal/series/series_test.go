package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourlySeries(t *testing.T) {
	t.Run("empty series has no values", func(t *testing.T) {
		s := Empty()
		assert.Equal(t, 0, s.Count())
		for h := 0; h < HoursPerDay; h++ {
			assert.False(t, s.Has(h))
		}
	})

	t.Run("zero is a value, missing is not", func(t *testing.T) {
		s := Empty()
		s.Set(6, 0)
		assert.True(t, s.Has(6))
		assert.Equal(t, 1, s.Count())

		s.Clear(6)
		assert.False(t, s.Has(6))
	})

	t.Run("out of range hours are ignored", func(t *testing.T) {
		s := Empty()
		s.Set(-1, 5)
		s.Set(24, 5)
		assert.Equal(t, 0, s.Count())
		assert.False(t, s.Has(-1))
		assert.False(t, s.Has(24))
	})

	t.Run("sums and means skip missing hours", func(t *testing.T) {
		s := Empty()
		s.Set(0, 10)
		s.Set(1, -20)
		s.Set(23, 30)

		sum, n := s.Sum()
		assert.InDelta(t, 20.0, sum, 1e-9)
		assert.Equal(t, 3, n)

		sum, n = s.PartialSum(2)
		assert.InDelta(t, -10.0, sum, 1e-9)
		assert.Equal(t, 2, n)

		mean, ok := s.Mean()
		require.True(t, ok)
		assert.InDelta(t, 20.0/3, mean, 1e-9)

		mag, ok := s.MeanMagnitude()
		require.True(t, ok)
		assert.InDelta(t, 20.0, mag, 1e-9)
	})

	t.Run("mean of an empty series reports absence", func(t *testing.T) {
		s := Empty()
		_, ok := s.Mean()
		assert.False(t, ok)
		_, ok = s.MeanMagnitude()
		assert.False(t, ok)
	})
}

func TestHistory(t *testing.T) {
	day := func(v float64, count int) DaySample {
		d := Empty()
		for h := 0; h < HoursPerDay; h++ {
			d.Set(h, v)
		}
		return DaySample{Values: d, ReadingCount: count}
	}

	t.Run("valid filters by raw reading count", func(t *testing.T) {
		hist := History{day(10, 96), day(11, 12), day(12, 96)}
		valid := hist.Valid(50)
		require.Len(t, valid, 2)
		assert.InDelta(t, 10.0, valid[0].Values[0], 1e-9)
		assert.InDelta(t, 12.0, valid[1].Values[0], 1e-9)
	})

	t.Run("baseline averages per hour and keeps gaps missing", func(t *testing.T) {
		d1 := day(10, 96)
		d2 := day(20, 96)
		d1.Values.Clear(5)
		d2.Values.Clear(5)
		d2.Values.Clear(6)

		base := History{d1, d2}.Baseline()
		assert.InDelta(t, 15.0, base[0], 1e-9)
		assert.False(t, base.Has(5))
		assert.InDelta(t, 10.0, base[6], 1e-9)
	})

	t.Run("hour values pair with week indexes oldest first", func(t *testing.T) {
		d1 := day(10, 96)
		d2 := day(11, 96)
		d3 := day(12, 96)
		d2.Values.Clear(7)

		weeks, values := History{d1, d2, d3}.HourValues(7)
		assert.Equal(t, []float64{0, 2}, weeks)
		assert.Equal(t, []float64{10, 12}, values)
	})
}
