package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/series"
)

func testSettings() *conf.DetectionSettings {
	return &conf.DetectionSettings{
		FlatlineRunHours: 3,
		SpikeFactor:      3.0,
		RangeMin:         0,
		RangeMax:         500,
	}
}

// fullDay returns a day with every hour present at the given value.
func fullDay(v float64) series.HourlySeries {
	day := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		day.Set(h, v)
	}
	return day
}

// variedDay returns a day whose values differ hour to hour.
func variedDay() series.HourlySeries {
	day := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		day.Set(h, 10.0+float64(h%5))
	}
	return day
}

func TestDetectGapsAndZeroed(t *testing.T) {
	readings := variedDay()
	readings.Clear(4)
	readings.Clear(5)
	readings.Set(9, 0)

	rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)

	assert.True(t, rec.Gap[4])
	assert.True(t, rec.Gap[5])
	assert.False(t, rec.Gap[6])
	assert.True(t, rec.Zeroed[9])
	assert.False(t, rec.Zeroed[10])
	assert.True(t, rec.Any())
}

func TestDetectFlatline(t *testing.T) {
	t.Run("run at the threshold is flagged", func(t *testing.T) {
		readings := variedDay()
		readings.Set(6, 12.4)
		readings.Set(7, 12.4)
		readings.Set(8, 12.4)

		rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)
		for h := 6; h <= 8; h++ {
			assert.True(t, rec.Flatlined[h], "hour %d", h)
		}
		assert.False(t, rec.Flatlined[5])
		assert.False(t, rec.Flatlined[9])
	})

	t.Run("run below the threshold passes", func(t *testing.T) {
		readings := variedDay()
		readings.Set(6, 12.4)
		readings.Set(7, 12.4)
		readings.Set(8, 13.0)

		rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)
		assert.False(t, rec.Flatlined[6])
		assert.False(t, rec.Flatlined[7])
	})

	t.Run("a run of zeros is zeroed, not flatlined", func(t *testing.T) {
		readings := variedDay()
		for h := 10; h <= 14; h++ {
			readings.Set(h, 0)
		}

		rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)
		for h := 10; h <= 14; h++ {
			assert.False(t, rec.Flatlined[h], "hour %d", h)
			assert.True(t, rec.Zeroed[h], "hour %d", h)
		}
	})

	t.Run("a gap splits the run", func(t *testing.T) {
		readings := variedDay()
		readings.Set(6, 12.4)
		readings.Set(7, 12.4)
		readings.Clear(8)
		readings.Set(9, 12.4)
		readings.Set(10, 12.4)

		rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)
		assert.False(t, rec.Flatlined[6])
		assert.False(t, rec.Flatlined[9])
	})
}

func TestDetectOutOfRange(t *testing.T) {
	settings := testSettings()
	settings.RangeMin = 1.0

	readings := variedDay()
	readings.Set(2, 0.4)
	readings.Set(3, 720.0)

	rec := Detect(1, "2025-06-30", &readings, nil, settings, 50)
	assert.True(t, rec.OutOfRange[2])
	assert.True(t, rec.OutOfRange[3])
	assert.False(t, rec.OutOfRange[4])
}

func TestDetectSpikes(t *testing.T) {
	hist := series.History{
		{Values: fullDay(10.0), ReadingCount: 96},
		{Values: fullDay(10.0), ReadingCount: 96},
		{Values: fullDay(10.0), ReadingCount: 96},
	}

	t.Run("above and below the baseline band", func(t *testing.T) {
		readings := fullDay(10.0)
		readings.Set(5, 40.0) // above 10*3
		readings.Set(6, 2.0)  // below 10/3
		readings.Set(7, 25.0) // within the band

		rec := Detect(1, "2025-06-30", &readings, &hist, testSettings(), 50)
		assert.True(t, rec.Spike[5])
		assert.True(t, rec.Spike[6])
		assert.False(t, rec.Spike[7])
	})

	t.Run("no history disables spike detection", func(t *testing.T) {
		readings := fullDay(10.0)
		readings.Set(5, 40.0)

		rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)
		assert.False(t, rec.Spike[5])
		assert.False(t, rec.Any())
	})
}

func TestTypePrecedence(t *testing.T) {
	rec := &Record{}
	rec.Spike[3] = true
	rec.Flatlined[3] = true
	rec.Zeroed[3] = true
	rec.OutOfRange[3] = true
	rec.Gap[3] = true

	cases := []struct {
		clear func()
		want  Type
	}{
		{func() {}, TypeGap},
		{func() { rec.Gap[3] = false }, TypeOutOfRange},
		{func() { rec.OutOfRange[3] = false }, TypeZeroed},
		{func() { rec.Zeroed[3] = false }, TypeFlatline},
		{func() { rec.Flatlined[3] = false }, TypeSpike},
	}
	for _, tc := range cases {
		tc.clear()
		got, ok := rec.TypeAt(3)
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
	}

	rec.Spike[3] = false
	_, ok := rec.TypeAt(3)
	assert.False(t, ok)
}

func TestMergePredictor(t *testing.T) {
	readings := variedDay()
	readings.Clear(2)
	rec := Detect(1, "2025-06-30", &readings, nil, testSettings(), 50)

	flags := Flags{}
	flags[2] = true // already a gap, must not become a spike
	flags[8] = true

	rec.MergePredictor(&flags)
	assert.False(t, rec.Spike[2])
	assert.True(t, rec.Spike[8])
	assert.True(t, rec.Anomalous[8])
	got, _ := rec.TypeAt(8)
	assert.Equal(t, TypeSpike, got)

	rec.MergePredictor(nil) // no-op
}
