package estimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// inputWithReadings builds an Input where the given hours carry values and
// every other hour is flagged anomalous (and missing).
func inputWithReadings(values map[int]float64) *Input {
	in := &Input{Readings: series.Empty()}
	for h := 0; h < series.HoursPerDay; h++ {
		in.Anomalous[h] = true
	}
	for h, v := range values {
		in.Readings.Set(h, v)
		in.Anomalous[h] = false
	}
	return in
}

func TestPCHIPNoOvershoot(t *testing.T) {
	// Anchors (0,10), (5,10), (10,0): a naive cubic spline dips below zero
	// between hours 5 and 10; the monotone interpolant must not.
	in := inputWithReadings(map[int]float64{0: 10, 5: 10, 10: 0})

	m := &PCHIPMethod{}
	out, meta, err := m.Estimate(t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, MethodPCHIP, meta.Method)

	v := out[7]
	require.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 10.0)

	// Every interpolated hour stays inside the anchor value range.
	for h := 0; h < series.HoursPerDay; h++ {
		if out.Has(h) {
			assert.GreaterOrEqual(t, out[h], 0.0, "hour %d", h)
			assert.LessOrEqual(t, out[h], 10.0, "hour %d", h)
		}
	}
}

func TestPCHIPMonotoneSegments(t *testing.T) {
	// Strictly increasing anchors must yield a monotone curve on every
	// interpolated interval between them. Anchor hours themselves carry
	// held-out predictions and are covered separately.
	values := map[int]float64{0: 0, 6: 6, 12: 30, 18: 60}
	in := inputWithReadings(values)

	m := &PCHIPMethod{}
	out, _, err := m.Estimate(t.Context(), in)
	require.NoError(t, err)

	anchors := []int{0, 6, 12, 18}
	for s := 0; s < len(anchors)-1; s++ {
		lo, hi := anchors[s], anchors[s+1]
		prev := values[lo]
		for h := lo + 1; h < hi; h++ {
			require.True(t, out.Has(h), "hour %d", h)
			assert.GreaterOrEqual(t, out[h]+1e-9, prev, "hour %d", h)
			assert.LessOrEqual(t, out[h], values[hi]+1e-9, "hour %d", h)
			prev = out[h]
		}
	}
}

func TestPCHIPAnchorHoursHoldOutTheReading(t *testing.T) {
	// Anchor hours are re-estimated from the remaining anchors so adherence
	// scoring compares a genuine prediction against the actual reading. Edge
	// anchors therefore take flat extrapolation from the nearest survivor.
	in := inputWithReadings(map[int]float64{0: 0, 6: 6, 12: 30, 18: 60})

	m := &PCHIPMethod{}
	out, _, err := m.Estimate(t.Context(), in)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, out[0], 1e-9)
	assert.InDelta(t, 30.0, out[18], 1e-9)

	// Interior anchors follow the surrounding trend, not the held-out value.
	assert.Greater(t, out[6], 6.0)
	assert.Less(t, out[12], 60.0)
	assert.Greater(t, out[12], 6.0)
}

func TestPCHIPFlatExtrapolation(t *testing.T) {
	in := inputWithReadings(map[int]float64{6: 4, 10: 8, 14: 8})

	m := &PCHIPMethod{}
	out, _, err := m.Estimate(t.Context(), in)
	require.NoError(t, err)

	// Outside the anchor domain the curve holds the edge value.
	assert.InDelta(t, 4.0, out[0], 1e-9)
	assert.InDelta(t, 8.0, out[23], 1e-9)
}

func TestPCHIPInsufficientAnchors(t *testing.T) {
	in := inputWithReadings(map[int]float64{12: 5})

	m := &PCHIPMethod{}
	_, _, err := m.Estimate(t.Context(), in)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}
