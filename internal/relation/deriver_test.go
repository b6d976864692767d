package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/topology"
)

func uintPtr(v uint) *uint { return &v }

// deriverGraph builds a plant (1) with two outlet sectors (2, 3) and a
// downstream node (4) fed by sector 3.
func deriverGraph(inactive ...uint) *topology.Graph {
	off := make(map[uint]bool)
	for _, id := range inactive {
		off[id] = true
	}
	nodes := []topology.Node{
		{ID: 1, Active: !off[1]},
		{ID: 2, ParentID: uintPtr(1), Active: !off[2]},
		{ID: 3, ParentID: uintPtr(1), Active: !off[3]},
		{ID: 4, ParentID: uintPtr(3), Active: !off[4]},
	}
	edges := []topology.Edge{
		{Origin: 3, Dest: 4},
	}
	return topology.NewGraph(nodes, edges)
}

func macroPoints() map[uint]PointInfo {
	return map[uint]PointInfo{
		2: {Tag: "FT-201", MeterKind: conf.MeterMacro},
		3: {Tag: "FT-202", MeterKind: conf.MeterPitometric},
		4: {Tag: "PT-310", MeterKind: conf.MeterPressure},
	}
}

func TestDerive(t *testing.T) {
	t.Run("siblings and flow connections pair up", func(t *testing.T) {
		pairs := Derive(deriverGraph(), macroPoints())

		assert.Equal(t, []Pair{
			{Principal: "FT-201", Auxiliary: "FT-202"},
			{Principal: "FT-202", Auxiliary: "PT-310"},
		}, pairs)
	})

	t.Run("symmetric pairs collapse to one orientation", func(t *testing.T) {
		// The flow edge 3 -> 4 is visited from both endpoints; only the
		// lexicographic orientation survives.
		pairs := Derive(deriverGraph(), macroPoints())
		seen := make(map[string]bool)
		for _, p := range pairs {
			assert.Less(t, p.Principal, p.Auxiliary)
			key := p.Principal + "|" + p.Auxiliary
			assert.False(t, seen[key])
			seen[key] = true
		}
	})

	t.Run("hydrometers are excluded", func(t *testing.T) {
		points := macroPoints()
		points[4] = PointInfo{Tag: "HD-001", MeterKind: conf.MeterHydrometer}

		pairs := Derive(deriverGraph(), points)
		assert.Equal(t, []Pair{
			{Principal: "FT-201", Auxiliary: "FT-202"},
		}, pairs)
	})

	t.Run("inactive nodes drop out", func(t *testing.T) {
		pairs := Derive(deriverGraph(3), macroPoints())
		assert.Empty(t, pairs)
	})

	t.Run("nodes without a linked point drop out", func(t *testing.T) {
		points := macroPoints()
		delete(points, 2)

		pairs := Derive(deriverGraph(), points)
		assert.Equal(t, []Pair{
			{Principal: "FT-202", Auxiliary: "PT-310"},
		}, pairs)
	})
}

func TestSyncCheck(t *testing.T) {
	existing := []Pair{
		{Principal: "FT-201", Auxiliary: "FT-202"},
		{Principal: "FT-202", Auxiliary: "PT-099"},
	}
	derived := []Pair{
		{Principal: "FT-201", Auxiliary: "FT-202"},
		{Principal: "FT-202", Auxiliary: "PT-310"},
	}

	diff := SyncCheck(existing, derived)
	assert.Equal(t, []Pair{{Principal: "FT-202", Auxiliary: "PT-310"}}, diff.ToAdd)
	assert.Equal(t, []Pair{{Principal: "FT-202", Auxiliary: "PT-099"}}, diff.ToRemove)
	assert.Equal(t, []Pair{{Principal: "FT-201", Auxiliary: "FT-202"}}, diff.Unchanged)

	t.Run("identical sets are a clean diff", func(t *testing.T) {
		diff := SyncCheck(derived, derived)
		assert.Empty(t, diff.ToAdd)
		assert.Empty(t, diff.ToRemove)
		assert.Len(t, diff.Unchanged, 2)
	})
}
