package topology

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

// testGraph builds:
//
//	1
//	├── 2
//	│   ├── 4
//	│   └── 5
//	└── 3
//
// with flow edges 4 -> 5 and 3 -> 4.
func testGraph() *Graph {
	nodes := []Node{
		{ID: 1, Active: true},
		{ID: 2, ParentID: uintPtr(1), Active: true},
		{ID: 3, ParentID: uintPtr(1), Active: true},
		{ID: 4, ParentID: uintPtr(2), Active: true},
		{ID: 5, ParentID: uintPtr(2), Active: true},
	}
	edges := []Edge{
		{Origin: 4, Dest: 5},
		{Origin: 3, Dest: 4},
	}
	return NewGraph(nodes, edges)
}

func TestDescendants(t *testing.T) {
	g := testGraph()

	assert.ElementsMatch(t, []uint{2, 3, 4, 5}, g.Descendants(1))
	assert.ElementsMatch(t, []uint{4, 5}, g.Descendants(2))
	assert.Empty(t, g.Descendants(4))
}

func TestIsDescendant(t *testing.T) {
	g := testGraph()

	assert.True(t, g.IsDescendant(4, 1))
	assert.True(t, g.IsDescendant(4, 2))
	assert.False(t, g.IsDescendant(2, 4))
	assert.False(t, g.IsDescendant(3, 2))
	// A node is not its own descendant.
	assert.False(t, g.IsDescendant(2, 2))
}

func TestWouldCycle(t *testing.T) {
	g := testGraph()

	t.Run("self reference is always circular", func(t *testing.T) {
		assert.True(t, g.WouldCycle(3, 3))
	})
	t.Run("descendant as parent is circular", func(t *testing.T) {
		assert.True(t, g.WouldCycle(1, 4))
		assert.True(t, g.WouldCycle(2, 5))
	})
	t.Run("lateral moves are fine", func(t *testing.T) {
		assert.False(t, g.WouldCycle(4, 3))
		assert.False(t, g.WouldCycle(3, 2))
	})
}

// TestAcyclicityUnderRandomMutations rebuilds the graph through a long run of
// random reparent operations, each first vetted by WouldCycle, and verifies
// no node ever becomes its own ancestor.
func TestAcyclicityUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	const nodeCount = 30
	parents := make(map[uint]*uint, nodeCount)
	for id := uint(1); id <= nodeCount; id++ {
		if id == 1 {
			parents[id] = nil
		} else {
			p := uint(rng.Intn(int(id-1))) + 1
			parents[id] = &p
		}
	}

	build := func() *Graph {
		nodes := make([]Node, 0, nodeCount)
		for id := uint(1); id <= nodeCount; id++ {
			nodes = append(nodes, Node{ID: id, ParentID: parents[id], Active: true})
		}
		return NewGraph(nodes, nil)
	}

	for i := 0; i < 2000; i++ {
		node := uint(rng.Intn(nodeCount)) + 1
		parent := uint(rng.Intn(nodeCount)) + 1

		g := build()
		if g.WouldCycle(node, parent) {
			continue
		}
		p := parent
		parents[node] = &p

		// Walking up from any node must terminate at a root.
		g = build()
		for id := uint(1); id <= nodeCount; id++ {
			steps := 0
			cur := id
			for {
				next, ok := g.Parent(cur)
				if !ok {
					break
				}
				cur = next
				steps++
				require.LessOrEqual(t, steps, nodeCount, "cycle reached from node %d after mutation %d", id, i)
			}
			assert.False(t, g.IsDescendant(id, id))
		}
	}
}

func TestSiblings(t *testing.T) {
	g := testGraph()

	assert.ElementsMatch(t, []uint{5}, g.Siblings(4))
	assert.ElementsMatch(t, []uint{3}, g.Siblings(2))
	assert.Empty(t, g.Siblings(1))
}

func TestFlowNeighbors(t *testing.T) {
	g := testGraph()

	// Flow connections are bidirectional for neighborhood purposes.
	assert.Equal(t, []uint{3, 5}, g.FlowNeighbors(4))
	assert.Equal(t, []uint{4}, g.FlowNeighbors(5))
	assert.Equal(t, []uint{4}, g.FlowNeighbors(3))
	assert.Empty(t, g.FlowNeighbors(1))
}
