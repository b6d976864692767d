// Package topology models the hydraulic network as an id-keyed arena graph.
//
// Nodes form a parent/child tree ("belongs to") and directed flow connections
// form a separate edge set ("flows to"). The arena representation keeps every
// traversal an explicit BFS over id references, so cycle checks never depend
// on pointer recursion.
package topology

import "sort"

// Node is the in-memory projection of a topology node row.
type Node struct {
	ID       uint
	ParentID *uint // nil means root
	Active   bool
}

// Edge is a directed hydraulic flow connection between two nodes.
type Edge struct {
	Origin uint
	Dest   uint
}

// Graph is an immutable snapshot of the topology, safe for concurrent reads.
type Graph struct {
	nodes    map[uint]Node
	children map[uint][]uint
	edges    []Edge
}

// NewGraph builds a graph snapshot from node and edge rows.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes:    make(map[uint]Node, len(nodes)),
		children: make(map[uint][]uint),
		edges:    edges,
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID != nil {
			g.children[*n.ParentID] = append(g.children[*n.ParentID], n.ID)
		}
	}
	for id := range g.children {
		sort.Slice(g.children[id], func(i, j int) bool { return g.children[id][i] < g.children[id][j] })
	}
	return g
}

// Has reports whether the graph contains a node with the given id.
func (g *Graph) Has(id uint) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id uint) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Children returns the direct children of a node.
func (g *Graph) Children(id uint) []uint {
	return g.children[id]
}

// Parent returns the parent of a node, or false for roots and unknown ids.
func (g *Graph) Parent(id uint) (uint, bool) {
	n, ok := g.nodes[id]
	if !ok || n.ParentID == nil {
		return 0, false
	}
	return *n.ParentID, true
}

// Descendants returns the full descendant set of a node, excluding the node
// itself, via breadth-first traversal of the child index.
func (g *Graph) Descendants(id uint) []uint {
	var out []uint
	seen := map[uint]bool{id: true}
	queue := append([]uint(nil), g.children[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, g.children[cur]...)
	}
	return out
}

// IsDescendant reports whether candidate is in the descendant set of `of`.
func (g *Graph) IsDescendant(candidate, of uint) bool {
	if candidate == of {
		return false
	}
	queue := append([]uint(nil), g.children[of]...)
	seen := map[uint]bool{of: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == candidate {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, g.children[cur]...)
	}
	return false
}

// WouldCycle reports whether attaching node under parent would make the node
// its own ancestor. Self-reference is always circular.
func (g *Graph) WouldCycle(node, parent uint) bool {
	if node == parent {
		return true
	}
	return g.IsDescendant(parent, node)
}

// Siblings returns the other children of the node's parent.
func (g *Graph) Siblings(id uint) []uint {
	parent, ok := g.Parent(id)
	if !ok {
		return nil
	}
	var out []uint
	for _, c := range g.children[parent] {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// FlowNeighbors returns the nodes connected to id by a flow connection in
// either direction. Neighbor relations are bidirectional: water arriving or
// leaving both make the nodes hydraulically adjacent.
func (g *Graph) FlowNeighbors(id uint) []uint {
	var out []uint
	seen := map[uint]bool{id: true}
	for _, e := range g.edges {
		var other uint
		switch id {
		case e.Origin:
			other = e.Dest
		case e.Dest:
			other = e.Origin
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
