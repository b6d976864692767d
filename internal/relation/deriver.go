// Package relation flattens the topology graph into the principal/auxiliary
// tag pairs consumed by ML training and anomaly classification.
package relation

import (
	"context"
	"sort"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/topology"
)

// PointInfo is what the deriver needs to know about the measurement point
// linked to a topology node.
type PointInfo struct {
	Tag       string
	MeterKind conf.MeterKind
}

// Pair is one derived relation in canonical orientation.
type Pair struct {
	Principal string `json:"principal"`
	Auxiliary string `json:"auxiliary"`
}

// Diff is the outcome of comparing the persisted relation table against a
// fresh derivation.
type Diff struct {
	ToAdd     []Pair `json:"toAdd"`
	ToRemove  []Pair `json:"toRemove"`
	Unchanged []Pair `json:"unchanged"`
}

// Derive computes the relation pairs from a topology snapshot. Two rules
// produce neighbors: direct flow connections in either direction, and
// siblings sharing a parent (two outlets of the same plant). Only active
// nodes whose point kind is relation-eligible participate; symmetric pairs
// are deduplicated into lexicographic orientation.
func Derive(g *topology.Graph, points map[uint]PointInfo) []Pair {
	eligible := make(map[conf.MeterKind]bool)
	for _, k := range conf.RelationEligibleKinds() {
		eligible[k] = true
	}

	tagOf := func(nodeID uint) (string, bool) {
		node, ok := g.Node(nodeID)
		if !ok || !node.Active {
			return "", false
		}
		info, ok := points[nodeID]
		if !ok || info.Tag == "" || !eligible[info.MeterKind] {
			return "", false
		}
		return info.Tag, true
	}

	seen := make(map[Pair]bool)
	var out []Pair
	emit := func(a, b string) {
		if a == b {
			return
		}
		p := Pair{Principal: a, Auxiliary: b}
		if b < a {
			p = Pair{Principal: b, Auxiliary: a}
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for nodeID := range points {
		tag, ok := tagOf(nodeID)
		if !ok {
			continue
		}
		for _, neighborID := range g.FlowNeighbors(nodeID) {
			if ntag, ok := tagOf(neighborID); ok {
				emit(tag, ntag)
			}
		}
		for _, siblingID := range g.Siblings(nodeID) {
			if stag, ok := tagOf(siblingID); ok {
				emit(tag, stag)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Principal != out[j].Principal {
			return out[i].Principal < out[j].Principal
		}
		return out[i].Auxiliary < out[j].Auxiliary
	})
	return out
}

// SyncCheck diffs the persisted relation table against a fresh derivation.
// Pure function, no side effects; Apply performs the writes separately after
// explicit operator confirmation.
func SyncCheck(existing, derived []Pair) Diff {
	have := make(map[Pair]bool, len(existing))
	for _, p := range existing {
		have[p] = true
	}
	want := make(map[Pair]bool, len(derived))
	for _, p := range derived {
		want[p] = true
	}

	var diff Diff
	for _, p := range derived {
		if have[p] {
			diff.Unchanged = append(diff.Unchanged, p)
		} else {
			diff.ToAdd = append(diff.ToAdd, p)
		}
	}
	for _, p := range existing {
		if !want[p] {
			diff.ToRemove = append(diff.ToRemove, p)
		}
	}
	return diff
}

// Deriver wires the pure derivation against the datastore and the permission
// layer.
type Deriver struct {
	DS   datastore.Interface
	Auth authz.Service
}

// Check derives the relations from the current topology and diffs them
// against the persisted table.
func (d *Deriver) Check() (Diff, error) {
	graph, err := d.DS.TopologySnapshot()
	if err != nil {
		return Diff{}, err
	}

	points, err := d.pointsByNode()
	if err != nil {
		return Diff{}, err
	}

	existingRows, err := d.DS.GetDerivedRelations()
	if err != nil {
		return Diff{}, err
	}
	existing := make([]Pair, 0, len(existingRows))
	for _, r := range existingRows {
		existing = append(existing, Pair{Principal: r.PrincipalTag, Auxiliary: r.AuxiliaryTag})
	}

	return SyncCheck(existing, Derive(graph, points)), nil
}

// Apply persists a previously reviewed diff. It is never triggered by
// topology edits on its own; the operator confirms the diff first.
func (d *Deriver) Apply(ctx context.Context, diff Diff) error {
	if err := authz.Require(ctx, d.Auth, authz.ActionRelationApply); err != nil {
		return err
	}

	toAdd := make([]datastore.DerivedRelation, 0, len(diff.ToAdd))
	for _, p := range diff.ToAdd {
		toAdd = append(toAdd, datastore.DerivedRelation{PrincipalTag: p.Principal, AuxiliaryTag: p.Auxiliary})
	}
	toRemove := make([]datastore.DerivedRelation, 0, len(diff.ToRemove))
	for _, p := range diff.ToRemove {
		toRemove = append(toRemove, datastore.DerivedRelation{PrincipalTag: p.Principal, AuxiliaryTag: p.Auxiliary})
	}
	return d.DS.ApplyRelationSync(toAdd, toRemove)
}

// pointsByNode maps topology node ids to the telemetry tag and meter kind of
// their linked measurement point.
func (d *Deriver) pointsByNode() (map[uint]PointInfo, error) {
	nodes, err := d.DS.ListNodes()
	if err != nil {
		return nil, err
	}
	activePoints, err := d.DS.GetActivePoints()
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]datastore.MeasurementPoint, len(activePoints))
	for _, p := range activePoints {
		byID[p.ID] = p
	}

	points := make(map[uint]PointInfo)
	for _, n := range nodes {
		if n.PointID == nil {
			continue
		}
		if point, ok := byID[*n.PointID]; ok {
			points[n.ID] = PointInfo{Tag: point.TelemetryTag, MeterKind: conf.MeterKind(point.MeterKind)}
		}
	}
	return points, nil
}
