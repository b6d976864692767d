// topology.go: topology node and flow connection persistence
package datastore

import (
	"fmt"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/topology"
	"gorm.io/gorm"
)

// TopologySnapshot loads the whole topology into an immutable graph arena.
// Batch runs and cycle checks traverse the snapshot, never the database.
func (ds *DataStore) TopologySnapshot() (*topology.Graph, error) {
	var rows []TopologyNode
	if err := ds.DB.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading topology nodes: %w", err)
	}
	var conns []FlowConnection
	if err := ds.DB.Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("loading flow connections: %w", err)
	}

	nodes := make([]topology.Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, topology.Node{ID: r.ID, ParentID: r.ParentID, Active: r.Active})
	}
	edges := make([]topology.Edge, 0, len(conns))
	for _, c := range conns {
		edges = append(edges, topology.Edge{Origin: c.OriginNodeID, Dest: c.DestNodeID})
	}
	return topology.NewGraph(nodes, edges), nil
}

// GetNode retrieves a topology node by id.
func (ds *DataStore) GetNode(id uint) (TopologyNode, error) {
	var node TopologyNode
	if err := ds.DB.First(&node, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TopologyNode{}, errors.ErrNotFound
		}
		return TopologyNode{}, fmt.Errorf("getting node %d: %w", id, err)
	}
	return node, nil
}

// ListNodes returns all topology node rows.
func (ds *DataStore) ListNodes() ([]TopologyNode, error) {
	var rows []TopologyNode
	if err := ds.DB.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading topology nodes: %w", err)
	}
	return rows, nil
}

// GetFlowConnections returns all directed flow connections.
func (ds *DataStore) GetFlowConnections() ([]FlowConnection, error) {
	var conns []FlowConnection
	if err := ds.DB.Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("loading flow connections: %w", err)
	}
	return conns, nil
}

// AttachNode creates a new topology node. When the node carries a parent,
// the parent must exist and must not be a descendant of the node (which for a
// new node only rejects self-reference, but the same check guards MoveNode).
// Position defaults to the next free index in the sibling group.
func (ds *DataStore) AttachNode(node *TopologyNode) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if node.ParentID != nil {
			var parent TopologyNode
			if err := tx.First(&parent, *node.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.New(fmt.Errorf("parent node %d does not exist", *node.ParentID)).
						Component("datastore").
						Category(errors.CategoryValidation).
						Build()
				}
				return err
			}
			if node.ID != 0 && (*node.ParentID == node.ID || wouldCycle(tx, node.ID, *node.ParentID)) {
				return circularReference(node.ID, *node.ParentID)
			}
		}

		if node.Position == 0 {
			node.Position = nextSiblingPosition(tx, node.ParentID)
		}
		node.Active = true

		if err := tx.Create(node).Error; err != nil {
			return fmt.Errorf("creating topology node: %w", err)
		}

		getLogger().Info("topology node attached",
			"node_id", node.ID, "parent_id", ptrOrNil(node.ParentID), "position", node.Position)
		return nil
	})
}

// MoveNode reparents an existing node. Fails with ErrCircularReference when
// the candidate parent is the node itself or one of its descendants.
func (ds *DataStore) MoveNode(nodeID uint, newParentID *uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var node TopologyNode
		if err := tx.First(&node, nodeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrNotFound
			}
			return err
		}

		if newParentID != nil {
			if *newParentID == nodeID || wouldCycle(tx, nodeID, *newParentID) {
				return circularReference(nodeID, *newParentID)
			}
			var parent TopologyNode
			if err := tx.First(&parent, *newParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.New(fmt.Errorf("parent node %d does not exist", *newParentID)).
						Component("datastore").
						Category(errors.CategoryValidation).
						Build()
				}
				return err
			}
		}

		oldParent := node.ParentID
		updates := map[string]any{
			"parent_id": newParentID,
			"position":  nextSiblingPosition(tx, newParentID),
		}
		if err := tx.Model(&TopologyNode{}).Where("id = ?", nodeID).Updates(updates).Error; err != nil {
			return fmt.Errorf("moving node %d: %w", nodeID, err)
		}

		getLogger().Info("topology node moved",
			"node_id", nodeID, "old_parent", ptrOrNil(oldParent), "new_parent", ptrOrNil(newParentID))
		return nil
	})
}

// SoftDeleteNode deactivates a node and, when cascade is set, all of its
// descendants. Rows are never removed. Returns the number of deactivated nodes.
func (ds *DataStore) SoftDeleteNode(nodeID uint, cascade bool) (int, error) {
	deactivated := 0
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		graph, err := snapshotTx(tx)
		if err != nil {
			return err
		}
		if !graph.Has(nodeID) {
			return errors.ErrNotFound
		}

		ids := []uint{nodeID}
		if cascade {
			ids = append(ids, graph.Descendants(nodeID)...)
		}

		res := tx.Model(&TopologyNode{}).
			Where("id IN ? AND active = ?", ids, true).
			Update("active", false)
		if res.Error != nil {
			return fmt.Errorf("deactivating nodes: %w", res.Error)
		}
		deactivated = int(res.RowsAffected)

		getLogger().Info("topology node soft-deleted",
			"node_id", nodeID, "cascade", cascade, "deactivated", deactivated)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}

// RestoreNode reactivates a node, refusing when its parent is inactive, and
// optionally cascades to previously deactivated descendants.
func (ds *DataStore) RestoreNode(nodeID uint, includeDescendants bool) (int, error) {
	restored := 0
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		graph, err := snapshotTx(tx)
		if err != nil {
			return err
		}
		node, ok := graph.Node(nodeID)
		if !ok {
			return errors.ErrNotFound
		}
		if node.ParentID != nil {
			if parent, ok := graph.Node(*node.ParentID); ok && !parent.Active {
				return errors.New(errors.ErrParentInactive).
					Component("datastore").
					Category(errors.CategoryTopology).
					Context("node_id", nodeID).
					Context("parent_id", *node.ParentID).
					Build()
			}
		}

		ids := []uint{nodeID}
		if includeDescendants {
			ids = append(ids, graph.Descendants(nodeID)...)
		}

		res := tx.Model(&TopologyNode{}).
			Where("id IN ? AND active = ?", ids, false).
			Update("active", true)
		if res.Error != nil {
			return fmt.Errorf("restoring nodes: %w", res.Error)
		}
		restored = int(res.RowsAffected)

		getLogger().Info("topology node restored",
			"node_id", nodeID, "include_descendants", includeDescendants, "restored", restored)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return restored, nil
}

// HardDeleteCascade removes the node, its full descendant set and every flow
// connection touching any of them, inside one transaction. All-or-nothing.
func (ds *DataStore) HardDeleteCascade(nodeID uint) (int, error) {
	deleted := 0
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		graph, err := snapshotTx(tx)
		if err != nil {
			return err
		}
		if !graph.Has(nodeID) {
			return errors.ErrNotFound
		}

		descendants := graph.Descendants(nodeID)
		all := append([]uint{nodeID}, descendants...)

		if err := tx.Where("origin_node_id IN ? OR dest_node_id IN ?", all, all).
			Delete(&FlowConnection{}).Error; err != nil {
			return fmt.Errorf("deleting flow connections: %w", err)
		}

		// Delete descendants bottom-up so no row ever references a removed
		// parent, then the node itself.
		for i := len(descendants) - 1; i >= 0; i-- {
			if err := tx.Delete(&TopologyNode{}, descendants[i]).Error; err != nil {
				return fmt.Errorf("deleting descendant node %d: %w", descendants[i], err)
			}
		}
		if err := tx.Delete(&TopologyNode{}, nodeID).Error; err != nil {
			return fmt.Errorf("deleting node %d: %w", nodeID, err)
		}
		deleted = len(all)

		getLogger().Info("topology node hard-deleted",
			"node_id", nodeID, "deleted", deleted)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Descendants returns the transitive descendant set of a node.
func (ds *DataStore) Descendants(nodeID uint) ([]uint, error) {
	graph, err := ds.TopologySnapshot()
	if err != nil {
		return nil, err
	}
	if !graph.Has(nodeID) {
		return nil, errors.ErrNotFound
	}
	return graph.Descendants(nodeID), nil
}

// IsDescendant reports whether candidateID is a descendant of ofID.
func (ds *DataStore) IsDescendant(candidateID, ofID uint) (bool, error) {
	graph, err := ds.TopologySnapshot()
	if err != nil {
		return false, err
	}
	return graph.IsDescendant(candidateID, ofID), nil
}

// snapshotTx builds a graph arena within a transaction, so cascade decisions
// and the writes they drive see the same rows.
func snapshotTx(tx *gorm.DB) (*topology.Graph, error) {
	var rows []TopologyNode
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading topology nodes: %w", err)
	}
	var conns []FlowConnection
	if err := tx.Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("loading flow connections: %w", err)
	}
	nodes := make([]topology.Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, topology.Node{ID: r.ID, ParentID: r.ParentID, Active: r.Active})
	}
	edges := make([]topology.Edge, 0, len(conns))
	for _, c := range conns {
		edges = append(edges, topology.Edge{Origin: c.OriginNodeID, Dest: c.DestNodeID})
	}
	return topology.NewGraph(nodes, edges), nil
}

func wouldCycle(tx *gorm.DB, nodeID, parentID uint) bool {
	graph, err := snapshotTx(tx)
	if err != nil {
		// Fail closed: an unreadable topology must not admit a mutation.
		return true
	}
	return graph.WouldCycle(nodeID, parentID)
}

func circularReference(nodeID, parentID uint) error {
	return errors.New(errors.ErrCircularReference).
		Component("datastore").
		Category(errors.CategoryTopology).
		Context("node_id", nodeID).
		Context("parent_id", parentID).
		Build()
}

func nextSiblingPosition(tx *gorm.DB, parentID *uint) int {
	var maxPos struct{ Max int }
	q := tx.Model(&TopologyNode{}).Select("COALESCE(MAX(position), 0) as max")
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.Scan(&maxPos).Error; err != nil {
		return 1
	}
	return maxPos.Max + 1
}

func ptrOrNil(v *uint) any {
	if v == nil {
		return nil
	}
	return *v
}
