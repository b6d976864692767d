// topology.go: hydraulic topology maintenance endpoints
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/datastore"
)

// initTopologyRoutes registers topology maintenance endpoints.
func (c *Controller) initTopologyRoutes() {
	c.Group.GET("/topology/nodes", c.ListTopologyNodes)
	c.Group.GET("/topology/nodes/:id", c.GetTopologyNode)
	c.Group.GET("/topology/nodes/:id/descendants", c.GetNodeDescendants)
	c.Group.POST("/topology/nodes", c.AttachTopologyNode)
	c.Group.POST("/topology/nodes/:id/move", c.MoveTopologyNode)
	c.Group.DELETE("/topology/nodes/:id", c.SoftDeleteTopologyNode)
	c.Group.POST("/topology/nodes/:id/restore", c.RestoreTopologyNode)
	c.Group.DELETE("/topology/nodes/:id/cascade", c.HardDeleteTopologyNode)
}

// ListTopologyNodes returns every topology node, active or not.
func (c *Controller) ListTopologyNodes(ctx echo.Context) error {
	nodes, err := c.DS.ListNodes()
	if err != nil {
		return c.HandleError(ctx, err, "failed to list topology nodes", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, nodes)
}

// GetTopologyNode returns one node by id.
func (c *Controller) GetTopologyNode(ctx echo.Context) error {
	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}
	node, err := c.DS.GetNode(id)
	if err != nil {
		return c.HandleError(ctx, err, "node not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, node)
}

// GetNodeDescendants returns the transitive descendant ids of a node.
func (c *Controller) GetNodeDescendants(ctx echo.Context) error {
	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}
	ids, err := c.DS.Descendants(id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to compute descendants", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"nodeId": id, "descendants": ids})
}

// AttachNodeRequest creates a new topology node.
type AttachNodeRequest struct {
	Name     string `json:"name"`
	ParentID *uint  `json:"parentId,omitempty"`
	Level    string `json:"level"`
	PointID  *uint  `json:"pointId,omitempty"`
	Position int    `json:"position,omitempty"`
}

// AttachTopologyNode attaches a node under a parent. Attachments that would
// close a cycle are rejected.
func (c *Controller) AttachTopologyNode(ctx echo.Context) error {
	if err := c.requireTopologyWrite(ctx); err != nil {
		return c.HandleError(ctx, err, "not authorized to edit topology", http.StatusForbidden)
	}

	var req AttachNodeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Name == "" {
		return c.HandleError(ctx, nil, "name is required", http.StatusBadRequest)
	}

	node := &datastore.TopologyNode{
		Name:     req.Name,
		ParentID: req.ParentID,
		Level:    req.Level,
		PointID:  req.PointID,
		Position: req.Position,
	}
	if err := c.DS.AttachNode(node); err != nil {
		return c.HandleError(ctx, err, "failed to attach node", http.StatusInternalServerError)
	}
	c.auditLog(ctx, "topology node attached", "node_id", node.ID, "parent_id", req.ParentID)
	return ctx.JSON(http.StatusCreated, node)
}

// MoveNodeRequest moves a node under a new parent; nil detaches it to a root.
type MoveNodeRequest struct {
	NewParentID *uint `json:"newParentId"`
}

// MoveTopologyNode reparents a node, rejecting moves that would close a cycle.
func (c *Controller) MoveTopologyNode(ctx echo.Context) error {
	if err := c.requireTopologyWrite(ctx); err != nil {
		return c.HandleError(ctx, err, "not authorized to edit topology", http.StatusForbidden)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}
	var req MoveNodeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	if err := c.DS.MoveNode(id, req.NewParentID); err != nil {
		return c.HandleError(ctx, err, "failed to move node", http.StatusInternalServerError)
	}
	node, err := c.DS.GetNode(id)
	if err != nil {
		return c.HandleError(ctx, err, "node not found after move", http.StatusInternalServerError)
	}
	c.auditLog(ctx, "topology node moved", "node_id", id, "new_parent_id", req.NewParentID)
	return ctx.JSON(http.StatusOK, node)
}

// SoftDeleteTopologyNode deactivates a node and, unless cascade=false, its
// descendants. Rows are never deleted.
func (c *Controller) SoftDeleteTopologyNode(ctx echo.Context) error {
	if err := c.requireTopologyWrite(ctx); err != nil {
		return c.HandleError(ctx, err, "not authorized to edit topology", http.StatusForbidden)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}
	cascade := true
	if v := ctx.QueryParam("cascade"); v != "" {
		cascade, err = strconv.ParseBool(v)
		if err != nil {
			return c.HandleError(ctx, err, "invalid cascade parameter", http.StatusBadRequest)
		}
	}

	count, err := c.DS.SoftDeleteNode(id, cascade)
	if err != nil {
		return c.HandleError(ctx, err, "failed to soft-delete node", http.StatusInternalServerError)
	}
	c.auditLog(ctx, "topology node deactivated", "node_id", id, "cascade", cascade, "count", count)
	return ctx.JSON(http.StatusOK, map[string]any{"deactivatedCount": count})
}

// RestoreTopologyNode reactivates a node and, unless descendants=false, its
// descendants. Fails when the node's parent is inactive.
func (c *Controller) RestoreTopologyNode(ctx echo.Context) error {
	if err := c.requireTopologyWrite(ctx); err != nil {
		return c.HandleError(ctx, err, "not authorized to edit topology", http.StatusForbidden)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}
	includeDescendants := true
	if v := ctx.QueryParam("descendants"); v != "" {
		includeDescendants, err = strconv.ParseBool(v)
		if err != nil {
			return c.HandleError(ctx, err, "invalid descendants parameter", http.StatusBadRequest)
		}
	}

	count, err := c.DS.RestoreNode(id, includeDescendants)
	if err != nil {
		return c.HandleError(ctx, err, "failed to restore node", http.StatusInternalServerError)
	}
	c.auditLog(ctx, "topology node restored", "node_id", id, "descendants", includeDescendants, "count", count)
	return ctx.JSON(http.StatusOK, map[string]any{"restoredCount": count})
}

// HardDeleteTopologyNode permanently deletes a node, its descendants and
// every flow connection touching them, in a single transaction.
func (c *Controller) HardDeleteTopologyNode(ctx echo.Context) error {
	if err := c.requireTopologyWrite(ctx); err != nil {
		return c.HandleError(ctx, err, "not authorized to edit topology", http.StatusForbidden)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid node id", http.StatusBadRequest)
	}

	count, err := c.DS.HardDeleteCascade(id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to hard-delete node", http.StatusInternalServerError)
	}
	c.auditLog(ctx, "topology node hard-deleted", "node_id", id, "count", count)
	return ctx.JSON(http.StatusOK, map[string]any{"deletedCount": count})
}

func (c *Controller) requireTopologyWrite(ctx echo.Context) error {
	return authz.Require(ctx.Request().Context(), c.Auth, authz.ActionTopologyWrite)
}
