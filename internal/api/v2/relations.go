// relations.go: derived ML relation check and apply endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aquatel/hydronet-go/internal/relation"
)

// initRelationRoutes registers relation sync endpoints.
func (c *Controller) initRelationRoutes() {
	c.Group.GET("/relations/check", c.CheckRelations)
	c.Group.POST("/relations/apply", c.ApplyRelations)
}

// CheckRelations derives the relation pairs from the current topology and
// diffs them against the persisted table. Read-only.
func (c *Controller) CheckRelations(ctx echo.Context) error {
	diff, err := c.Deriver.Check()
	if err != nil {
		return c.HandleError(ctx, err, "failed to check relations", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, diff)
}

// ApplyRelations persists an operator-confirmed relation diff. The diff is
// re-derived server-side so stale client copies cannot be applied.
func (c *Controller) ApplyRelations(ctx echo.Context) error {
	var req relation.Diff
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	current, err := c.Deriver.Check()
	if err != nil {
		return c.HandleError(ctx, err, "failed to derive relations", http.StatusInternalServerError)
	}
	if !sameDiff(req, current) {
		return c.HandleError(ctx, nil, "topology changed since the diff was computed, re-run check", http.StatusConflict)
	}

	if err := c.Deriver.Apply(ctx.Request().Context(), current); err != nil {
		return c.HandleError(ctx, err, "failed to apply relations", http.StatusInternalServerError)
	}
	c.invalidateQueryCache()
	c.auditLog(ctx, "relation sync applied", "added", len(current.ToAdd), "removed", len(current.ToRemove))
	return ctx.JSON(http.StatusOK, map[string]any{
		"added":   len(current.ToAdd),
		"removed": len(current.ToRemove),
	})
}

func sameDiff(a, b relation.Diff) bool {
	return samePairs(a.ToAdd, b.ToAdd) && samePairs(a.ToRemove, b.ToRemove)
}

func samePairs(a, b []relation.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[relation.Pair]bool, len(a))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		if !seen[p] {
			return false
		}
	}
	return true
}
