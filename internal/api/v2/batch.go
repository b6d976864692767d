// batch.go: batch execution and progress endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initBatchRoutes registers batch-related API endpoints.
func (c *Controller) initBatchRoutes() {
	c.Group.POST("/batch", c.ExecuteBatch)
	c.Group.POST("/batch/points/:id/reprocess", c.ReprocessPoint)
	c.Group.GET("/batch/progress", c.GetBatchProgress)
	c.Group.GET("/batch/status", c.GetBatchStatus)
}

// BatchRequest selects the reference date for a run.
type BatchRequest struct {
	Date string `json:"date"`
}

// ExecuteBatch starts a synchronous batch run for a reference date. The call
// returns when the run completes; progress can be polled concurrently.
func (c *Controller) ExecuteBatch(ctx echo.Context) error {
	var req BatchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Date == "" {
		return c.HandleError(ctx, nil, "date is required", http.StatusBadRequest)
	}

	result, err := c.Orchestrator.ExecuteBatch(ctx.Request().Context(), req.Date)
	if err != nil {
		return c.HandleError(ctx, err, "batch execution failed", http.StatusInternalServerError)
	}
	c.invalidateQueryCache()
	return ctx.JSON(http.StatusOK, result)
}

// ReprocessPoint runs the detection pipeline for a single point.
func (c *Controller) ReprocessPoint(ctx echo.Context) error {
	var req BatchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Date == "" {
		return c.HandleError(ctx, nil, "date is required", http.StatusBadRequest)
	}
	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid point id", http.StatusBadRequest)
	}

	result, err := c.Orchestrator.ReprocessPoint(ctx.Request().Context(), id, req.Date)
	if err != nil {
		return c.HandleError(ctx, err, "point reprocessing failed", http.StatusInternalServerError)
	}
	c.invalidateQueryCache()
	return ctx.JSON(http.StatusOK, result)
}

// GetBatchProgress returns the live progress of the running batch.
func (c *Controller) GetBatchProgress(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Orchestrator.Progress())
}

// GetBatchStatus returns the pendency summary for a reference date together
// with its latest recorded run.
func (c *Controller) GetBatchStatus(ctx echo.Context) error {
	date := ctx.QueryParam("date")
	if date == "" {
		return c.HandleError(ctx, nil, "date is required", http.StatusBadRequest)
	}

	summary, err := c.Orchestrator.Status(date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to compute batch status", http.StatusInternalServerError)
	}
	run, err := c.DS.LatestBatchRun(date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load latest batch run", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"summary":   summary,
		"latestRun": run,
	})
}
