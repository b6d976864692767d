// pendencies.go: treatment pendency listing and review endpoints
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/datastore"
)

// initPendencyRoutes registers pendency-related API endpoints.
func (c *Controller) initPendencyRoutes() {
	c.Group.GET("/pendencies", c.GetPendencies)
	c.Group.GET("/pendencies/summary", c.GetPendencySummary)
	c.Group.GET("/pendencies/:id", c.GetPendency)
	c.Group.POST("/pendencies/:id/approve", c.ApprovePendency)
	c.Group.POST("/pendencies/:id/adjust", c.AdjustPendency)
	c.Group.POST("/pendencies/:id/ignore", c.IgnorePendency)
}

// PendencyListResponse is the paginated pendency query result.
type PendencyListResponse struct {
	Pendencies []datastore.TreatmentPendency `json:"pendencies"`
	Total      int64                         `json:"total"`
	Limit      int                           `json:"limit"`
	Offset     int                           `json:"offset"`
}

// GetPendencies lists pendencies with filters and pagination. Results are
// cached briefly; any review or batch write flushes the cache.
func (c *Controller) GetPendencies(ctx echo.Context) error {
	filters := &datastore.PendencyFilters{
		Date:           ctx.QueryParam("date"),
		Status:         ctx.QueryParam("status"),
		Classification: ctx.QueryParam("classification"),
		AnomalyType:    ctx.QueryParam("anomaly_type"),
		MeterKind:      ctx.QueryParam("meter_kind"),
	}
	if v := ctx.QueryParam("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.HandleError(ctx, err, "invalid min_confidence", http.StatusBadRequest)
		}
		filters.MinConfidence = f
	}
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.HandleError(ctx, err, "invalid limit", http.StatusBadRequest)
		}
		filters.Limit = n
	}
	if v := ctx.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.HandleError(ctx, err, "invalid offset", http.StatusBadRequest)
		}
		filters.Offset = n
	}

	cacheKey := fmt.Sprintf("pendencies:%+v", *filters)
	if cached, found := c.queryCache.Get(cacheKey); found {
		if resp, ok := cached.(*PendencyListResponse); ok {
			return ctx.JSON(http.StatusOK, resp)
		}
	}

	pendencies, total, err := c.DS.SearchPendencies(filters)
	if err != nil {
		return c.HandleError(ctx, err, "failed to search pendencies", http.StatusInternalServerError)
	}

	resp := &PendencyListResponse{
		Pendencies: pendencies,
		Total:      total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}
	c.queryCache.SetDefault(cacheKey, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// GetPendency returns a single pendency by id.
func (c *Controller) GetPendency(ctx echo.Context) error {
	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid pendency id", http.StatusBadRequest)
	}
	p, err := c.DS.GetPendency(id)
	if err != nil {
		return c.HandleError(ctx, err, "pendency not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, p)
}

// GetPendencySummary aggregates the pendencies of a reference date.
func (c *Controller) GetPendencySummary(ctx echo.Context) error {
	date := ctx.QueryParam("date")
	if date == "" {
		return c.HandleError(ctx, nil, "date is required", http.StatusBadRequest)
	}
	summary, err := c.DS.Summary(date)
	if err != nil {
		return c.HandleError(ctx, err, "failed to compute summary", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, summary)
}

// ReviewRequest carries the operator's decision on a pendency.
type ReviewRequest struct {
	AdjustedValue *float64 `json:"adjustedValue,omitempty"`
	Justification string   `json:"justification,omitempty"`
}

// ApprovePendency accepts the suggested value as-is.
func (c *Controller) ApprovePendency(ctx echo.Context) error {
	return c.reviewPendency(ctx, datastore.StatusApproved)
}

// AdjustPendency records an operator-supplied value instead of the suggestion.
func (c *Controller) AdjustPendency(ctx echo.Context) error {
	return c.reviewPendency(ctx, datastore.StatusAdjusted)
}

// IgnorePendency dismisses the pendency with a justification.
func (c *Controller) IgnorePendency(ctx echo.Context) error {
	return c.reviewPendency(ctx, datastore.StatusIgnored)
}

func (c *Controller) reviewPendency(ctx echo.Context, status string) error {
	if err := authz.Require(ctx.Request().Context(), c.Auth, authz.ActionPendencyReview); err != nil {
		return c.HandleError(ctx, err, "not authorized to review pendencies", http.StatusForbidden)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid pendency id", http.StatusBadRequest)
	}

	var req ReviewRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	if err := c.DS.ReviewPendency(id, status, req.AdjustedValue, req.Justification); err != nil {
		return c.HandleError(ctx, err, "failed to review pendency", http.StatusBadRequest)
	}
	c.invalidateQueryCache()
	c.auditLog(ctx, "pendency reviewed", "pendency_id", id, "status", status)

	p, err := c.DS.GetPendency(id)
	if err != nil {
		return c.HandleError(ctx, err, "pendency not found after review", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (c *Controller) pathID(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
