// Package api implements the operator-facing HTTP API, version 2.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/batch"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/logging"
	"github.com/aquatel/hydronet-go/internal/relation"
)

const (
	// Pendency list queries are cached briefly; writes invalidate the cache.
	queryCacheTTL     = 30 * time.Second
	queryCacheCleanup = 5 * time.Minute
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo         *echo.Echo
	Group        *echo.Group
	DS           datastore.Interface
	Settings     *conf.Settings
	Orchestrator *batch.Orchestrator
	Deriver      *relation.Deriver
	Auth         authz.Service

	queryCache *cache.Cache
	apiLogger  *slog.Logger
}

// New creates the controller and registers all routes under /api/v2.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, orch *batch.Orchestrator, deriver *relation.Deriver, auth authz.Service) *Controller {
	c := &Controller{
		Echo:         e,
		DS:           ds,
		Settings:     settings,
		Orchestrator: orch,
		Deriver:      deriver,
		Auth:         auth,
		queryCache:   cache.New(queryCacheTTL, queryCacheCleanup),
		apiLogger:    logging.ForService("api"),
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())

	c.initPendencyRoutes()
	c.initBatchRoutes()
	c.initTopologyRoutes()
	c.initRelationRoutes()

	return c
}

// ErrorResponse is the standard JSON error payload.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs the error and returns the standard payload. Sentinel
// errors map to their natural status codes regardless of the suggested one.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	switch {
	case errors.Is(err, errors.ErrPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, errors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errors.ErrConcurrentModification):
		code = http.StatusConflict
	case errors.Is(err, errors.ErrCircularReference),
		errors.Is(err, errors.ErrParentInactive):
		code = http.StatusUnprocessableEntity
	}

	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.New().String()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.apiLogger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, resp)
}

// invalidateQueryCache drops all cached list queries after a write.
func (c *Controller) invalidateQueryCache() {
	c.queryCache.Flush()
}

// auditLog records a successful mutation. Fire-and-forget; never fails the
// operation.
func (c *Controller) auditLog(ctx echo.Context, msg string, args ...any) {
	args = append(args, "ip", ctx.RealIP(), "path", ctx.Request().URL.Path)
	c.apiLogger.Info(msg, args...)
}
