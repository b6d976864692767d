// Package authz defines the authorization boundary of the engine.
//
// The engine does not implement authorization; it only asks an external
// collaborator whether the caller may perform a mutating action, and fails
// with ErrPermissionDenied when the answer is no.
package authz

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/errors"
)

// Actions gated by the permission layer.
const (
	ActionTopologyWrite  = "topology:write"
	ActionRelationApply  = "relations:apply"
	ActionBatchExecute   = "batch:execute"
	ActionPendencyReview = "pendency:review"
)

// Service answers authorization questions for the current caller.
type Service interface {
	Authorized(ctx context.Context, action string) bool
}

// Require returns ErrPermissionDenied unless the service authorizes the action.
func Require(ctx context.Context, svc Service, action string) error {
	if svc != nil && svc.Authorized(ctx, action) {
		return nil
	}
	return errors.New(errors.ErrPermissionDenied).
		Component("authz").
		Category(errors.CategoryPermission).
		Context("action", action).
		Build()
}

// AllowAll authorizes every action. Used by the CLI entry points where the
// operating system user already owns the deployment.
type AllowAll struct{}

// Authorized implements Service.
func (AllowAll) Authorized(context.Context, string) bool { return true }

// DenyAll rejects every action.
type DenyAll struct{}

// Authorized implements Service.
func (DenyAll) Authorized(context.Context, string) bool { return false }
