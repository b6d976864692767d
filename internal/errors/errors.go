// Package errors provides centralized error handling with category metadata
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNetwork       ErrorCategory = "network"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryTopology      ErrorCategory = "topology"
	CategoryEstimation    ErrorCategory = "estimation"
	CategoryBatch         ErrorCategory = "batch-processing"
	CategoryPendency      ErrorCategory = "pendency"
	CategoryPrediction    ErrorCategory = "prediction-service"
	CategoryPermission    ErrorCategory = "permission"
	CategoryNotification  ErrorCategory = "notification"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// Sentinel errors for the rules the engine enforces. Callers test these with
// errors.Is; the enhanced wrapper preserves the chain.
var (
	// ErrCircularReference signals a topology mutation that would make a node
	// its own ancestor.
	ErrCircularReference = stderrors.New("parent is a descendant of this node")

	// ErrParentInactive signals a restore blocked by a deactivated parent.
	ErrParentInactive = stderrors.New("parent node is inactive")

	// ErrInsufficientData signals an estimation method that cannot produce a
	// result. Not fatal; the method is simply omitted from scoring.
	ErrInsufficientData = stderrors.New("insufficient data for estimation")

	// ErrExternalService signals that the prediction service was unreachable
	// or timed out. The point continues with the remaining methods.
	ErrExternalService = stderrors.New("external prediction service unavailable")

	// ErrPermissionDenied signals a mutating call without authorization.
	ErrPermissionDenied = stderrors.New("permission denied")

	// ErrConcurrentModification signals that an idempotent upsert found the
	// row already finalized by an operator since the batch started.
	ErrConcurrentModification = stderrors.New("pendency already finalized by operator")

	// ErrNotFound signals a missing record.
	ErrNotFound = stderrors.New("record not found")

	// ErrValidation signals malformed operator input.
	ErrValidation = stderrors.New("validation failed")
)

// EnhancedError wraps an error with component, category and context metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where error occurred
	Category  ErrorCategory  // Error category for better grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// CategoryOf returns the category of the first EnhancedError in the chain,
// or CategoryGeneric when there is none.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

// Standard library compatibility wrappers so callers need only this package.

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error wrapping the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// NewStd creates a plain error without enhancement, for sentinel-style errors
func NewStd(text string) error {
	return stderrors.New(text)
}
