package budget

import (
	"errors"
	"fmt"

	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrMissingTruncation is returned when a period extends outside the
	// budget's span but carries no truncate mode.
	ErrMissingTruncation = errors.New("boundary period has no truncate mode")

	// ErrNoRecurrence is returned when a category has never been given a
	// recurrence, so it has no amount or currency to work from.
	ErrNoRecurrence = errors.New("category has no recurrence")

	// ErrPeriodNotFound is returned for a period index outside the category.
	ErrPeriodNotFound = errors.New("period not found")

	// ErrNotBoundaryPeriod is returned when a truncate mode is set on a period
	// that lies entirely inside the budget.
	ErrNotBoundaryPeriod = errors.New("period does not extend outside the budget")

	// ErrBudgetNotFound is returned by stores for an unknown budget.
	ErrBudgetNotFound = errors.New("budget not found")

	// ErrCategoryNotFound is returned by stores for an unknown category.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrConcurrentModification is returned when a category was saved by
	// someone else since it was loaded.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// MissingTruncationError names the period and the budget span.
type MissingTruncationError struct {
	Dates  generic.DateRange
	Budget generic.DateRange
}

func (e *MissingTruncationError) Error() string {
	return fmt.Sprintf("period %s extends outside budget %s but has no truncate mode", e.Dates, e.Budget)
}

func (e *MissingTruncationError) Unwrap() error { return ErrMissingTruncation }

// MutationError wraps an engine failure with the operation and category.
// Callers show "could not update category" and keep Err for diagnostics.
type MutationError struct {
	Op         string
	CategoryID string
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("could not update category %s (%s): %v", e.CategoryID, e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the request's data.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingTruncation) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrNoRecurrence) ||
		errors.Is(err, ErrNotBoundaryPeriod) ||
		errors.Is(err, generic.ErrCurrencyMismatch) ||
		errors.Is(err, generic.ErrAllocation) ||
		errors.Is(err, generic.ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBudgetNotFound) || errors.Is(err, ErrCategoryNotFound)
}

// IsConflict returns true if the error might succeed after reloading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
