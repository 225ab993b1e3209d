/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The budget package wraps these errors with category/period context.

ERROR CATEGORIES:
  1. Money errors - Currency mismatch, unallocatable weights
  2. Calendar errors - Malformed ranges

USAGE:
  if errors.Is(err, generic.ErrCurrencyMismatch) {
      // two currencies met in one operation
  }

SEE ALSO:
  - money.go: Uses these errors
  - budget/errors.go: Domain errors built on top
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCurrencyMismatch is returned when an operation combines two currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrAllocation is returned when a total cannot be allocated because the
	// weights sum to zero.
	ErrAllocation = errors.New("cannot allocate across zero total weight")

	// ErrInvalidRange is returned when a range is malformed (end before begin).
	ErrInvalidRange = errors.New("invalid range: end before begin")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CurrencyMismatchError names both currencies.
type CurrencyMismatchError struct {
	Left  Currency
	Right Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// AllocationError reports the total that could not be allocated.
type AllocationError struct {
	Total  Money
	Shares int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cannot allocate %v across %d shares: total weight is zero", e.Total, e.Shares)
}

func (e *AllocationError) Unwrap() error { return ErrAllocation }

// InvalidRangeError carries the offending range.
type InvalidRangeError struct {
	Range DateRange
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %s: end before begin", e.Range)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }
