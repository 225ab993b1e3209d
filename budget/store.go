/*
store.go - Persistence interface for budgets and categories

PURPOSE:
  Defines the interface between the pure engine and storage. The engine never
  persists anything itself: a caller loads a Budget snapshot, runs a mutation,
  and hands the result to a Store.

OPTIMISTIC CONCURRENCY:
  Every engine mutation bumps Category.Version. SaveCategory takes the
  version the caller loaded; if the stored row has moved on, the write is
  rejected with ErrConcurrentModification and the caller reloads and retries.
  This gives a single writer per category without locks held across requests.

IMPLEMENTATIONS:
  - budget/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - mutation.go: Produces the categories written here
*/
package budget

import "context"

// Store handles persistence of budgets and their categories.
type Store interface {
	// SaveBudget inserts or replaces a budget with all its categories.
	SaveBudget(ctx context.Context, b Budget) error

	// GetBudget returns ErrBudgetNotFound for an unknown id.
	GetBudget(ctx context.Context, id string) (*Budget, error)

	// ListBudgets returns every budget, unsorted.
	ListBudgets(ctx context.Context) ([]Budget, error)

	DeleteBudget(ctx context.Context, id string) error

	// SaveCategory inserts or replaces one category of a budget. The stored
	// category must be at expectedVersion (0 for a new category), otherwise
	// ErrConcurrentModification is returned.
	SaveCategory(ctx context.Context, budgetID string, c Category, expectedVersion int) error

	DeleteCategory(ctx context.Context, budgetID, categoryID string) error

	// Reset removes everything.
	Reset(ctx context.Context) error
}
