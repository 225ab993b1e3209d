/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Budget, category and
  recurrence shapes are the factory package's JSON types so the API, the
  store and demo fixtures agree on one wire format.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  All amounts are integer minor units (cents) with a currency code.

OPTIMISTIC CONCURRENCY:
  Edit requests may carry the category version the client last saw. If the
  stored category has moved on, the edit is rejected with 409.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/budget.go: BudgetJSON, CategoryJSON, RecurrenceJSON
*/
package api

import (
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
)

// =============================================================================
// BUDGETS
// =============================================================================

// BudgetDTO represents a budget in API responses.
type BudgetDTO struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Begin      string        `json:"begin"`
	End        string        `json:"end"`
	Currency   string        `json:"currency"`
	Status     string        `json:"status"` // active, future, past
	Categories []CategoryDTO `json:"categories"`
}

// CreateBudgetRequest is the request to create a budget. ID is generated
// when empty.
type CreateBudgetRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Currency string `json:"currency"`
}

// SummaryDTO is a budget's per-type totals.
type SummaryDTO struct {
	BudgetID string            `json:"budget_id"`
	Currency string            `json:"currency"`
	Entries  []SummaryEntryDTO `json:"entries"`
}

// SummaryEntryDTO is one summary row; Type is empty for leftovers.
type SummaryEntryDTO struct {
	Label   string `json:"label"`
	Type    string `json:"type,omitempty"`
	Nominal int64  `json:"nominal"`
	Actual  int64  `json:"actual"`
}

// =============================================================================
// CATEGORIES
// =============================================================================

// CategoryDTO is a category with its totals.
type CategoryDTO struct {
	factory.CategoryJSON
	NominalTotal int64 `json:"nominal_total"`
	ActualTotal  int64 `json:"actual_total"`
}

// CreateCategoryRequest is the request to add a category. Its periods are
// resolved from the recurrence. ID is generated when empty.
type CreateCategoryRequest struct {
	ID         string                 `json:"id,omitempty"`
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Recurrence factory.RecurrenceJSON `json:"recurrence"`
	Rollover   *factory.RolloverJSON  `json:"rollover,omitempty"`
}

// UpdateRecurrenceRequest replaces a category's recurrence.
type UpdateRecurrenceRequest struct {
	Recurrence factory.RecurrenceJSON `json:"recurrence"`
	Version    *int                   `json:"version,omitempty"`
}

// UpdateNominalRequest sets a category's total across all its periods.
type UpdateNominalRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Version  *int   `json:"version,omitempty"`
}

// UpdateTruncateRequest sets the truncate mode of a boundary period.
type UpdateTruncateRequest struct {
	Truncate string `json:"truncate"` // omit, split, keep
	Version  *int   `json:"version,omitempty"`
}

// UpdateActualRequest records a period's actual amount from the ledger.
type UpdateActualRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Version  *int   `json:"version,omitempty"`
}

// =============================================================================
// MISC
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCategoryDTO(f *factory.BudgetFactory, c budget.Category) CategoryDTO {
	dto := CategoryDTO{CategoryJSON: f.CategoryToJSON(c)}
	if nominal, err := budget.CategoryNominal(c); err == nil {
		dto.NominalTotal = nominal.Amount
	}
	if actual, err := budget.CategoryActual(c); err == nil {
		dto.ActualTotal = actual.Amount
	}
	return dto
}

func toBudgetDTO(f *factory.BudgetFactory, b budget.Budget, status budget.Status) BudgetDTO {
	dto := BudgetDTO{
		ID:         b.ID,
		Name:       b.Name,
		Begin:      b.Dates.Begin.String(),
		End:        b.Dates.End.String(),
		Currency:   string(b.Currency),
		Status:     string(status),
		Categories: make([]CategoryDTO, len(b.Categories)),
	}
	for i, c := range b.Categories {
		dto.Categories[i] = toCategoryDTO(f, c)
	}
	return dto
}

func toSummaryDTO(b budget.Budget, entries []budget.SummaryEntry) SummaryDTO {
	dto := SummaryDTO{
		BudgetID: b.ID,
		Currency: string(b.Currency),
		Entries:  make([]SummaryEntryDTO, len(entries)),
	}
	for i, e := range entries {
		dto.Entries[i] = SummaryEntryDTO{
			Label:   e.Label,
			Type:    string(e.Type),
			Nominal: e.Nominal.Amount,
			Actual:  e.Actual.Amount,
		}
	}
	return dto
}
