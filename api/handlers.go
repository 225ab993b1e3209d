/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes the budget period and allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the budget package.

ENDPOINTS:
  Budgets:
    GET    /api/budgets                     List budgets (active, future, past)
    POST   /api/budgets                     Create an empty budget
    POST   /api/budgets/import              Create a budget with categories
    GET    /api/budgets/{id}                Get budget with categories
    DELETE /api/budgets/{id}                Delete budget
    GET    /api/budgets/{id}/summary        Per-type totals and leftovers

  Categories:
    POST   /api/budgets/{id}/categories                 Add category
    GET    /api/budgets/{id}/categories/{cid}           Get category
    DELETE /api/budgets/{id}/categories/{cid}           Delete category
    PUT    /api/budgets/{id}/categories/{cid}/recurrence        Change recurrence
    PUT    /api/budgets/{id}/categories/{cid}/nominal           Change total
    PUT    /api/budgets/{id}/categories/{cid}/periods/{index}/truncate
    PUT    /api/budgets/{id}/categories/{cid}/periods/{index}/actual

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

REQUEST FLOW (category edits):
  1. Load the budget snapshot from the store
  2. Run the pure engine mutation on the loaded category
  3. Save with the loaded version (optimistic concurrency)
  4. Return the updated category

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, engine rejections ("Could not update category")
  - 404: Budget or category not found
  - 409: Category modified since it was loaded
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/generic"
	"github.com/warp/budget-engine/logging"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   budget.Store
	Factory *factory.BudgetFactory
	Logger  *logging.Logger
	Metrics *Metrics

	// Today classifies budgets as active, future or past.
	Today func() generic.Date

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store budget.Store, logger *logging.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handler{
		Store:   store,
		Factory: factory.NewBudgetFactory(),
		Logger:  logger.WithComponent(logging.ComponentEngine),
		Metrics: metrics,
		Today:   generic.Today,
	}
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns all budgets, active first.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Store.ListBudgets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budgets", err)
		return
	}

	today := h.Today()
	budget.SortBudgets(budgets, today)

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(h.Factory, b, budget.BudgetStatus(b, today))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBudget returns a budget with its categories.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(h.Factory, *b, budget.BudgetStatus(*b, h.Today())))
}

// CreateBudget creates a budget without categories.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Factory.BudgetFromJSON(factory.BudgetJSON{
		ID:       req.ID,
		Name:     req.Name,
		Begin:    req.Begin,
		End:      req.End,
		Currency: req.Currency,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.createBudget(w, r, b)
}

// ImportBudget creates a budget with its categories. Categories sent without
// periods get them resolved from their recurrence.
func (h *Handler) ImportBudget(w http.ResponseWriter, r *http.Request) {
	var bj factory.BudgetJSON
	if err := json.NewDecoder(r.Body).Decode(&bj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Factory.BudgetFromJSON(bj)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	for i, c := range b.Categories {
		if err := checkCurrency(b, c.ID, c.Recurrence); err != nil {
			writeEngineError(w, err)
			return
		}
		if len(c.Periods) > 0 {
			continue
		}
		if b.Categories[i], err = budget.OnRecurrence(b, c, c.Recurrence); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	h.createBudget(w, r, b)
}

func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request, b budget.Budget) {
	ctx := r.Context()
	if b.ID == "" {
		b.ID = uuid.NewString()
	} else if _, err := h.Store.GetBudget(ctx, b.ID); err == nil {
		writeErrorCode(w, http.StatusConflict, "Budget already exists", "conflict", nil)
		return
	}

	if err := h.Store.SaveBudget(ctx, b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}
	logging.FromContext(ctx).Info("budget created",
		logging.FieldBudgetID, b.ID,
		"categories", len(b.Categories),
	)
	writeJSON(w, http.StatusCreated, toBudgetDTO(h.Factory, b, budget.BudgetStatus(b, h.Today())))
}

// DeleteBudget removes a budget and its categories.
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns the budget's per-type totals.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	entries, err := budget.BudgetSummary(*b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(*b, entries))
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// CreateCategory adds a category and resolves its periods.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	b, err := h.Store.GetBudget(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, exists := b.Category(req.ID); exists {
		writeErrorCode(w, http.StatusConflict, "Category already exists", "conflict", nil)
		return
	}

	c, err := h.Factory.CategoryFromJSON(factory.CategoryJSON{
		ID:         req.ID,
		Name:       req.Name,
		Type:       req.Type,
		Recurrence: req.Recurrence,
		Rollover:   req.Rollover,
	}, b.Dates)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.saveMutation(w, r, budget.OpRecurrence, *b, c, func(b budget.Budget, c budget.Category) (budget.Category, error) {
		if err := checkCurrency(b, c.ID, c.Recurrence); err != nil {
			return budget.Category{}, err
		}
		return budget.OnRecurrence(b, c, c.Recurrence)
	}, http.StatusCreated)
}

// GetCategory returns one category.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	_, c, err := h.loadCategory(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(h.Factory, c))
}

// DeleteCategory removes one category.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteCategory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateRecurrence replaces a category's recurrence. Periods are rebuilt when
// the rule changes; otherwise only nominals are recomputed.
func (h *Handler) UpdateRecurrence(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Factory.RecurrenceFromJSON(req.Recurrence)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.mutateCategory(w, r, budget.OpRecurrence, req.Version, func(b budget.Budget, c budget.Category) (budget.Category, error) {
		if err := checkCurrency(b, c.ID, rec); err != nil {
			return budget.Category{}, err
		}
		return budget.OnRecurrence(b, c, rec)
	})
}

// UpdateNominal redistributes a new category total across its periods.
func (h *Handler) UpdateNominal(w http.ResponseWriter, r *http.Request) {
	var req UpdateNominalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	target := generic.NewMoney(req.Amount, generic.Currency(req.Currency))

	h.mutateCategory(w, r, budget.OpNominal, req.Version, func(b budget.Budget, c budget.Category) (budget.Category, error) {
		return budget.OnCategoryNominal(b, c, target)
	})
}

// UpdateTruncate sets the truncate mode of a boundary period.
func (h *Handler) UpdateTruncate(w http.ResponseWriter, r *http.Request) {
	var req UpdateTruncateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period index", err)
		return
	}
	mode := budget.TruncateMode(req.Truncate)
	if !mode.IsSet() || !mode.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid truncate mode",
			fmt.Errorf("truncate must be omit, split or keep, got %q", req.Truncate))
		return
	}

	h.mutateCategory(w, r, budget.OpTruncate, req.Version, func(b budget.Budget, c budget.Category) (budget.Category, error) {
		return budget.OnPeriodTruncate(b, c, index, mode)
	})
}

// UpdateActual records a period's actual amount.
func (h *Handler) UpdateActual(w http.ResponseWriter, r *http.Request) {
	var req UpdateActualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period index", err)
		return
	}
	actual := generic.NewMoney(req.Amount, generic.Currency(req.Currency))

	h.mutateCategory(w, r, budget.OpActual, req.Version, func(_ budget.Budget, c budget.Category) (budget.Category, error) {
		return budget.WithPeriodActual(c, index, actual)
	})
}

// =============================================================================
// MUTATION PLUMBING
// =============================================================================

type categoryMutation func(b budget.Budget, c budget.Category) (budget.Category, error)

func (h *Handler) loadCategory(r *http.Request) (*budget.Budget, budget.Category, error) {
	b, err := h.Store.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, budget.Category{}, err
	}
	c, ok := b.Category(chi.URLParam(r, "cid"))
	if !ok {
		return nil, budget.Category{}, budget.ErrCategoryNotFound
	}
	return b, c, nil
}

// mutateCategory loads the addressed category, checks the client's version,
// and runs mutate through saveMutation.
func (h *Handler) mutateCategory(w http.ResponseWriter, r *http.Request, op string, version *int, mutate categoryMutation) {
	b, c, err := h.loadCategory(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if version != nil && *version != c.Version {
		h.Metrics.ObserveMutation(op, ResultConflict)
		writeEngineError(w, fmt.Errorf("%w: category %s is at version %d, request was for %d",
			budget.ErrConcurrentModification, c.ID, c.Version, *version))
		return
	}
	h.saveMutation(w, r, op, *b, c, mutate, http.StatusOK)
}

// saveMutation runs mutate on c and saves the result against c's version.
func (h *Handler) saveMutation(w http.ResponseWriter, r *http.Request, op string, b budget.Budget, c budget.Category, mutate categoryMutation, status int) {
	ctx := r.Context()
	log := logging.FromContext(ctx).With(
		logging.FieldOperation, op,
		logging.FieldBudgetID, b.ID,
		logging.FieldCategoryID, c.ID,
	)

	updated, err := mutate(b, c)
	if err != nil {
		h.Metrics.ObserveMutation(op, resultFor(err))
		log.Warn("category mutation rejected", logging.FieldError, err)
		writeEngineError(w, err)
		return
	}

	if err := h.Store.SaveCategory(ctx, b.ID, updated, c.Version); err != nil {
		h.Metrics.ObserveMutation(op, resultFor(err))
		log.Warn("category save failed", logging.FieldError, err)
		writeEngineError(w, err)
		return
	}

	h.Metrics.ObserveMutation(op, ResultOK)
	log.Info("category updated",
		logging.FieldVersion, updated.Version,
		"periods", len(updated.Periods),
	)
	writeJSON(w, status, toCategoryDTO(h.Factory, updated))
}

// checkCurrency rejects a recurrence whose currency differs from the budget's,
// since budget totals are only defined in one currency.
func checkCurrency(b budget.Budget, categoryID string, rec budget.Recurrence) error {
	if rec.Amount().Currency == b.Currency {
		return nil
	}
	return &budget.MutationError{
		Op:         budget.OpRecurrence,
		CategoryID: categoryID,
		Err:        &generic.CurrencyMismatchError{Left: b.Currency, Right: rec.Amount().Currency},
	}
}

func resultFor(err error) string {
	switch {
	case budget.IsConflict(err):
		return ResultConflict
	case budget.IsClientError(err), budget.IsNotFound(err):
		return ResultRejected
	default:
		return ResultError
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, message, "", err)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine, factory and store errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var validation *factory.ValidationError
	switch {
	case budget.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, "Not found", "not_found", err)
	case budget.IsConflict(err):
		writeErrorCode(w, http.StatusConflict, "Category was modified, reload and retry", "conflict", err)
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid definition",
			Code:    "invalid_definition",
			Details: validation.Problems,
		})
	case budget.IsClientError(err):
		writeErrorCode(w, http.StatusBadRequest, "Could not update category", "update_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
