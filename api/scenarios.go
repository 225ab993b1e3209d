/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built budgets that populate the store with deterministic
	data for testing and demos. Every scenario is built through the engine
	mutations, so the stored periods are exactly what the API would produce.

AVAILABLE SCENARIOS:

	household-2024:       Full year with every category type and recurrence
	short-months:         Monthly day 31 clamped through February and April
	boundary-truncation:  Omit, split and keep on partial boundary periods
	zero-weight-repair:   A lone omitted period switched to split on edit

HOW SCENARIOS WORK:
 1. Reset the store
 2. Build the budget and its categories with budget.OnRecurrence
 3. Apply nominal, truncate and actual edits
 4. Save the budget

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "household-2024"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to scenarioLoaders

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shared mutation helpers
  - budget/mutation.go: the operations the loaders replay
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "household-2024",
		Name:        "Household 2024",
		Description: "Calendar-year budget with income, savings, investments and spending",
	},
	{
		ID:          "short-months",
		Name:        "Short Months",
		Description: "Monthly recurrence on day 31 clamped to February and April",
	},
	{
		ID:          "boundary-truncation",
		Name:        "Boundary Truncation",
		Description: "Weekly and monthly periods straddling the budget with omit, split and keep",
	},
	{
		ID:          "zero-weight-repair",
		Name:        "Zero-Weight Repair",
		Description: "Three-day budget whose only period is omitted until a total is set",
	},
}

func (h *Handler) scenarioLoaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"household-2024":      h.loadHouseholdScenario,
		"short-months":        h.loadShortMonthsScenario,
		"boundary-truncation": h.loadBoundaryTruncationScenario,
		"zero-weight-repair":  h.loadZeroWeightRepairScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.resetStore(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) resetStore(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadHouseholdScenario(ctx context.Context) error {
	s := newScenarioBuilder("household-2024", "Household 2024", "2024-01-01", "2024-12-31", "EUR")

	s.add("salary", "Salary", budget.TypeIncome, budget.MonthlyRecurrence{Day: 25, Target: s.money(300000)})
	s.add("emergency-fund", "Emergency fund", budget.TypeSavings, budget.MonthlyRecurrence{Day: 31, Target: s.money(25000)})
	s.add("index-fund", "Index fund", budget.TypeInvestments, budget.NoneRecurrence{Target: s.money(600000)})
	s.add("rent", "Rent", budget.TypeSpending, budget.MonthlyRecurrence{Day: 1, Target: s.money(120000)})
	s.add("groceries", "Groceries", budget.TypeSpending, budget.WeeklyRecurrence{Day: time.Sunday, Target: s.money(15000)})

	// January's ledger, as the transactions service would report it.
	s.actual("salary", 0, 300000)
	s.actual("rent", 0, 120000)
	s.actual("groceries", 0, 13250)
	s.actual("groceries", 1, 16410)
	return s.save(ctx, h.Store)
}

func (h *Handler) loadShortMonthsScenario(ctx context.Context) error {
	s := newScenarioBuilder("short-months", "Spring 2024", "2024-02-01", "2024-04-30", "USD")

	s.add("paycheck", "Paycheck", budget.TypeIncome, budget.MonthlyRecurrence{Day: 31, Target: s.money(450000)})
	s.add("utilities", "Utilities", budget.TypeSpending, budget.MonthlyRecurrence{Day: 30, Target: s.money(18000)})
	s.add("brokerage", "Brokerage", budget.TypeInvestments, budget.MonthlyRecurrence{Day: 29, Target: s.money(50000)})
	return s.save(ctx, h.Store)
}

func (h *Handler) loadBoundaryTruncationScenario(ctx context.Context) error {
	// Wednesday to Wednesday: both weekly boundary periods are partial.
	s := newScenarioBuilder("boundary-truncation", "Spring break", "2024-03-13", "2024-04-17", "EUR")

	s.add("allowance", "Allowance", budget.TypeIncome, budget.MonthlyRecurrence{Day: 15, Target: s.money(90000)})
	s.add("dining", "Dining out", budget.TypeSpending, budget.WeeklyRecurrence{Day: time.Sunday, Target: s.money(7000)})
	s.add("travel", "Travel", budget.TypeSpending, budget.WeeklyRecurrence{Day: time.Saturday, Target: s.money(10000)})

	s.truncate("dining", first, budget.TruncateOmit)
	s.truncate("dining", last, budget.TruncateKeep)
	s.truncate("travel", first, budget.TruncateKeep)
	s.nominal("travel", 60000)
	return s.save(ctx, h.Store)
}

func (h *Handler) loadZeroWeightRepairScenario(ctx context.Context) error {
	// Monday to Wednesday inside a single Sunday-ending week.
	s := newScenarioBuilder("zero-weight-repair", "Long weekend", "2024-03-04", "2024-03-06", "EUR")

	s.add("pocket-money", "Pocket money", budget.TypeIncome, budget.NoneRecurrence{Target: s.money(20000)})
	s.add("snacks", "Snacks", budget.TypeSpending, budget.WeeklyRecurrence{Day: time.Sunday, Target: s.money(7000)})
	s.truncate("snacks", first, budget.TruncateOmit)
	s.nominal("snacks", 5000)
	return s.save(ctx, h.Store)
}

// =============================================================================
// SCENARIO BUILDER
// =============================================================================

const (
	first = 0
	last  = -1
)

// scenarioBuilder replays engine mutations on an in-memory budget. The first
// failure sticks and is returned by save.
type scenarioBuilder struct {
	b   budget.Budget
	err error
}

func newScenarioBuilder(id, name, begin, end string, currency generic.Currency) *scenarioBuilder {
	return &scenarioBuilder{b: budget.Budget{
		ID:       id,
		Name:     name,
		Dates:    generic.NewDateRange(generic.MustParseDate(begin), generic.MustParseDate(end)),
		Currency: currency,
	}}
}

func (s *scenarioBuilder) money(amount int64) generic.Money {
	return generic.NewMoney(amount, s.b.Currency)
}

func (s *scenarioBuilder) add(id, name string, t budget.CategoryType, rec budget.Recurrence) {
	c := budget.Category{ID: id, Name: name, Type: t, Rollover: budget.DefaultRollover()}
	s.apply(c, func(c budget.Category) (budget.Category, error) {
		return budget.OnRecurrence(s.b, c, rec)
	})
}

func (s *scenarioBuilder) nominal(id string, amount int64) {
	s.edit(id, func(c budget.Category) (budget.Category, error) {
		return budget.OnCategoryNominal(s.b, c, s.money(amount))
	})
}

func (s *scenarioBuilder) truncate(id string, index int, mode budget.TruncateMode) {
	s.edit(id, func(c budget.Category) (budget.Category, error) {
		return budget.OnPeriodTruncate(s.b, c, periodIndex(c, index), mode)
	})
}

func (s *scenarioBuilder) actual(id string, index int, amount int64) {
	s.edit(id, func(c budget.Category) (budget.Category, error) {
		return budget.WithPeriodActual(c, periodIndex(c, index), s.money(amount))
	})
}

func (s *scenarioBuilder) edit(id string, fn func(budget.Category) (budget.Category, error)) {
	if s.err != nil {
		return
	}
	c, ok := s.b.Category(id)
	if !ok {
		s.err = fmt.Errorf("scenario %s: %w: %s", s.b.ID, budget.ErrCategoryNotFound, id)
		return
	}
	s.apply(c, fn)
}

func (s *scenarioBuilder) apply(c budget.Category, fn func(budget.Category) (budget.Category, error)) {
	if s.err != nil {
		return
	}
	updated, err := fn(c)
	if err != nil {
		s.err = fmt.Errorf("scenario %s: %w", s.b.ID, err)
		return
	}
	s.b = s.b.WithCategory(updated)
}

func (s *scenarioBuilder) save(ctx context.Context, store budget.Store) error {
	if s.err != nil {
		return s.err
	}
	return store.SaveBudget(ctx, s.b)
}

// periodIndex resolves negative indexes from the end.
func periodIndex(c budget.Category, index int) int {
	if index < 0 {
		return len(c.Periods) + index
	}
	return index
}
