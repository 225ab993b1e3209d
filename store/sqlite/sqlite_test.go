package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
	"github.com/warp/budget-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func eur(amount int64) generic.Money { return generic.NewMoney(amount, "EUR") }

func householdBudget(t *testing.T) budget.Budget {
	t.Helper()
	b := budget.Budget{
		ID:       "household",
		Name:     "Household",
		Dates:    generic.NewDateRange(generic.MustParseDate("2024-01-03"), generic.MustParseDate("2024-03-31")),
		Currency: "EUR",
	}

	groceries, err := budget.OnRecurrence(b, budget.Category{
		ID: "groceries", Name: "Groceries", Type: budget.TypeSpending,
		Rollover: budget.Rollover{Loss: budget.RolloverAverage, Surplus: budget.RolloverNone},
	}, budget.WeeklyRecurrence{Day: time.Sunday, Target: eur(7000)})
	require.NoError(t, err)
	groceries, err = budget.OnPeriodTruncate(b, groceries, 0, budget.TruncateOmit)
	require.NoError(t, err)
	groceries, err = budget.WithPeriodActual(groceries, 1, eur(6890))
	require.NoError(t, err)

	salary, err := budget.OnRecurrence(b, budget.Category{
		ID: "salary", Name: "Salary", Type: budget.TypeIncome, Rollover: budget.DefaultRollover(),
	}, budget.MonthlyRecurrence{Day: 25, Target: eur(300000)})
	require.NoError(t, err)

	bonus, err := budget.OnRecurrence(b, budget.Category{
		ID: "bonus", Name: "Bonus", Type: budget.TypeIncome, Rollover: budget.DefaultRollover(),
	}, budget.NoneRecurrence{Target: eur(50000)})
	require.NoError(t, err)

	b.Categories = []budget.Category{salary, groceries, bonus}
	return b
}

// =============================================================================
// BUDGET TESTS
// =============================================================================

func TestStore_BudgetRoundTrip(t *testing.T) {
	// GIVEN: A budget with weekly, monthly and none categories
	// WHEN: Saving and loading it
	// THEN: Every category, period, truncate mode and actual survives in order

	store := newTestStore(t)
	ctx := context.Background()
	b := householdBudget(t)

	require.NoError(t, store.SaveBudget(ctx, b))
	loaded, err := store.GetBudget(ctx, "household")

	require.NoError(t, err)
	assert.Equal(t, b, *loaded)
}

func TestStore_SaveBudgetReplacesCategories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	b := householdBudget(t)
	require.NoError(t, store.SaveBudget(ctx, b))

	b.Name = "Renamed"
	b.Categories = b.Categories[:1]
	require.NoError(t, store.SaveBudget(ctx, b))

	loaded, err := store.GetBudget(ctx, "household")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	require.Len(t, loaded.Categories, 1)
	assert.Equal(t, "salary", loaded.Categories[0].ID)
}

func TestStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBudget(ctx, householdBudget(t)))
	require.NoError(t, store.SaveBudget(ctx, budget.Budget{
		ID: "empty", Name: "Empty", Currency: "EUR",
		Dates: generic.NewDateRange(generic.MustParseDate("2025-01-01"), generic.MustParseDate("2025-01-31")),
	}))

	budgets, err := store.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "empty", budgets[0].ID)
	assert.Nil(t, budgets[0].Categories)

	require.NoError(t, store.DeleteBudget(ctx, "household"))
	_, err = store.GetBudget(ctx, "household")
	assert.ErrorIs(t, err, budget.ErrBudgetNotFound)
	assert.ErrorIs(t, store.DeleteBudget(ctx, "household"), budget.ErrBudgetNotFound)
}

// =============================================================================
// CATEGORY TESTS
// =============================================================================

func TestStore_SaveCategoryOptimisticConcurrency(t *testing.T) {
	// GIVEN: Two clients that loaded the same category version
	// WHEN: Both save an edit
	// THEN: The first wins and the second gets ErrConcurrentModification

	store := newTestStore(t)
	ctx := context.Background()
	b := householdBudget(t)
	require.NoError(t, store.SaveBudget(ctx, b))

	loaded, err := store.GetBudget(ctx, "household")
	require.NoError(t, err)
	c, ok := loaded.Category("groceries")
	require.True(t, ok)

	first, err := budget.OnCategoryNominal(*loaded, c, eur(80000))
	require.NoError(t, err)
	second, err := budget.WithPeriodActual(c, 2, eur(1))
	require.NoError(t, err)

	require.NoError(t, store.SaveCategory(ctx, "household", first, c.Version))
	err = store.SaveCategory(ctx, "household", second, c.Version)
	assert.ErrorIs(t, err, budget.ErrConcurrentModification)

	reloaded, err := store.GetBudget(ctx, "household")
	require.NoError(t, err)
	stored, _ := reloaded.Category("groceries")
	assert.Equal(t, first, stored)
	assert.Equal(t, []string{"salary", "groceries", "bonus"}, categoryIDs(reloaded), "position is kept")
}

func TestStore_SaveCategoryAppendsNew(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	b := householdBudget(t)
	require.NoError(t, store.SaveBudget(ctx, b))

	rent, err := budget.OnRecurrence(b, budget.Category{ID: "rent", Name: "Rent", Type: budget.TypeSpending},
		budget.MonthlyRecurrence{Day: 1, Target: eur(120000)})
	require.NoError(t, err)

	assert.ErrorIs(t, store.SaveCategory(ctx, "household", rent, 1), budget.ErrConcurrentModification)
	require.NoError(t, store.SaveCategory(ctx, "household", rent, 0))
	assert.ErrorIs(t, store.SaveCategory(ctx, "missing", rent, 0), budget.ErrBudgetNotFound)

	loaded, err := store.GetBudget(ctx, "household")
	require.NoError(t, err)
	assert.Equal(t, []string{"salary", "groceries", "bonus", "rent"}, categoryIDs(loaded))
	stored, _ := loaded.Category("rent")
	assert.Equal(t, rent, stored)
}

func TestStore_SaveCategoryWithoutRecurrence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBudget(ctx, householdBudget(t)))

	err := store.SaveCategory(ctx, "household", budget.Category{ID: "draft"}, 0)

	assert.ErrorIs(t, err, budget.ErrNoRecurrence)
}

func TestStore_DeleteCategoryCascadesPeriods(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBudget(ctx, householdBudget(t)))

	require.NoError(t, store.DeleteCategory(ctx, "household", "groceries"))
	assert.ErrorIs(t, store.DeleteCategory(ctx, "household", "groceries"), budget.ErrCategoryNotFound)

	loaded, err := store.GetBudget(ctx, "household")
	require.NoError(t, err)
	assert.Equal(t, []string{"salary", "bonus"}, categoryIDs(loaded))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBudget(ctx, householdBudget(t)))

	require.NoError(t, store.Reset(ctx))

	budgets, err := store.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func categoryIDs(b *budget.Budget) []string {
	ids := make([]string, len(b.Categories))
	for i, c := range b.Categories {
		ids[i] = c.ID
	}
	return ids
}
