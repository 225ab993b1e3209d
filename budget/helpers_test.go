package budget_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(s string) generic.Date { return generic.MustParseDate(s) }

func span(begin, end string) generic.DateRange {
	return generic.NewDateRange(date(begin), date(end))
}

func eur(amount int64) generic.Money { return generic.NewMoney(amount, "EUR") }

func newBudget(begin, end string) budget.Budget {
	return budget.Budget{ID: "b-1", Name: "Test", Dates: span(begin, end), Currency: "EUR"}
}

func weekly(day time.Weekday, amount int64) budget.Recurrence {
	return budget.WeeklyRecurrence{Day: day, Target: eur(amount)}
}

func monthly(day int, amount int64) budget.Recurrence {
	return budget.MonthlyRecurrence{Day: day, Target: eur(amount)}
}

func none(amount int64) budget.Recurrence {
	return budget.NoneRecurrence{Target: eur(amount)}
}

// newCategory runs OnRecurrence on an empty category.
func newCategory(t *testing.T, b budget.Budget, id string, typ budget.CategoryType, rec budget.Recurrence) budget.Category {
	t.Helper()
	c, err := budget.OnRecurrence(b, budget.Category{ID: id, Name: id, Type: typ}, rec)
	require.NoError(t, err)
	return c
}

func periodDates(c budget.Category) []generic.DateRange {
	out := make([]generic.DateRange, len(c.Periods))
	for i, p := range c.Periods {
		out[i] = p.Dates
	}
	return out
}

func nominals(c budget.Category) []int64 {
	out := make([]int64, len(c.Periods))
	for i, p := range c.Periods {
		out[i] = p.Nominal.Amount
	}
	return out
}

func truncates(c budget.Category) []budget.TruncateMode {
	out := make([]budget.TruncateMode, len(c.Periods))
	for i, p := range c.Periods {
		out[i] = p.Truncate
	}
	return out
}
