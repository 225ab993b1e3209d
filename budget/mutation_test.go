package budget_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
)

// A Wednesday-to-Wednesday month: weekly Sunday periods straddle both ends.
func januaryBudget() budget.Budget { return newBudget("2024-01-03", "2024-01-31") }

// =============================================================================
// ON RECURRENCE
// =============================================================================

func TestOnRecurrence_NewCategoryResolvesPeriods(t *testing.T) {
	// GIVEN: An empty category and a weekly Sunday recurrence of 7000
	// WHEN: Applying the recurrence
	// THEN: Five weeks, boundary weeks split by in-budget days

	b := januaryBudget()
	empty := budget.Category{ID: "groceries", Type: budget.TypeSpending}

	c, err := budget.OnRecurrence(b, empty, weekly(time.Sunday, 7000))

	require.NoError(t, err)
	assert.Equal(t, []generic.DateRange{
		span("2024-01-01", "2024-01-07"),
		span("2024-01-08", "2024-01-14"),
		span("2024-01-15", "2024-01-21"),
		span("2024-01-22", "2024-01-28"),
		span("2024-01-29", "2024-02-04"),
	}, periodDates(c))
	assert.Equal(t, []int64{5000, 7000, 7000, 7000, 3000}, nominals(c))
	assert.Equal(t, []budget.TruncateMode{
		budget.TruncateSplit, "", "", "", budget.TruncateSplit,
	}, truncates(c))
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, generic.Currency("EUR"), c.Currency())

	for _, p := range c.Periods {
		assert.Equal(t, eur(0), p.Actual)
	}
	assert.Nil(t, empty.Periods, "input must not be modified")
	assert.Zero(t, empty.Version)
}

func TestOnRecurrence_SameRuleKeepsPeriods(t *testing.T) {
	// GIVEN: A category whose first period was set to omit and which has actuals
	// WHEN: Changing only the amount
	// THEN: Periods, truncation and actuals survive, nominals are recomputed

	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))
	c, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateOmit)
	require.NoError(t, err)
	c, err = budget.WithPeriodActual(c, 2, eur(6400))
	require.NoError(t, err)

	updated, err := budget.OnRecurrence(b, c, weekly(time.Sunday, 14000))

	require.NoError(t, err)
	assert.Equal(t, periodDates(c), periodDates(updated))
	assert.Equal(t, []int64{0, 14000, 14000, 14000, 6000}, nominals(updated))
	assert.Equal(t, budget.TruncateOmit, updated.Periods[0].Truncate)
	assert.Equal(t, eur(6400), updated.Periods[2].Actual)
	assert.Equal(t, c.Version+1, updated.Version)
}

func TestOnRecurrence_RuleChangeCarriesBoundaryTruncation(t *testing.T) {
	// GIVEN: Weekly Sunday with first=keep and last=omit
	// WHEN: Switching to weekly Saturday
	// THEN: Periods are rebuilt and the new boundary periods inherit keep/omit

	b := januaryBudget()
	c := newCategory(t, b, "dining", budget.TypeSpending, weekly(time.Sunday, 7000))
	c, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateKeep)
	require.NoError(t, err)
	c, err = budget.OnPeriodTruncate(b, c, 4, budget.TruncateOmit)
	require.NoError(t, err)

	updated, err := budget.OnRecurrence(b, c, weekly(time.Saturday, 7000))

	require.NoError(t, err)
	assert.Equal(t, []generic.DateRange{
		span("2023-12-31", "2024-01-06"),
		span("2024-01-07", "2024-01-13"),
		span("2024-01-14", "2024-01-20"),
		span("2024-01-21", "2024-01-27"),
		span("2024-01-28", "2024-02-03"),
	}, periodDates(updated))
	assert.Equal(t, budget.TruncateKeep, updated.Periods[0].Truncate)
	assert.Equal(t, budget.TruncateOmit, updated.Periods[4].Truncate)
	assert.Equal(t, []int64{7000, 7000, 7000, 7000, 0}, nominals(updated))
}

func TestOnRecurrence_RuleChangeResetsActuals(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "rent", budget.TypeSpending, weekly(time.Sunday, 7000))
	c, err := budget.WithPeriodActual(c, 1, eur(7000))
	require.NoError(t, err)

	updated, err := budget.OnRecurrence(b, c, monthly(31, 90000))

	require.NoError(t, err)
	require.Len(t, updated.Periods, 1)
	assert.Equal(t, span("2024-01-01", "2024-01-31"), updated.Periods[0].Dates)
	assert.Equal(t, eur(0), updated.Periods[0].Actual)
	assert.Equal(t, budget.TruncateSplit, updated.Periods[0].Truncate)
	// 29 of 31 days inside: 90000 * 29/31
	assert.Equal(t, int64(84194), updated.Periods[0].Nominal.Amount)
}

func TestOnRecurrence_NoneSpansBudgetWithoutTruncation(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "gift", budget.TypeSpending, weekly(time.Sunday, 7000))

	updated, err := budget.OnRecurrence(b, c, none(25000))

	require.NoError(t, err)
	require.Len(t, updated.Periods, 1)
	assert.Equal(t, b.Dates, updated.Periods[0].Dates)
	assert.Equal(t, budget.TruncateUnset, updated.Periods[0].Truncate)
	assert.Equal(t, eur(25000), updated.Periods[0].Nominal)
}

func TestOnRecurrence_SingleStraddlingPeriodUsesPriorLast(t *testing.T) {
	// GIVEN: Periods whose first is inside the budget and whose last is omitted
	// WHEN: Collapsing to one period that leaves the budget
	// THEN: The lone period takes the prior last period's mode

	b := newBudget("2024-01-01", "2024-01-10")
	c := newCategory(t, b, "snacks", budget.TypeSpending, weekly(time.Sunday, 700))
	require.Equal(t, budget.TruncateUnset, c.Periods[0].Truncate)
	c, err := budget.OnPeriodTruncate(b, c, 1, budget.TruncateOmit)
	require.NoError(t, err)

	updated, err := budget.OnRecurrence(b, c, monthly(20, 3100))

	require.NoError(t, err)
	require.Len(t, updated.Periods, 1)
	assert.Equal(t, span("2023-12-21", "2024-01-20"), updated.Periods[0].Dates)
	assert.Equal(t, budget.TruncateOmit, updated.Periods[0].Truncate)
}

func TestOnRecurrence_CurrencyChangeResets(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "travel", budget.TypeSpending, weekly(time.Sunday, 7000))
	c, err := budget.WithPeriodActual(c, 1, eur(100))
	require.NoError(t, err)

	updated, err := budget.OnRecurrence(b, c, budget.WeeklyRecurrence{Day: time.Sunday, Target: generic.NewMoney(7000, "USD")})

	require.NoError(t, err)
	assert.Equal(t, generic.Currency("USD"), updated.Currency())
	for _, p := range updated.Periods {
		assert.Equal(t, generic.Currency("USD"), p.Nominal.Currency)
		assert.Equal(t, generic.NewMoney(0, "USD"), p.Actual)
	}
}

func TestOnRecurrence_InvalidBudgetDates(t *testing.T) {
	b := newBudget("2024-02-01", "2024-01-01")

	_, err := budget.OnRecurrence(b, budget.Category{ID: "x"}, none(1))

	var mutErr *budget.MutationError
	require.ErrorAs(t, err, &mutErr)
	assert.Equal(t, budget.OpRecurrence, mutErr.Op)
	assert.ErrorIs(t, err, generic.ErrInvalidRange)
	assert.Contains(t, err.Error(), "could not update category")
}

// =============================================================================
// ON CATEGORY NOMINAL
// =============================================================================

func TestOnCategoryNominal_RoundTripUniformWeights(t *testing.T) {
	// GIVEN: Twelve full monthly periods
	// WHEN: Setting any integer total
	// THEN: The periods sum back to exactly that total

	b := newBudget("2024-01-01", "2024-12-31")
	c := newCategory(t, b, "savings", budget.TypeSavings, monthly(31, 1000))
	require.Len(t, c.Periods, 12)

	for _, total := range []int64{0, 1, 11, 12, 13, 100001, 99999999, -7} {
		updated, err := budget.OnCategoryNominal(b, c, eur(total))
		require.NoError(t, err)

		sum, err := budget.CategoryNominal(updated)
		require.NoError(t, err)
		assert.Equal(t, eur(total), sum, "total %d", total)
	}
}

func TestOnCategoryNominal_DerivesOccurrenceAmount(t *testing.T) {
	b := newBudget("2024-01-01", "2024-12-31")
	c := newCategory(t, b, "savings", budget.TypeSavings, monthly(31, 1000))

	updated, err := budget.OnCategoryNominal(b, c, eur(100001))

	require.NoError(t, err)
	// 100001 / 12 = 8333.42; the 5-cent residual goes to the first five months
	assert.Equal(t, []int64{8334, 8334, 8334, 8334, 8334, 8333, 8333, 8333, 8333, 8333, 8333, 8333}, nominals(updated))
	assert.Equal(t, eur(8334), updated.Recurrence.Amount())
	assert.Equal(t, c.Version+1, updated.Version)
	assert.Equal(t, eur(1000), c.Recurrence.Amount(), "input must not be modified")
}

func TestOnCategoryNominal_WeightsBoundaryPeriods(t *testing.T) {
	// GIVEN: Weekly periods with 5/7 and 3/7 split boundaries (29/7 weeks)
	// WHEN: Setting a total of 29000
	// THEN: Every full week gets 7000 and the amount per week is 7000

	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 1))

	updated, err := budget.OnCategoryNominal(b, c, eur(29000))

	require.NoError(t, err)
	assert.Equal(t, []int64{5000, 7000, 7000, 7000, 3000}, nominals(updated))
	assert.Equal(t, eur(7000), updated.Recurrence.Amount())
}

func TestOnCategoryNominal_SkipsOmittedFirstPeriod(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 1))
	c, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateOmit)
	require.NoError(t, err)

	updated, err := budget.OnCategoryNominal(b, c, eur(24000))

	require.NoError(t, err)
	// weights 0, 1, 1, 1, 3/7: sum 24/7
	assert.Equal(t, []int64{0, 7000, 7000, 7000, 3000}, nominals(updated))
	assert.Equal(t, eur(7000), updated.Recurrence.Amount())
	assert.Equal(t, budget.TruncateOmit, updated.Periods[0].Truncate)
}

func TestOnCategoryNominal_ZeroWeightRepair(t *testing.T) {
	// GIVEN: A three-day budget whose only period is a whole week set to omit
	// WHEN: Setting a total
	// THEN: The period is switched to split so the total lands on it

	b := newBudget("2024-03-04", "2024-03-06")
	c := newCategory(t, b, "snacks", budget.TypeSpending, weekly(time.Sunday, 7000))
	require.Len(t, c.Periods, 1)
	c, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateOmit)
	require.NoError(t, err)
	require.Equal(t, int64(0), c.Periods[0].Nominal.Amount)

	updated, err := budget.OnCategoryNominal(b, c, eur(5000))

	require.NoError(t, err)
	assert.Equal(t, budget.TruncateSplit, updated.Periods[0].Truncate)
	assert.Equal(t, eur(5000), updated.Periods[0].Nominal)
	// 5000 / (3/7)
	assert.Equal(t, eur(11667), updated.Recurrence.Amount())
}

func TestOnCategoryNominal_ZeroWeightRepairFlipsFirstOmitOnly(t *testing.T) {
	// GIVEN: Two straddling weeks, both omitted, and no interior week
	// WHEN: Setting a total
	// THEN: Only the first omitted period becomes split

	b := newBudget("2024-01-05", "2024-01-09")
	c := newCategory(t, b, "snacks", budget.TypeSpending, weekly(time.Sunday, 700))
	require.Len(t, c.Periods, 2)
	c, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateOmit)
	require.NoError(t, err)
	c, err = budget.OnPeriodTruncate(b, c, 1, budget.TruncateOmit)
	require.NoError(t, err)

	updated, err := budget.OnCategoryNominal(b, c, eur(1000))

	require.NoError(t, err)
	assert.Equal(t, []budget.TruncateMode{budget.TruncateSplit, budget.TruncateOmit}, truncates(updated))
	assert.Equal(t, []int64{1000, 0}, nominals(updated))
}

func TestOnCategoryNominal_CurrencyMismatch(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))

	_, err := budget.OnCategoryNominal(b, c, generic.NewMoney(100, "USD"))

	assert.ErrorIs(t, err, generic.ErrCurrencyMismatch)
	assert.True(t, budget.IsClientError(err))
}

func TestOnCategoryNominal_MissingTruncation(t *testing.T) {
	// GIVEN: A snapshot whose straddling first period lost its truncate mode
	// WHEN: Setting a total
	// THEN: MissingTruncation is reported, wrapped with the operation

	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))
	c.Periods[0].Truncate = budget.TruncateUnset

	_, err := budget.OnCategoryNominal(b, c, eur(100))

	var mutErr *budget.MutationError
	require.ErrorAs(t, err, &mutErr)
	assert.Equal(t, budget.OpNominal, mutErr.Op)
	assert.Equal(t, "groceries", mutErr.CategoryID)
	assert.ErrorIs(t, err, budget.ErrMissingTruncation)
}

func TestOnCategoryNominal_NoRecurrence(t *testing.T) {
	_, err := budget.OnCategoryNominal(januaryBudget(), budget.Category{ID: "x"}, eur(1))
	assert.ErrorIs(t, err, budget.ErrNoRecurrence)
}

// =============================================================================
// ON PERIOD TRUNCATE
// =============================================================================

func TestOnPeriodTruncate_RecomputesOnlyThatPeriod(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))

	updated, err := budget.OnPeriodTruncate(b, c, 4, budget.TruncateKeep)

	require.NoError(t, err)
	assert.Equal(t, []int64{5000, 7000, 7000, 7000, 7000}, nominals(updated))
	assert.Equal(t, budget.TruncateKeep, updated.Periods[4].Truncate)
	assert.Equal(t, budget.TruncateSplit, c.Periods[4].Truncate, "input must not be modified")
	assert.Equal(t, c.Version+1, updated.Version)
}

func TestOnPeriodTruncate_Rejections(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))

	tests := []struct {
		name  string
		index int
		want  error
	}{
		{"interior period", 2, budget.ErrNotBoundaryPeriod},
		{"negative index", -1, budget.ErrPeriodNotFound},
		{"past the end", 5, budget.ErrPeriodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := budget.OnPeriodTruncate(b, c, tt.index, budget.TruncateOmit)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, budget.IsClientError(err))
		})
	}
}

func TestOnPeriodTruncate_BoundaryInsideBudget(t *testing.T) {
	// Monthly day 31 over a calendar month: the only period equals the budget.
	b := newBudget("2024-01-01", "2024-01-31")
	c := newCategory(t, b, "rent", budget.TypeSpending, monthly(31, 1000))

	_, err := budget.OnPeriodTruncate(b, c, 0, budget.TruncateKeep)

	assert.ErrorIs(t, err, budget.ErrNotBoundaryPeriod)
}

// =============================================================================
// WITH PERIOD ACTUAL
// =============================================================================

func TestWithPeriodActual(t *testing.T) {
	b := januaryBudget()
	c := newCategory(t, b, "groceries", budget.TypeSpending, weekly(time.Sunday, 7000))

	updated, err := budget.WithPeriodActual(c, 1, eur(6543))

	require.NoError(t, err)
	assert.Equal(t, eur(6543), updated.Periods[1].Actual)
	assert.Equal(t, eur(0), c.Periods[1].Actual, "input must not be modified")

	total, err := budget.CategoryActual(updated)
	require.NoError(t, err)
	assert.Equal(t, eur(6543), total)

	_, err = budget.WithPeriodActual(c, 1, generic.NewMoney(1, "USD"))
	assert.ErrorIs(t, err, generic.ErrCurrencyMismatch)

	_, err = budget.WithPeriodActual(c, 9, eur(1))
	assert.ErrorIs(t, err, budget.ErrPeriodNotFound)
}
