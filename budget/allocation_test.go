package budget_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
)

func TestWeight(t *testing.T) {
	dates := span("2024-01-03", "2024-01-31")
	straddling := span("2024-01-01", "2024-01-07") // 5 of 7 days inside

	tests := []struct {
		name   string
		period budget.Period
		want   decimal.Decimal
	}{
		{"inside ignores truncate", budget.Period{Dates: span("2024-01-08", "2024-01-14")}, decimal.NewFromInt(1)},
		{"omit", budget.Period{Dates: straddling, Truncate: budget.TruncateOmit}, decimal.Zero},
		{"keep", budget.Period{Dates: straddling, Truncate: budget.TruncateKeep}, decimal.NewFromInt(1)},
		{"split", budget.Period{Dates: straddling, Truncate: budget.TruncateSplit}, decimal.NewFromInt(5).Div(decimal.NewFromInt(7))},
		{"split disjoint", budget.Period{Dates: span("2024-02-05", "2024-02-11"), Truncate: budget.TruncateSplit}, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := budget.Weight(dates, tt.period)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(w), "want %s, got %s", tt.want, w)
		})
	}
}

func TestWeight_MissingTruncation(t *testing.T) {
	// GIVEN: A period leaving the budget with no truncate mode
	// WHEN: Computing its weight
	// THEN: MissingTruncationError naming the period and the budget

	dates := span("2024-01-03", "2024-01-31")
	period := budget.Period{Dates: span("2024-01-01", "2024-01-07")}

	_, err := budget.Weight(dates, period)

	var missing *budget.MissingTruncationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, period.Dates, missing.Dates)
	assert.Equal(t, dates, missing.Budget)
	assert.ErrorIs(t, err, budget.ErrMissingTruncation)
}

func TestPeriodNominal_ScalesRecurrenceAmount(t *testing.T) {
	dates := span("2024-01-03", "2024-01-31")
	period := budget.Period{Dates: span("2024-01-29", "2024-02-04"), Truncate: budget.TruncateSplit}

	nominal, err := budget.PeriodNominal(dates, weekly(0, 7000), period)

	require.NoError(t, err)
	assert.Equal(t, generic.NewMoney(3000, "EUR"), nominal)
}
