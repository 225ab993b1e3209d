package budget

import (
	"sort"

	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// CATEGORY TOTALS
// =============================================================================

// CategoryNominal sums the nominal amounts of c's periods.
func CategoryNominal(c Category) (generic.Money, error) {
	amounts := make([]generic.Money, len(c.Periods))
	for i, p := range c.Periods {
		amounts[i] = p.Nominal
	}
	return generic.Sum(c.Currency(), amounts...)
}

// CategoryActual sums the actual amounts of c's periods.
func CategoryActual(c Category) (generic.Money, error) {
	amounts := make([]generic.Money, len(c.Periods))
	for i, p := range c.Periods {
		amounts[i] = p.Actual
	}
	return generic.Sum(c.Currency(), amounts...)
}

// =============================================================================
// BUDGET SUMMARY
// =============================================================================

// LeftoversLabel names the synthetic summary row.
const LeftoversLabel = "leftovers"

// SummaryEntry is one row of a budget summary.
type SummaryEntry struct {
	Label   string
	Type    CategoryType // empty for the leftovers row
	Nominal generic.Money
	Actual  generic.Money
}

// BudgetSummary groups b's categories by type in the order income, savings,
// investments, spending (types without categories are left out), then adds a
// leftovers row of income - (savings + investments + spending) when it is
// nonzero in either nominal or actual.
func BudgetSummary(b Budget) ([]SummaryEntry, error) {
	totals := make(map[CategoryType]*SummaryEntry)
	for _, c := range b.Categories {
		entry, ok := totals[c.Type]
		if !ok {
			entry = &SummaryEntry{
				Label:   string(c.Type),
				Type:    c.Type,
				Nominal: generic.Zero(b.Currency),
				Actual:  generic.Zero(b.Currency),
			}
			totals[c.Type] = entry
		}
		if c.Recurrence == nil {
			continue
		}

		nominal, err := CategoryNominal(c)
		if err != nil {
			return nil, err
		}
		actual, err := CategoryActual(c)
		if err != nil {
			return nil, err
		}
		if entry.Nominal, err = entry.Nominal.Add(nominal); err != nil {
			return nil, err
		}
		if entry.Actual, err = entry.Actual.Add(actual); err != nil {
			return nil, err
		}
	}

	var summary []SummaryEntry
	leftovers := SummaryEntry{
		Label:   LeftoversLabel,
		Nominal: generic.Zero(b.Currency),
		Actual:  generic.Zero(b.Currency),
	}
	for _, t := range CategoryTypes {
		entry, ok := totals[t]
		if !ok {
			continue
		}
		summary = append(summary, *entry)

		// Cannot fail: every entry is in b.Currency.
		if t == TypeIncome {
			leftovers.Nominal, _ = leftovers.Nominal.Add(entry.Nominal)
			leftovers.Actual, _ = leftovers.Actual.Add(entry.Actual)
		} else {
			leftovers.Nominal, _ = leftovers.Nominal.Sub(entry.Nominal)
			leftovers.Actual, _ = leftovers.Actual.Sub(entry.Actual)
		}
	}

	if !leftovers.Nominal.IsZero() || !leftovers.Actual.IsZero() {
		summary = append(summary, leftovers)
	}
	return summary, nil
}

// =============================================================================
// STATUS AND ORDERING
// =============================================================================

type Status string

const (
	StatusActive Status = "active"
	StatusFuture Status = "future"
	StatusPast   Status = "past"
)

func (s Status) rank() int {
	switch s {
	case StatusActive:
		return 0
	case StatusFuture:
		return 1
	default:
		return 2
	}
}

// BudgetStatus classifies b relative to today.
func BudgetStatus(b Budget, today generic.Date) Status {
	switch {
	case b.Dates.End.Before(today):
		return StatusPast
	case b.Dates.Begin.After(today):
		return StatusFuture
	default:
		return StatusActive
	}
}

// CompareBudgets orders active budgets first (soonest end first), then future
// budgets (soonest begin first), then past budgets (most recent end first).
// It returns a negative number when a sorts before b.
func CompareBudgets(a, b Budget, today generic.Date) int {
	sa, sb := BudgetStatus(a, today), BudgetStatus(b, today)
	if sa != sb {
		return sa.rank() - sb.rank()
	}
	switch sa {
	case StatusActive:
		return a.Dates.End.Compare(b.Dates.End)
	case StatusFuture:
		return a.Dates.Begin.Compare(b.Dates.Begin)
	default:
		return b.Dates.End.Compare(a.Dates.End)
	}
}

// SortBudgets sorts budgets in place with CompareBudgets; equal budgets keep
// their relative order.
func SortBudgets(budgets []Budget, today generic.Date) {
	sort.SliceStable(budgets, func(i, j int) bool {
		return CompareBudgets(budgets[i], budgets[j], today) < 0
	})
}
