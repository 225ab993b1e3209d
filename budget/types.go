// Package budget implements the budget period and allocation engine.
// It uses the generic engine's dates and money to tile a budget's span into
// recurrence-aligned periods and to distribute target amounts across them.
package budget

import (
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// CATEGORY TYPE
// =============================================================================

type CategoryType string

const (
	TypeIncome      CategoryType = "income"
	TypeSavings     CategoryType = "savings"
	TypeInvestments CategoryType = "investments"
	TypeSpending    CategoryType = "spending"
)

// CategoryTypes lists the types in summary order.
var CategoryTypes = []CategoryType{TypeIncome, TypeSavings, TypeInvestments, TypeSpending}

func (t CategoryType) Valid() bool {
	switch t {
	case TypeIncome, TypeSavings, TypeInvestments, TypeSpending:
		return true
	}
	return false
}

// =============================================================================
// TRUNCATE MODE - Policy for a period straddling the budget boundary
// =============================================================================

// TruncateMode is only meaningful on the first and last period of a
// category, and only when that period extends outside the budget's span.
// The zero value means "not set".
type TruncateMode string

const (
	TruncateUnset TruncateMode = ""
	TruncateOmit  TruncateMode = "omit"  // excluded from allocation
	TruncateSplit TruncateMode = "split" // allocated by in-budget days
	TruncateKeep  TruncateMode = "keep"  // allocated in full
)

func (m TruncateMode) IsSet() bool { return m != TruncateUnset }

func (m TruncateMode) Valid() bool {
	switch m {
	case TruncateUnset, TruncateOmit, TruncateSplit, TruncateKeep:
		return true
	}
	return false
}

// =============================================================================
// ROLLOVER
// =============================================================================

type RolloverPolicy string

const (
	RolloverNone    RolloverPolicy = "none"
	RolloverAverage RolloverPolicy = "average"
)

func (p RolloverPolicy) Valid() bool {
	return p == RolloverNone || p == RolloverAverage
}

// Rollover says how a period's shortfall (Loss) or excess (Surplus) is
// carried into the category's other periods.
type Rollover struct {
	Loss    RolloverPolicy
	Surplus RolloverPolicy
}

func DefaultRollover() Rollover {
	return Rollover{Loss: RolloverNone, Surplus: RolloverNone}
}

// =============================================================================
// PERIOD, CATEGORY, BUDGET
// =============================================================================

// Period is one occurrence of a category's recurrence.
type Period struct {
	Dates    generic.DateRange
	Nominal  generic.Money
	Actual   generic.Money
	Truncate TruncateMode
}

// Category owns its periods. Version is bumped by every engine mutation and
// is used by stores for optimistic concurrency.
type Category struct {
	ID         string
	Name       string
	Type       CategoryType
	Recurrence Recurrence
	Periods    []Period
	Rollover   Rollover
	Version    int
}

// Clone returns a deep copy. Mutations work on clones so the caller's value
// stays valid.
func (c Category) Clone() Category {
	out := c
	out.Periods = append([]Period(nil), c.Periods...)
	return out
}

// Currency is the currency of the category's recurrence amount.
func (c Category) Currency() generic.Currency {
	if c.Recurrence == nil {
		return ""
	}
	return c.Recurrence.Amount().Currency
}

// Budget owns its categories.
type Budget struct {
	ID         string
	Name       string
	Dates      generic.DateRange
	Currency   generic.Currency
	Categories []Category
}

func (b Budget) Clone() Budget {
	out := b
	if b.Categories == nil {
		return out
	}
	out.Categories = make([]Category, len(b.Categories))
	for i, c := range b.Categories {
		out.Categories[i] = c.Clone()
	}
	return out
}

// Category returns the category with the given id.
func (b Budget) Category(id string) (Category, bool) {
	for _, c := range b.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// WithCategory returns a copy of b with c replacing the category of the same
// id, or appended when b has none.
func (b Budget) WithCategory(c Category) Budget {
	out := b.Clone()
	for i := range out.Categories {
		if out.Categories[i].ID == c.ID {
			out.Categories[i] = c.Clone()
			return out
		}
	}
	out.Categories = append(out.Categories, c.Clone())
	return out
}
