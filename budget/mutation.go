package budget

import (
	"github.com/shopspring/decimal"
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// CATEGORY MUTATIONS - Pure transforms over a category snapshot
// =============================================================================
//
// Each operation returns a new Category and leaves its argument untouched,
// so a caller can diff old against new before persisting. The returned
// category has Version incremented by one.
//
//   OnRecurrence      - new rule or amount; full period reset on rule change
//   OnCategoryNominal - new category total; periods and truncation preserved
//   OnPeriodTruncate  - new truncate mode on one boundary period
//   WithPeriodActual  - externally computed actual for one period

const (
	OpRecurrence = "recurrence"
	OpNominal    = "nominal"
	OpTruncate   = "truncate"
	OpActual     = "actual"
)

// OnRecurrence applies rec to c within budget b.
//
// When c has no periods yet, or rec aligns periods differently than the
// current rule (kind, day or currency), the periods are rebuilt from the
// resolver. A rebuilt boundary period that still extends outside the budget
// keeps the truncate mode of the previous first (or last) period, defaulting
// to TruncateSplit. Every period's nominal is then recomputed from rec.
func OnRecurrence(b Budget, c Category, rec Recurrence) (Category, error) {
	if err := b.Dates.Validate(); err != nil {
		return Category{}, mutationError(OpRecurrence, c, err)
	}

	out := c.Clone()
	if needsReset(c, rec) {
		out.Periods = resetPeriods(b.Dates, c.Periods, rec)
	}

	for i := range out.Periods {
		nominal, err := PeriodNominal(b.Dates, rec, out.Periods[i])
		if err != nil {
			return Category{}, mutationError(OpRecurrence, c, err)
		}
		out.Periods[i].Nominal = nominal
	}

	out.Recurrence = rec
	out.Version++
	return out, nil
}

func needsReset(c Category, rec Recurrence) bool {
	return len(c.Periods) == 0 ||
		c.Recurrence == nil ||
		!c.Recurrence.SameRule(rec) ||
		c.Currency() != rec.Amount().Currency
}

func resetPeriods(dates generic.DateRange, prior []Period, rec Recurrence) []Period {
	ranges := ResolvePeriods(dates, rec)
	zero := generic.Zero(rec.Amount().Currency)

	periods := make([]Period, len(ranges))
	for i, r := range ranges {
		periods[i] = Period{Dates: r, Nominal: zero, Actual: zero}
	}

	var priorFirst, priorLast TruncateMode
	if len(prior) > 0 {
		priorFirst = prior[0].Truncate
		priorLast = prior[len(prior)-1].Truncate
	}

	last := len(periods) - 1
	periods[last].Truncate = boundaryTruncate(dates, periods[last].Dates, priorLast)

	carry := priorFirst
	if last == 0 && !carry.IsSet() {
		carry = priorLast
	}
	periods[0].Truncate = boundaryTruncate(dates, periods[0].Dates, carry)
	return periods
}

func boundaryTruncate(dates, period generic.DateRange, carry TruncateMode) TruncateMode {
	if dates.ContainsRange(period) {
		return TruncateUnset
	}
	if carry.IsSet() {
		return carry
	}
	return TruncateSplit
}

// OnCategoryNominal redistributes target across c's existing periods in
// proportion to their weights, then derives the per-occurrence amount from
// the first period with a nonzero weight.
//
// If every weight is zero (only Omit boundary periods, no interior period),
// the first Omit period is switched to Split so the total has somewhere to go.
func OnCategoryNominal(b Budget, c Category, target generic.Money) (Category, error) {
	if c.Recurrence == nil {
		return Category{}, mutationError(OpNominal, c, ErrNoRecurrence)
	}
	if target.Currency != c.Currency() {
		return Category{}, mutationError(OpNominal, c,
			&generic.CurrencyMismatchError{Left: c.Currency(), Right: target.Currency})
	}

	out := c.Clone()
	weights, err := Weights(b.Dates, out.Periods)
	if err != nil {
		return Category{}, mutationError(OpNominal, c, err)
	}

	if allZero(weights) {
		for i := range out.Periods {
			if out.Periods[i].Truncate == TruncateOmit {
				out.Periods[i].Truncate = TruncateSplit
				break
			}
		}
		if weights, err = Weights(b.Dates, out.Periods); err != nil {
			return Category{}, mutationError(OpNominal, c, err)
		}
	}

	shares, err := generic.Allocate(target, weights)
	if err != nil {
		return Category{}, mutationError(OpNominal, c, err)
	}
	for i := range shares {
		out.Periods[i].Nominal = shares[i]
	}

	for i, w := range weights {
		if w.IsZero() {
			continue
		}
		amount := shares[i].Scale(decimal.NewFromInt(1).Div(w))
		out.Recurrence = out.Recurrence.WithAmount(amount)
		break
	}

	out.Version++
	return out, nil
}

func allZero(weights []decimal.Decimal) bool {
	for _, w := range weights {
		if !w.IsZero() {
			return false
		}
	}
	return true
}

// OnPeriodTruncate sets the truncate mode of the boundary period at index and
// recomputes only that period's nominal.
func OnPeriodTruncate(b Budget, c Category, index int, mode TruncateMode) (Category, error) {
	if c.Recurrence == nil {
		return Category{}, mutationError(OpTruncate, c, ErrNoRecurrence)
	}
	if index < 0 || index >= len(c.Periods) {
		return Category{}, mutationError(OpTruncate, c, ErrPeriodNotFound)
	}
	if (index != 0 && index != len(c.Periods)-1) || b.Dates.ContainsRange(c.Periods[index].Dates) {
		return Category{}, mutationError(OpTruncate, c, ErrNotBoundaryPeriod)
	}

	out := c.Clone()
	out.Periods[index].Truncate = mode
	nominal, err := PeriodNominal(b.Dates, c.Recurrence, out.Periods[index])
	if err != nil {
		return Category{}, mutationError(OpTruncate, c, err)
	}
	out.Periods[index].Nominal = nominal

	out.Version++
	return out, nil
}

// WithPeriodActual records the actual amount of the period at index, as
// computed by the ledger from the period's transactions.
func WithPeriodActual(c Category, index int, actual generic.Money) (Category, error) {
	if index < 0 || index >= len(c.Periods) {
		return Category{}, mutationError(OpActual, c, ErrPeriodNotFound)
	}
	if actual.Currency != c.Currency() {
		return Category{}, mutationError(OpActual, c,
			&generic.CurrencyMismatchError{Left: c.Currency(), Right: actual.Currency})
	}

	out := c.Clone()
	out.Periods[index].Actual = actual
	out.Version++
	return out, nil
}

func mutationError(op string, c Category, err error) error {
	return &MutationError{Op: op, CategoryID: c.ID, Err: err}
}
