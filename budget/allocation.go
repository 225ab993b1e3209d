package budget

import (
	"github.com/shopspring/decimal"
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// WEIGHT - How much of an occurrence a period represents
// =============================================================================

// Weight returns the share of a full occurrence that period p carries inside
// a budget spanning dates.
//
//   - inside the span:  1
//   - TruncateOmit:     0
//   - TruncateKeep:     1
//   - TruncateSplit:    in-budget days / period days
//
// A period extending outside the span without a truncate mode fails with
// MissingTruncationError.
func Weight(dates generic.DateRange, p Period) (decimal.Decimal, error) {
	if dates.ContainsRange(p.Dates) {
		return decimal.NewFromInt(1), nil
	}

	switch p.Truncate {
	case TruncateOmit:
		return decimal.Zero, nil
	case TruncateKeep:
		return decimal.NewFromInt(1), nil
	case TruncateSplit:
		total := p.Dates.Days()
		if total == 0 {
			return decimal.Zero, nil
		}
		inside := p.Dates.Clamp(dates).Days()
		return decimal.NewFromInt(int64(inside)).Div(decimal.NewFromInt(int64(total))), nil
	default:
		return decimal.Zero, &MissingTruncationError{Dates: p.Dates, Budget: dates}
	}
}

// Weights returns Weight for every period, in order.
func Weights(dates generic.DateRange, periods []Period) ([]decimal.Decimal, error) {
	weights := make([]decimal.Decimal, len(periods))
	for i, p := range periods {
		w, err := Weight(dates, p)
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}
	return weights, nil
}

// PeriodNominal is the recurrence amount scaled by the period's weight.
func PeriodNominal(dates generic.DateRange, rec Recurrence, p Period) (generic.Money, error) {
	w, err := Weight(dates, p)
	if err != nil {
		return generic.Money{}, err
	}
	return rec.Amount().Scale(w), nil
}
