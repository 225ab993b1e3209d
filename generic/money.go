/*
Package generic provides the domain-agnostic core of the budget engine.

PURPOSE:
  This package contains the value types every budget computation is built
  from: calendar dates and inclusive date ranges, and money held in integer
  minor units. Nothing here knows about budgets, categories or recurrence;
  the budget package composes these types into the period engine.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: an integer amount of minor units (cents) tagged with a currency
  - Currency: ISO 4217 code; arithmetic across currencies is an error
  - Allocate: lossless distribution of a total across weighted shares

DESIGN PRINCIPLES:
  1. Immutability: every operation returns a new value
  2. Precision: minor units are int64; fractional math uses decimal.Decimal
     and rounds exactly once per share
  3. No coercion: two currencies never mix silently
  4. Exact sums: Allocate never loses or invents a minor unit

USAGE:
  total := generic.NewMoney(100, "USD")
  shares, err := generic.Allocate(total, []decimal.Decimal{
      decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1),
  })
  // shares = [34, 33, 33]

SEE ALSO:
  - time.go: Date
  - range.go: DateRange
  - errors.go: Error types
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor units with a currency
// =============================================================================

// Currency is an ISO 4217 code such as "USD".
type Currency string

type Money struct {
	Amount   int64
	Currency Currency
}

func NewMoney(amount int64, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount of the given currency.
func Zero(currency Currency) Money { return Money{Currency: currency} }

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }
func (m Money) Neg() Money       { return Money{Amount: -m.Amount, Currency: m.Currency} }
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Equal requires both the amount and the currency to match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return &CurrencyMismatchError{Left: m.Currency, Right: other.Currency}
	}
	return nil
}

// Sum adds the given amounts. An empty list sums to zero of currency; any
// amount in another currency fails with CurrencyMismatchError.
func Sum(currency Currency, moneys ...Money) (Money, error) {
	total := Zero(currency)
	for _, m := range moneys {
		var err error
		if total, err = total.Add(m); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// Scale multiplies by factor and rounds to the nearest minor unit, halves
// away from zero.
func (m Money) Scale(factor decimal.Decimal) Money {
	return Money{Amount: m.Decimal().Mul(factor).Round(0).IntPart(), Currency: m.Currency}
}

// =============================================================================
// ALLOCATION - Exact-sum distribution across weighted shares
// =============================================================================

// Allocate splits total into len(weights) shares proportional to weights.
//
// Each share is round(total * weight / sum(weights)). The rounding residual is
// then handed out one minor unit at a time in ascending index order, skipping
// zero-weight shares and wrapping around, so the shares always sum to total
// and ties break the same way every time.
//
// Weights summing to zero fail with ErrAllocation.
func Allocate(total Money, weights []decimal.Decimal) ([]Money, error) {
	sumWeights := decimal.Zero
	for _, w := range weights {
		sumWeights = sumWeights.Add(w)
	}
	if sumWeights.IsZero() {
		return nil, &AllocationError{Total: total, Shares: len(weights)}
	}

	shares := make([]Money, len(weights))
	allocated := int64(0)
	for i, w := range weights {
		amount := total.Decimal().Mul(w).Div(sumWeights).Round(0).IntPart()
		shares[i] = Money{Amount: amount, Currency: total.Currency}
		allocated += amount
	}

	residual := total.Amount - allocated
	step := int64(1)
	if residual < 0 {
		step = -1
	}
	for i := 0; residual != 0; i = (i + 1) % len(shares) {
		if weights[i].IsZero() {
			continue
		}
		shares[i].Amount += step
		residual -= step
	}
	return shares, nil
}
