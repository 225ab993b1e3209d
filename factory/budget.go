/*
Package factory provides JSON to Go budget conversion.

PURPOSE:
  Converts JSON budget, category and recurrence definitions into budget
  package values and back. The API decodes request bodies into these types
  and the SQLite store keeps recurrences in this shape.

JSON SCHEMA:
  {
    "id": "2024",
    "name": "Household 2024",
    "begin": "2024-01-01",
    "end": "2024-12-31",
    "currency": "USD",
    "categories": [{
      "id": "groceries",
      "name": "Groceries",
      "type": "spending",
      "recurrence": {"type": "weekly", "day": 0, "amount": 15000, "currency": "USD"},
      "rollover": {"loss": "none", "surplus": "average"},
      "periods": [
        {"begin": "2023-12-25", "end": "2023-12-31", "nominal": 2143, "actual": 0, "truncate": "split"}
      ]
    }]
  }

  Amounts are integer minor units. Period amounts are in the category's
  currency.

VALIDATION:
  The engine assumes well-formed input, so everything structural is checked
  here: weekday 0-6, day of month 1-31, known types and modes, 3-letter
  currencies, begin <= end, periods ordered, contiguous, covering the budget,
  and truncate modes only on periods that leave the budget.

SEE ALSO:
  - budget/types.go: Target types
  - api/dto.go: Embeds these types in requests and responses
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BudgetJSON is the JSON representation of a budget.
type BudgetJSON struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Begin      string         `json:"begin"`
	End        string         `json:"end"`
	Currency   string         `json:"currency"`
	Categories []CategoryJSON `json:"categories,omitempty"`
}

// CategoryJSON is the JSON representation of a category.
type CategoryJSON struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"` // income, savings, investments, spending
	Recurrence RecurrenceJSON `json:"recurrence"`
	Rollover   *RolloverJSON  `json:"rollover,omitempty"`
	Periods    []PeriodJSON   `json:"periods,omitempty"`
	Version    int            `json:"version,omitempty"`
}

// RecurrenceJSON is the tagged representation of a recurrence.
type RecurrenceJSON struct {
	Type     string `json:"type"`          // none, weekly, monthly
	Day      *int   `json:"day,omitempty"` // weekly: 0 (Sunday) - 6, monthly: 1 - 31
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// RolloverJSON holds the loss and surplus policies.
type RolloverJSON struct {
	Loss    string `json:"loss"`    // none, average
	Surplus string `json:"surplus"` // none, average
}

// PeriodJSON is one period of a category.
type PeriodJSON struct {
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Nominal  int64  `json:"nominal"`
	Actual   int64  `json:"actual"`
	Truncate string `json:"truncate,omitempty"` // omit, split, keep
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidDefinition is returned for malformed budget JSON.
var ErrInvalidDefinition = errors.New("invalid definition")

// ValidationError lists every problem found in one definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid definition: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDefinition }

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

// =============================================================================
// BUDGET FACTORY
// =============================================================================

// BudgetFactory converts JSON definitions to budget values.
type BudgetFactory struct{}

// NewBudgetFactory creates a new budget factory.
func NewBudgetFactory() *BudgetFactory {
	return &BudgetFactory{}
}

// ParseBudget parses a JSON string into a Budget.
func (f *BudgetFactory) ParseBudget(jsonStr string) (*budget.Budget, error) {
	var bj BudgetJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return nil, fmt.Errorf("failed to parse budget JSON: %w", err)
	}
	b, err := f.BudgetFromJSON(bj)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BudgetFromJSON converts BudgetJSON to a budget.Budget, validating the
// budget and each of its categories against the budget's span.
func (f *BudgetFactory) BudgetFromJSON(bj BudgetJSON) (budget.Budget, error) {
	var errs problems

	dates, err := parseRange(bj.Begin, bj.End)
	if err != nil {
		errs.addf("budget dates: %v", err)
	}
	if !validCurrency(bj.Currency) {
		errs.addf("budget currency %q: must be a 3-letter code", bj.Currency)
	}
	if strings.TrimSpace(bj.Name) == "" {
		errs.addf("budget name is required")
	}
	if err := errs.err(); err != nil {
		return budget.Budget{}, err
	}

	b := budget.Budget{
		ID:       bj.ID,
		Name:     bj.Name,
		Dates:    dates,
		Currency: generic.Currency(bj.Currency),
	}
	seen := make(map[string]bool)
	for _, cj := range bj.Categories {
		c, err := f.CategoryFromJSON(cj, dates)
		if err != nil {
			return budget.Budget{}, fmt.Errorf("category %q: %w", cj.ID, err)
		}
		if seen[c.ID] {
			return budget.Budget{}, &ValidationError{Problems: []string{fmt.Sprintf("duplicate category id %q", c.ID)}}
		}
		seen[c.ID] = true
		b.Categories = append(b.Categories, c)
	}
	return b, nil
}

// CategoryFromJSON converts CategoryJSON to a budget.Category. Periods, when
// present, must tile dates.
func (f *BudgetFactory) CategoryFromJSON(cj CategoryJSON, dates generic.DateRange) (budget.Category, error) {
	var errs problems

	if strings.TrimSpace(cj.Name) == "" {
		errs.addf("category name is required")
	}
	categoryType := budget.CategoryType(cj.Type)
	if !categoryType.Valid() {
		errs.addf("unknown category type %q", cj.Type)
	}
	rec, err := f.RecurrenceFromJSON(cj.Recurrence)
	if err != nil {
		errs.addf("%v", err)
	}
	rollover, err := parseRollover(cj.Rollover)
	if err != nil {
		errs.addf("%v", err)
	}
	if err := errs.err(); err != nil {
		return budget.Category{}, err
	}

	c := budget.Category{
		ID:         cj.ID,
		Name:       cj.Name,
		Type:       categoryType,
		Recurrence: rec,
		Rollover:   rollover,
		Version:    cj.Version,
	}
	currency := rec.Amount().Currency
	for i, pj := range cj.Periods {
		p, err := parsePeriod(pj, currency)
		if err != nil {
			errs.addf("period %d: %v", i, err)
			continue
		}
		c.Periods = append(c.Periods, p)
	}
	if err := errs.err(); err != nil {
		return budget.Category{}, err
	}
	if err := ValidatePeriods(dates, c.Periods); err != nil {
		return budget.Category{}, err
	}
	return c, nil
}

// RecurrenceFromJSON converts the tagged JSON form into a Recurrence variant.
func (f *BudgetFactory) RecurrenceFromJSON(rj RecurrenceJSON) (budget.Recurrence, error) {
	if !validCurrency(rj.Currency) {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("recurrence currency %q: must be a 3-letter code", rj.Currency)}}
	}
	amount := generic.NewMoney(rj.Amount, generic.Currency(rj.Currency))

	switch budget.RecurrenceKind(rj.Type) {
	case budget.KindNone:
		return budget.NoneRecurrence{Target: amount}, nil
	case budget.KindWeekly:
		if rj.Day == nil || *rj.Day < 0 || *rj.Day > 6 {
			return nil, &ValidationError{Problems: []string{"weekly recurrence needs day 0 (Sunday) to 6"}}
		}
		return budget.WeeklyRecurrence{Day: time.Weekday(*rj.Day), Target: amount}, nil
	case budget.KindMonthly:
		if rj.Day == nil || *rj.Day < 1 || *rj.Day > 31 {
			return nil, &ValidationError{Problems: []string{"monthly recurrence needs day 1 to 31"}}
		}
		return budget.MonthlyRecurrence{Day: *rj.Day, Target: amount}, nil
	default:
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("unknown recurrence type %q", rj.Type)}}
	}
}

// ValidatePeriods checks the structural invariants the engine relies on:
// ordered, contiguous periods whose union covers dates, with only the first
// and last allowed to leave the span, and truncate modes set exactly on
// periods that do.
func ValidatePeriods(dates generic.DateRange, periods []budget.Period) error {
	if len(periods) == 0 {
		return nil
	}
	var errs problems
	last := len(periods) - 1
	for i, p := range periods {
		if err := p.Dates.Validate(); err != nil {
			errs.addf("period %d: %v", i, err)
			continue
		}
		if i > 0 && !p.Dates.Begin.Equal(periods[i-1].Dates.End.AddDays(1)) {
			errs.addf("period %d: does not start the day after period %d ends", i, i-1)
		}
		inside := dates.ContainsRange(p.Dates)
		if !inside && i != 0 && i != last {
			errs.addf("period %d: only the first and last period may leave the budget", i)
		}
		if !inside && !p.Truncate.IsSet() {
			errs.addf("period %d: leaves the budget without a truncate mode", i)
		}
		if inside && p.Truncate.IsSet() {
			errs.addf("period %d: truncate mode set on a period inside the budget", i)
		}
	}
	if periods[0].Dates.Begin.After(dates.Begin) {
		errs.addf("periods start after the budget begins")
	}
	if periods[last].Dates.End.Before(dates.End) {
		errs.addf("periods end before the budget ends")
	}
	return errs.err()
}

// =============================================================================
// TO JSON
// =============================================================================

// BudgetToJSON converts a Budget to BudgetJSON.
func (f *BudgetFactory) BudgetToJSON(b budget.Budget) BudgetJSON {
	bj := BudgetJSON{
		ID:       b.ID,
		Name:     b.Name,
		Begin:    b.Dates.Begin.String(),
		End:      b.Dates.End.String(),
		Currency: string(b.Currency),
	}
	for _, c := range b.Categories {
		bj.Categories = append(bj.Categories, f.CategoryToJSON(c))
	}
	return bj
}

// CategoryToJSON converts a Category to CategoryJSON.
func (f *BudgetFactory) CategoryToJSON(c budget.Category) CategoryJSON {
	cj := CategoryJSON{
		ID:       c.ID,
		Name:     c.Name,
		Type:     string(c.Type),
		Rollover: &RolloverJSON{Loss: string(c.Rollover.Loss), Surplus: string(c.Rollover.Surplus)},
		Periods:  make([]PeriodJSON, len(c.Periods)),
		Version:  c.Version,
	}
	if c.Recurrence != nil {
		cj.Recurrence = f.RecurrenceToJSON(c.Recurrence)
	}
	for i, p := range c.Periods {
		cj.Periods[i] = PeriodJSON{
			Begin:    p.Dates.Begin.String(),
			End:      p.Dates.End.String(),
			Nominal:  p.Nominal.Amount,
			Actual:   p.Actual.Amount,
			Truncate: string(p.Truncate),
		}
	}
	return cj
}

// RecurrenceToJSON converts a Recurrence variant to its tagged JSON form.
func (f *BudgetFactory) RecurrenceToJSON(rec budget.Recurrence) RecurrenceJSON {
	rj := RecurrenceJSON{
		Type:     string(rec.Kind()),
		Amount:   rec.Amount().Amount,
		Currency: string(rec.Amount().Currency),
	}
	switch r := rec.(type) {
	case budget.WeeklyRecurrence:
		day := int(r.Day)
		rj.Day = &day
	case budget.MonthlyRecurrence:
		day := r.Day
		rj.Day = &day
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRange(begin, end string) (generic.DateRange, error) {
	b, err := generic.ParseDate(begin)
	if err != nil {
		return generic.DateRange{}, err
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.DateRange{}, err
	}
	r := generic.NewDateRange(b, e)
	return r, r.Validate()
}

func parsePeriod(pj PeriodJSON, currency generic.Currency) (budget.Period, error) {
	dates, err := parseRange(pj.Begin, pj.End)
	if err != nil {
		return budget.Period{}, err
	}
	mode := budget.TruncateMode(pj.Truncate)
	if !mode.Valid() {
		return budget.Period{}, fmt.Errorf("unknown truncate mode %q", pj.Truncate)
	}
	return budget.Period{
		Dates:    dates,
		Nominal:  generic.NewMoney(pj.Nominal, currency),
		Actual:   generic.NewMoney(pj.Actual, currency),
		Truncate: mode,
	}, nil
}

func parseRollover(rj *RolloverJSON) (budget.Rollover, error) {
	r := budget.DefaultRollover()
	if rj == nil {
		return r, nil
	}
	if rj.Loss != "" {
		r.Loss = budget.RolloverPolicy(rj.Loss)
	}
	if rj.Surplus != "" {
		r.Surplus = budget.RolloverPolicy(rj.Surplus)
	}
	if !r.Loss.Valid() || !r.Surplus.Valid() {
		return r, fmt.Errorf("rollover policies must be none or average, got loss=%q surplus=%q", rj.Loss, rj.Surplus)
	}
	return r, nil
}

func validCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
