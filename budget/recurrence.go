package budget

import (
	"fmt"
	"time"

	"github.com/warp/budget-engine/generic"
)

// =============================================================================
// RECURRENCE - How often a category's amount repeats within a budget
// =============================================================================

type RecurrenceKind string

const (
	KindNone    RecurrenceKind = "none"
	KindWeekly  RecurrenceKind = "weekly"
	KindMonthly RecurrenceKind = "monthly"
)

// Recurrence is a closed set of variants: NoneRecurrence, WeeklyRecurrence
// and MonthlyRecurrence. The unexported method keeps other packages from
// adding variants, and every variant has to supply its own resolver.
type Recurrence interface {
	Kind() RecurrenceKind

	// Amount is the target per occurrence.
	Amount() generic.Money

	// WithAmount returns the same rule with a new per-occurrence amount.
	WithAmount(generic.Money) Recurrence

	// Resolve tiles dates with this rule's occurrence ranges.
	Resolve(dates generic.DateRange) []generic.DateRange

	// SameRule is true when other aligns periods exactly like this one,
	// whatever the amounts.
	SameRule(other Recurrence) bool

	sealed()
}

// NoneRecurrence makes the whole budget span a single occurrence.
type NoneRecurrence struct {
	Target generic.Money
}

// WeeklyRecurrence has occurrences ending on Day.
type WeeklyRecurrence struct {
	Day    time.Weekday
	Target generic.Money
}

// MonthlyRecurrence has occurrences ending on Day of each month, clamped to
// the month's last day.
type MonthlyRecurrence struct {
	Day    int
	Target generic.Money
}

func (NoneRecurrence) Kind() RecurrenceKind    { return KindNone }
func (WeeklyRecurrence) Kind() RecurrenceKind  { return KindWeekly }
func (MonthlyRecurrence) Kind() RecurrenceKind { return KindMonthly }

func (r NoneRecurrence) Amount() generic.Money    { return r.Target }
func (r WeeklyRecurrence) Amount() generic.Money  { return r.Target }
func (r MonthlyRecurrence) Amount() generic.Money { return r.Target }

func (r NoneRecurrence) WithAmount(m generic.Money) Recurrence    { r.Target = m; return r }
func (r WeeklyRecurrence) WithAmount(m generic.Money) Recurrence  { r.Target = m; return r }
func (r MonthlyRecurrence) WithAmount(m generic.Money) Recurrence { r.Target = m; return r }

func (NoneRecurrence) sealed()    {}
func (WeeklyRecurrence) sealed()  {}
func (MonthlyRecurrence) sealed() {}

func (r NoneRecurrence) SameRule(other Recurrence) bool {
	_, ok := other.(NoneRecurrence)
	return ok
}

func (r WeeklyRecurrence) SameRule(other Recurrence) bool {
	o, ok := other.(WeeklyRecurrence)
	return ok && o.Day == r.Day
}

func (r MonthlyRecurrence) SameRule(other Recurrence) bool {
	o, ok := other.(MonthlyRecurrence)
	return ok && o.Day == r.Day
}

func (r NoneRecurrence) String() string { return fmt.Sprintf("none(%v)", r.Target) }
func (r WeeklyRecurrence) String() string {
	return fmt.Sprintf("weekly(%s, %v)", r.Day, r.Target)
}
func (r MonthlyRecurrence) String() string {
	return fmt.Sprintf("monthly(%d, %v)", r.Day, r.Target)
}

// =============================================================================
// RESOLVER - Tiles a budget span with occurrence ranges
// =============================================================================

// ResolvePeriods returns the ordered occurrence ranges of rec over dates.
//
// The ranges are contiguous and non-overlapping and their union covers dates
// entirely. Only the first range may start before dates.Begin and only the
// last may end after dates.End: the resolver overshoots rather than leave
// the tail of the span uncovered.
func ResolvePeriods(dates generic.DateRange, rec Recurrence) []generic.DateRange {
	return rec.Resolve(dates)
}

func (r NoneRecurrence) Resolve(dates generic.DateRange) []generic.DateRange {
	return []generic.DateRange{dates}
}

func (r WeeklyRecurrence) Resolve(dates generic.DateRange) []generic.DateRange {
	return tile(dates, r.occurrence)
}

func (r MonthlyRecurrence) Resolve(dates generic.DateRange) []generic.DateRange {
	return tile(dates, r.occurrence)
}

// occurrence returns the 7-day range ending on the first Day on or after cursor.
func (r WeeklyRecurrence) occurrence(cursor generic.Date) generic.DateRange {
	ahead := (int(r.Day) - int(cursor.Weekday()) + 7) % 7
	end := cursor.AddDays(ahead)
	return generic.DateRange{Begin: end.AddDays(-6), End: end}
}

// occurrence returns the range ending on the first clamped Day on or after
// cursor, starting the day after the previous month's clamped Day.
func (r MonthlyRecurrence) occurrence(cursor generic.Date) generic.DateRange {
	end := generic.DayOfMonthClamped(cursor.Year(), cursor.Month(), r.Day)
	if cursor.After(end) {
		end = generic.DayOfMonthClamped(cursor.Year(), cursor.Month()+1, r.Day)
	}
	prev := generic.DayOfMonthClamped(end.Year(), end.Month()-1, r.Day)
	return generic.DateRange{Begin: prev.AddDays(1), End: end}
}

func tile(dates generic.DateRange, occurrence func(generic.Date) generic.DateRange) []generic.DateRange {
	var ranges []generic.DateRange
	for cursor := dates.Begin; cursor.BeforeOrEqual(dates.End); {
		rng := occurrence(cursor)
		ranges = append(ranges, rng)
		cursor = rng.End.AddDays(1)
	}
	return ranges
}
