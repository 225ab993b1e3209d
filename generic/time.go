package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Timezone-free calendar date
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. It has no time-of-day and no timezone; the wrapped
// time.Time is always midnight UTC so arithmetic never crosses a DST edge.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day and location of t, keeping its wall-clock day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format(DateLayout) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	// time.Date normalizes month 13 and day 0.
	return DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
}

// DayOfMonthClamped returns the given day of the month, or the month's last
// day when the month is shorter (day 31 in February is Feb 28/29).
func DayOfMonthClamped(year int, month time.Month, day int) Date {
	// Normalize month overflow before clamping.
	first := NewDate(year, month, 1)
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// DaysBetween returns the signed number of whole days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}
