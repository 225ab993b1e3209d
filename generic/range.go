package generic

// =============================================================================
// DATE RANGE - Inclusive span of calendar days
// =============================================================================

// DateRange is an inclusive span of calendar days [Begin, End].
//
// Examples:
//   - A budget:        2024-01-01 .. 2024-12-31
//   - A weekly period: 2024-01-01 .. 2024-01-07
type DateRange struct {
	Begin Date
	End   Date
}

func NewDateRange(begin, end Date) DateRange {
	return DateRange{Begin: begin, End: end}
}

// Validate reports ErrInvalidRange when End is before Begin.
func (r DateRange) Validate() error {
	if r.Begin.IsZero() || r.End.IsZero() || r.End.Before(r.Begin) {
		return &InvalidRangeError{Range: r}
	}
	return nil
}

// Days returns the inclusive number of days in the range, or 0 when the range
// is inverted (an empty intersection).
func (r DateRange) Days() int {
	if r.End.Before(r.Begin) {
		return 0
	}
	return DaysBetween(r.Begin, r.End) + 1
}

// IsEmpty is true for an inverted range.
func (r DateRange) IsEmpty() bool { return r.End.Before(r.Begin) }

// Contains returns true if the date is within [Begin, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Begin) && d.BeforeOrEqual(r.End)
}

// ContainsRange returns true if inner lies entirely within r.
func (r DateRange) ContainsRange(inner DateRange) bool {
	return r.Contains(inner.Begin) && r.Contains(inner.End)
}

// Overlaps returns true if the two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Clamp(other).IsEmpty()
}

// Clamp narrows r so it does not exceed bounds on either side. The result is
// empty (see IsEmpty) when the ranges do not intersect.
func (r DateRange) Clamp(bounds DateRange) DateRange {
	out := r
	if out.Begin.Before(bounds.Begin) {
		out.Begin = bounds.Begin
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out
}

// Equal compares both ends.
func (r DateRange) Equal(other DateRange) bool {
	return r.Begin.Equal(other.Begin) && r.End.Equal(other.End)
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	return "[" + r.Begin.String() + ", " + r.End.String() + "]"
}

