package domain

import (
	"fmt"
	"time"
)

// Day is a civil date (no time of day), stored as days since the Unix epoch
// in UTC. Permits and ledger accounting are whole-day granular.
type Day int

const dayLayout = "2006-01-02"

// DayOf truncates an instant to its UTC civil date.
func DayOf(t time.Time) Day {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / 86400)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad date %q", ErrInvalidRequest, s)
	}
	return DayOf(t), nil
}

// Time returns UTC midnight of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

// DateRange is a closed interval of days, Start <= End.
type DateRange struct {
	Start Day
	End   Day
}

// NewDateRange validates that start <= end.
func NewDateRange(start, end Day) (DateRange, error) {
	if start > end {
		return DateRange{}, fmt.Errorf("%w: range start %s after end %s", ErrInvalidRequest, start, end)
	}
	return DateRange{Start: start, End: end}, nil
}

// TotalDays is the number of days in the closed interval.
func (r DateRange) TotalDays() int {
	return int(r.End-r.Start) + 1
}

// Contains reports whether the day falls inside the range.
func (r DateRange) Contains(d Day) bool {
	return d >= r.Start && d <= r.End
}

// Overlaps reports whether two closed intervals intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// ClampFrom returns the sub-range from (and including) the given day, and
// whether any of the range remains. Used for cancellation: days before the
// cut are already consumed.
func (r DateRange) ClampFrom(from Day) (DateRange, bool) {
	if from > r.End {
		return DateRange{}, false
	}
	if from <= r.Start {
		return r, true
	}
	return DateRange{Start: from, End: r.End}, true
}

// Days returns every day in the range in ascending order.
func (r DateRange) Days() []Day {
	out := make([]Day, 0, r.TotalDays())
	for d := r.Start; d <= r.End; d++ {
		out = append(out, d)
	}
	return out
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
