package shared

import (
	"fmt"
	"time"
)

// DateLayout is the query and CSV date format.
const DateLayout = "2006-01-02"

// MonthLayout is the monthly grouping key format.
const MonthLayout = "2006-01"

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange truncates both ends to UTC dates and validates the order.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: Day(from), To: Day(to)}
	if r.To.Before(r.From) {
		return DateRange{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange, r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange parses YYYY-MM-DD bounds.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
	}
	return NewDateRange(f, t)
}

// LastDays returns the range of n days ending on the date of now.
func LastDays(now time.Time, n int) DateRange {
	if n <= 0 {
		n = 1
	}
	to := Day(now)
	return DateRange{From: to.AddDate(0, 0, -(n - 1)), To: to}
}

// Contains reports whether t falls on a date inside the range. The date is
// read in t's own location so an evening event keeps its local day.
func (r DateRange) Contains(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !day.Before(r.From) && !day.After(r.To)
}

// Days counts the dates in the range.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Months lists the first day of every month the range touches.
func (r DateRange) Months() []time.Time {
	var months []time.Time
	cur := time.Date(r.From.Year(), r.From.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(r.To.Year(), r.To.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// Key is a stable cache token.
func (r DateRange) Key() string {
	return r.From.Format(DateLayout) + "_" + r.To.Format(DateLayout)
}

// Day truncates t to its UTC date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
