package bookeo

import "time"

// Window is a closed time interval fetched as one unit.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SplitWindows cuts the inclusive date range [start, end] into consecutive
// windows of chunkDays days. Dates are taken in UTC; each window ends one
// second before the next begins.
func SplitWindows(start, end time.Time, chunkDays int) []Window {
	if chunkDays <= 0 {
		chunkDays = 1
	}
	from := midnightUTC(start)
	until := midnightUTC(end).AddDate(0, 0, 1)
	if !from.Before(until) {
		return nil
	}
	var windows []Window
	for cur := from; cur.Before(until); {
		next := cur.AddDate(0, 0, chunkDays)
		if next.After(until) {
			next = until
		}
		windows = append(windows, Window{Start: cur, End: next.Add(-time.Second)})
		cur = next
	}
	return windows
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
