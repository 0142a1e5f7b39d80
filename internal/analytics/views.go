package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/expense"
)

// StatusTotal aggregates bookings of one payment status.
type StatusTotal struct {
	Status      booking.Status  `json:"status"`
	Count       int             `json:"count"`
	Gross       decimal.Decimal `json:"gross"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// PipelineView lists money still to be collected.
type PipelineView struct {
	Outstanding decimal.Decimal   `json:"outstanding"`
	ByStatus    []StatusTotal     `json:"byStatus"`
	Open        []booking.Booking `json:"open"`
}

// Pipeline summarises every status and lists the unpaid and partially paid
// bookings by event date.
func Pipeline(bookings []booking.Booking) PipelineView {
	view := PipelineView{Outstanding: decimal.Zero, ByStatus: StatusTotals(bookings)}
	for _, b := range bookings {
		if b.Status == booking.StatusUnpaid || b.Status == booking.StatusPartiallyPaid {
			view.Open = append(view.Open, b)
			view.Outstanding = view.Outstanding.Add(b.Outstanding)
		}
	}
	sort.SliceStable(view.Open, func(i, j int) bool {
		return view.Open[i].EventDate.Before(view.Open[j].EventDate)
	})
	return view
}

// StatusTotals returns one row per status in display order.
func StatusTotals(bookings []booking.Booking) []StatusTotal {
	rows := make([]StatusTotal, len(booking.Statuses))
	pos := make(map[booking.Status]int, len(booking.Statuses))
	for i, st := range booking.Statuses {
		rows[i] = StatusTotal{Status: st, Gross: decimal.Zero, Paid: decimal.Zero, Outstanding: decimal.Zero}
		pos[st] = i
	}
	for _, b := range bookings {
		i, ok := pos[b.Status]
		if !ok {
			continue
		}
		rows[i].Count++
		rows[i].Gross = rows[i].Gross.Add(b.TotalGross)
		rows[i].Paid = rows[i].Paid.Add(b.TotalPaid)
		rows[i].Outstanding = rows[i].Outstanding.Add(b.Outstanding)
	}
	return rows
}

// CancellationView details lost revenue.
type CancellationView struct {
	Loss      decimal.Decimal   `json:"loss"`
	Rate      float64           `json:"rate"`
	Count     int               `json:"count"`
	ByRoom    []Group           `json:"byRoom"`
	Cancelled []booking.Booking `json:"cancelled"`
}

// Cancellations groups cancelled bookings by room, most recent event first.
func Cancellations(bookings []booking.Booking) CancellationView {
	var cancelled []booking.Booking
	loss := decimal.Zero
	for _, b := range bookings {
		if b.Canceled {
			cancelled = append(cancelled, b)
			loss = loss.Add(b.TotalGross)
		}
	}
	sort.SliceStable(cancelled, func(i, j int) bool {
		return cancelled[i].EventDate.After(cancelled[j].EventDate)
	})
	return CancellationView{
		Loss:      loss,
		Rate:      percentOf(len(cancelled), len(bookings)),
		Count:     len(cancelled),
		ByRoom:    ByRoom(cancelled),
		Cancelled: cancelled,
	}
}

// LeadBucket counts bookings made a given number of days ahead.
type LeadBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LeadTimeStats describes how far ahead customers book.
type LeadTimeStats struct {
	AverageDays float64      `json:"averageDays"`
	Counted     int          `json:"counted"`
	Buckets     []LeadBucket `json:"buckets"`
}

var leadBuckets = []struct {
	label    string
	min, max int
}{
	{"negative", math.MinInt, -1},
	{"0-7", 0, 7},
	{"8-30", 8, 30},
	{"31-90", 31, 90},
	{"90+", 91, math.MaxInt},
}

// LeadTime averages lead days over non-cancelled bookings with valid dates.
func LeadTime(bookings []booking.Booking) LeadTimeStats {
	stats := LeadTimeStats{Buckets: make([]LeadBucket, len(leadBuckets))}
	for i, lb := range leadBuckets {
		stats.Buckets[i].Label = lb.label
	}
	total := 0
	for _, b := range bookings {
		if b.Canceled || b.HasAnomaly(booking.AnomalyInvalidEventTime) || b.HasAnomaly(booking.AnomalyInvalidCreatedTime) {
			continue
		}
		stats.Counted++
		total += b.LeadDays
		for i, lb := range leadBuckets {
			if b.LeadDays >= lb.min && b.LeadDays <= lb.max {
				stats.Buckets[i].Count++
				break
			}
		}
	}
	if stats.Counted > 0 {
		stats.AverageDays = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(stats.Counted))).Round(1).InexactFloat64()
	}
	return stats
}

// CategoryTotal sums expenses of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// ExpensesByCategory sorts categories by amount descending, then by name.
func ExpensesByCategory(records []expense.Record) []CategoryTotal {
	index := map[string]*CategoryTotal{}
	for _, rec := range records {
		c, ok := index[rec.Category]
		if !ok {
			c = &CategoryTotal{Category: rec.Category, Amount: decimal.Zero}
			index[rec.Category] = c
		}
		c.Amount = c.Amount.Add(rec.Amount)
		c.Count++
	}
	out := make([]CategoryTotal, 0, len(index))
	for _, c := range index {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
