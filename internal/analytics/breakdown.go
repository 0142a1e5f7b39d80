package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/shared"
)

// Group aggregates non-cancelled bookings sharing one dimension value.
type Group struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Gross decimal.Decimal `json:"gross"`
	Paid  decimal.Decimal `json:"paid"`
	Count int             `json:"count"`
}

func (g *Group) add(b booking.Booking) {
	g.Gross = g.Gross.Add(b.TotalGross)
	g.Paid = g.Paid.Add(b.TotalPaid)
	g.Count++
}

// Breakdown holds the per-dimension groupings shown on the revenue view.
type Breakdown struct {
	Rooms    []Group `json:"rooms"`
	Weekdays []Group `json:"weekdays"`
	Months   []Group `json:"months"`
	Hours    []Group `json:"hours"`
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Breakdowns groups non-cancelled bookings by room, weekday, month and hour.
// Weekdays, hours and the months of r are always present even when empty.
func Breakdowns(bookings []booking.Booking, r shared.DateRange) Breakdown {
	active := activeBookings(bookings)
	return Breakdown{
		Rooms:    ByRoom(active),
		Weekdays: ByWeekday(active),
		Months:   ByMonth(active, r),
		Hours:    ByHour(active),
	}
}

// ByRoom sorts rooms by gross descending, then by name.
func ByRoom(bookings []booking.Booking) []Group {
	index := map[string]*Group{}
	for _, b := range bookings {
		g, ok := index[b.RoomOrProduct]
		if !ok {
			g = &Group{Key: b.RoomOrProduct, Label: b.RoomOrProduct}
			index[b.RoomOrProduct] = g
		}
		g.add(b)
	}
	groups := make([]Group, 0, len(index))
	for _, g := range index {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].Gross.Cmp(groups[j].Gross); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// ByWeekday returns Monday through Sunday.
func ByWeekday(bookings []booking.Booking) []Group {
	groups := make([]Group, len(weekdayOrder))
	pos := map[time.Weekday]int{}
	for i, d := range weekdayOrder {
		groups[i] = Group{Key: fmt.Sprint(i + 1), Label: d.String()}
		pos[d] = i
	}
	for _, b := range bookings {
		groups[pos[b.EventDate.Weekday()]].add(b)
	}
	return groups
}

// ByMonth returns every month of r in order plus any month a booking falls in
// outside it, so group sums always equal the totals.
func ByMonth(bookings []booking.Booking, r shared.DateRange) []Group {
	index := map[string]*Group{}
	var keys []string
	ensure := func(key string) *Group {
		if g, ok := index[key]; ok {
			return g
		}
		g := &Group{Key: key, Label: monthLabel(key)}
		index[key] = g
		keys = append(keys, key)
		return g
	}
	for _, m := range r.Months() {
		ensure(m.Format(shared.MonthLayout))
	}
	for _, b := range bookings {
		ensure(b.EventDate.Format(shared.MonthLayout)).add(b)
	}
	sort.Strings(keys)
	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, *index[k])
	}
	return groups
}

// ByHour returns hours 0 to 23 of the event's local time.
func ByHour(bookings []booking.Booking) []Group {
	groups := make([]Group, 24)
	for h := range groups {
		groups[h] = Group{Key: fmt.Sprintf("%02d", h), Label: HourLabel(h)}
	}
	for _, b := range bookings {
		groups[b.EventDate.Hour()].add(b)
	}
	return groups
}

// HourLabel renders 0..23 as "12 AM".."11 PM".
func HourLabel(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d %s", h12, suffix)
}

func monthLabel(key string) string {
	t, err := time.Parse(shared.MonthLayout, key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

func activeBookings(bookings []booking.Booking) []booking.Booking {
	out := make([]booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !b.Canceled {
			out = append(out, b)
		}
	}
	return out
}
