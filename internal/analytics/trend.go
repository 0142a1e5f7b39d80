package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/expense"
	"github.com/novus-dashboard/novus/internal/shared"
)

// Growth is a month-over-month change. Percent is meaningless unless
// Defined is true.
type Growth struct {
	Defined bool    `json:"defined"`
	Percent float64 `json:"percent"`
}

// TrendPoint conveys one month of revenue and expense movement.
type TrendPoint struct {
	Month     string          `json:"month"`
	Label     string          `json:"label"`
	Gross     decimal.Decimal `json:"gross"`
	Collected decimal.Decimal `json:"collected"`
	Expenses  decimal.Decimal `json:"expenses"`
	Net       decimal.Decimal `json:"net"`
	Bookings  int             `json:"bookings"`
	Growth    Growth          `json:"growth"`
}

// MonthlyTrend builds the trend view. Growth compares gross revenue against
// the previous calendar month and is undefined when that month has no point
// or a zero base.
func MonthlyTrend(bookings []booking.Booking, expenses []expense.Record, r shared.DateRange) []TrendPoint {
	months := ByMonth(activeBookings(bookings), r)
	index := make(map[string]int, len(months))
	points := make([]TrendPoint, 0, len(months))
	for i, g := range months {
		index[g.Key] = i
		points = append(points, TrendPoint{
			Month:     g.Key,
			Label:     g.Label,
			Gross:     g.Gross,
			Collected: g.Paid,
			Expenses:  decimal.Zero,
			Bookings:  g.Count,
		})
	}
	for _, e := range expenses {
		key := e.Date.Format(shared.MonthLayout)
		i, ok := index[key]
		if !ok {
			points = append(points, TrendPoint{Month: key, Label: monthLabel(key), Expenses: decimal.Zero})
			i = len(points) - 1
			index[key] = i
		}
		points[i].Expenses = points[i].Expenses.Add(e.Amount)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	for i := range points {
		points[i].Net = points[i].Collected.Sub(points[i].Expenses)
		if i > 0 && points[i-1].Month == previousMonth(points[i].Month) {
			points[i].Growth = GrowthBetween(points[i-1].Gross, points[i].Gross)
		}
	}
	return points
}

// GrowthBetween returns (cur - prev) / prev * 100, rounded to two places.
func GrowthBetween(prev, cur decimal.Decimal) Growth {
	if prev.IsZero() {
		return Growth{}
	}
	pct := cur.Sub(prev).Div(prev).Mul(hundred).Round(2)
	return Growth{Defined: true, Percent: pct.InexactFloat64()}
}

func previousMonth(key string) string {
	t, err := time.Parse(shared.MonthLayout, key)
	if err != nil {
		return ""
	}
	return t.AddDate(0, -1, 0).Format(shared.MonthLayout)
}
