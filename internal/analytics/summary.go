package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/expense"
)

var hundred = decimal.NewFromInt(100)

// Summary contains the headline figures of the dashboard.
type Summary struct {
	GrossRevenue        decimal.Decimal `json:"grossRevenue"`
	CollectedRevenue    decimal.Decimal `json:"collectedRevenue"`
	Expenses            decimal.Decimal `json:"expenses"`
	NetProfit           decimal.Decimal `json:"netProfit"`
	OutstandingPipeline decimal.Decimal `json:"outstandingPipeline"`
	CancellationLoss    decimal.Decimal `json:"cancellationLoss"`
	CancellationRate    float64         `json:"cancellationRate"`
	Bookings            int             `json:"bookings"`
	ActiveBookings      int             `json:"activeBookings"`
	CancelledBookings   int             `json:"cancelledBookings"`
	Participants        int             `json:"participants"`
	RevenueTarget       decimal.Decimal `json:"revenueTarget"`
	TargetDelta         decimal.Decimal `json:"targetDelta"`
}

// Summarize computes the headline figures. Bookings must already be
// deduplicated and expenses filtered to the reporting range. The
// cancellation rate is a percentage of all bookings.
func Summarize(bookings []booking.Booking, expenses []expense.Record, target decimal.Decimal) Summary {
	s := Summary{
		GrossRevenue:        decimal.Zero,
		CollectedRevenue:    decimal.Zero,
		Expenses:            decimal.Zero,
		OutstandingPipeline: decimal.Zero,
		CancellationLoss:    decimal.Zero,
		RevenueTarget:       target,
		Bookings:            len(bookings),
	}
	for _, b := range bookings {
		switch b.Status {
		case booking.StatusCancelled:
			s.CancelledBookings++
			s.CancellationLoss = s.CancellationLoss.Add(b.TotalGross)
			continue
		case booking.StatusUnpaid, booking.StatusPartiallyPaid:
			s.OutstandingPipeline = s.OutstandingPipeline.Add(b.Outstanding)
		}
		s.ActiveBookings++
		s.Participants += b.ParticipantCount
		s.GrossRevenue = s.GrossRevenue.Add(b.TotalGross)
		s.CollectedRevenue = s.CollectedRevenue.Add(b.TotalPaid)
	}
	for _, e := range expenses {
		s.Expenses = s.Expenses.Add(e.Amount)
	}
	s.NetProfit = s.CollectedRevenue.Sub(s.Expenses)
	s.TargetDelta = s.CollectedRevenue.Sub(target)
	s.CancellationRate = percentOf(s.CancelledBookings, s.Bookings)
	return s
}

func percentOf(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))).Round(2).InexactFloat64()
}
