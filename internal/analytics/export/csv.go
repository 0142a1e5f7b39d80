// Package export renders dashboard views as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/analytics"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/shared"
)

// Views lists the sections WriteView accepts.
var Views = []string{"summary", "rooms", "weekdays", "months", "hours", "trend", "bookings", "expenses"}

// WriteView writes one named section of the dashboard.
func WriteView(w io.Writer, d analytics.Dashboard, view string) error {
	switch strings.ToLower(view) {
	case "", "summary":
		return WriteSummaryCSV(w, d)
	case "rooms":
		return WriteGroupsCSV(w, "Room", d.Breakdown.Rooms)
	case "weekdays":
		return WriteGroupsCSV(w, "Weekday", d.Breakdown.Weekdays)
	case "months":
		return WriteGroupsCSV(w, "Month", d.Breakdown.Months)
	case "hours":
		return WriteGroupsCSV(w, "Hour", d.Breakdown.Hours)
	case "trend":
		return WriteTrendCSV(w, d.Trend)
	case "bookings":
		return WriteBookingsCSV(w, d.Bookings)
	case "expenses":
		return WriteExpensesCSV(w, d.ExpenseCategories)
	}
	return fmt.Errorf("export: unknown view %q", view)
}

// WriteSummaryCSV serialises the headline metrics.
func WriteSummaryCSV(w io.Writer, d analytics.Dashboard) error {
	s := d.Summary
	return writeAll(w, []string{"Metric", "Value"}, [][]string{
		{"From", d.Range.From.Format(shared.DateLayout)},
		{"To", d.Range.To.Format(shared.DateLayout)},
		{"Gross Revenue", money(s.GrossRevenue)},
		{"Collected Revenue", money(s.CollectedRevenue)},
		{"Expenses", money(s.Expenses)},
		{"Net Profit", money(s.NetProfit)},
		{"Outstanding Pipeline", money(s.OutstandingPipeline)},
		{"Cancellation Loss", money(s.CancellationLoss)},
		{"Cancellation Rate %", formatFloat(s.CancellationRate)},
		{"Bookings", strconv.Itoa(s.Bookings)},
		{"Cancelled Bookings", strconv.Itoa(s.CancelledBookings)},
		{"Participants", strconv.Itoa(s.Participants)},
		{"Revenue Target", money(s.RevenueTarget)},
		{"Target Delta", money(s.TargetDelta)},
		{"Complete", strconv.FormatBool(d.Quality.Complete)},
	})
}

// WriteGroupsCSV emits one breakdown dimension.
func WriteGroupsCSV(w io.Writer, dimension string, groups []analytics.Group) error {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Label, money(g.Gross), money(g.Paid), strconv.Itoa(g.Count)})
	}
	return writeAll(w, []string{dimension, "Gross", "Paid", "Bookings"}, rows)
}

// WriteTrendCSV emits the monthly trend. Undefined growth is left blank.
func WriteTrendCSV(w io.Writer, points []analytics.TrendPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		growth := ""
		if p.Growth.Defined {
			growth = formatFloat(p.Growth.Percent)
		}
		rows = append(rows, []string{p.Month, money(p.Gross), money(p.Collected), money(p.Expenses), money(p.Net), strconv.Itoa(p.Bookings), growth})
	}
	return writeAll(w, []string{"Month", "Gross", "Collected", "Expenses", "Net", "Bookings", "Growth %"}, rows)
}

// WriteBookingsCSV lists canonical bookings.
func WriteBookingsCSV(w io.Writer, bookings []booking.Booking) error {
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, []string{
			b.ID,
			b.EventDate.Format("2006-01-02 15:04"),
			b.RoomOrProduct,
			b.CustomerName,
			strconv.Itoa(b.ParticipantCount),
			money(b.TotalGross),
			money(b.TotalPaid),
			money(b.Outstanding),
			string(b.Status),
			strconv.Itoa(b.LeadDays),
			strings.Join(b.Anomalies, ";"),
		})
	}
	return writeAll(w, []string{"ID", "Event", "Room", "Customer", "Participants", "Gross", "Paid", "Outstanding", "Status", "Lead Days", "Anomalies"}, rows)
}

// WriteExpensesCSV emits expense totals per category.
func WriteExpensesCSV(w io.Writer, totals []analytics.CategoryTotal) error {
	rows := make([][]string, 0, len(totals))
	for _, c := range totals {
		rows = append(rows, []string{c.Category, money(c.Amount), strconv.Itoa(c.Count)})
	}
	return writeAll(w, []string{"Category", "Amount", "Entries"}, rows)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
