package analytics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/expense"
	"github.com/novus-dashboard/novus/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s got %s", msg, want, got)
}

func raws(t *testing.T, payload string) []booking.Raw {
	t.Helper()
	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.UseNumber()
	var out []booking.Raw
	require.NoError(t, decoder.Decode(&out))
	return out
}

func mustRange(t *testing.T, from, to string) shared.DateRange {
	t.Helper()
	r, err := shared.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}

func makeBooking(id, room string, event time.Time, gross, paid string, canceled bool) booking.Booking {
	g, p := dec(gross), dec(paid)
	return booking.Booking{
		ID:            id,
		EventDate:     event,
		CreatedDate:   event.AddDate(0, 0, -10),
		LeadDays:      10,
		RoomOrProduct: room,
		CustomerName:  booking.DefaultLabel,
		TotalGross:    g,
		TotalPaid:     p,
		Outstanding:   g.Sub(p),
		Canceled:      canceled,
		Status:        booking.Classify(canceled, g, p),
	}
}

const scenario = `[
	{"bookingNumber": "B100", "startTime": "2024-03-04T18:00:00Z", "price": {"totalPaid": {"amount": "30"}}},
	{"bookingNumber": "B100", "startTime": "2024-03-04T18:00:00Z", "price": {"totalPaid": {"amount": "30"}, "totalGross": {"amount": "30"}}},
	{"bookingNumber": "B200", "startTime": "2024-03-05T10:00:00Z", "canceled": true, "price": {"totalGross": {"amount": "75"}}}
]`

func TestEndToEndScenario(t *testing.T) {
	deduped := booking.Deduplicate(booking.NormalizeAll(raws(t, scenario)))
	require.Len(t, deduped.Bookings, 2)
	assert.Equal(t, 1, deduped.Duplicates)

	r := mustRange(t, "2024-03-01", "2024-03-31")
	d := Build(Input{Range: r, Bookings: deduped.Bookings, Target: dec("5000")})

	assertAmount(t, "30", d.Summary.CollectedRevenue, "collected")
	assertAmount(t, "75", d.Summary.CancellationLoss, "loss")
	assert.Equal(t, 50.0, d.Summary.CancellationRate)
	assert.Equal(t, 2, d.Summary.Bookings)
	assert.Equal(t, 1, d.Summary.CancelledBookings)
	assertAmount(t, "30", d.Summary.NetProfit, "net")
	assertAmount(t, "-4970", d.Summary.TargetDelta, "target delta")
	assert.Equal(t, 50.0, d.Cancellations.Rate)
	assert.Equal(t, 1, d.Cancellations.Count)
}

func TestRevenueIdentity(t *testing.T) {
	event := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	bookings := []booking.Booking{
		makeBooking("1", "Vault", event, "100", "100", false),
		makeBooking("2", "Vault", event.AddDate(0, 0, 1), "80", "20", false),
		makeBooking("3", "Lab", event.AddDate(0, 0, 2), "60", "0", false),
		makeBooking("4", "Lab", event.AddDate(0, 0, 3), "40", "40", true),
	}
	s := Summarize(bookings, nil, decimal.Zero)

	var gross, paid decimal.Decimal
	for _, b := range bookings {
		if !b.Canceled {
			gross = gross.Add(b.TotalGross)
			paid = paid.Add(b.TotalPaid)
		}
	}
	assert.True(t, gross.Equal(s.GrossRevenue))
	assert.True(t, paid.Equal(s.CollectedRevenue))
	assertAmount(t, "240", s.GrossRevenue, "gross")
	assertAmount(t, "120", s.CollectedRevenue, "collected")
	assertAmount(t, "120", s.OutstandingPipeline, "pipeline")
	assertAmount(t, "40", s.CancellationLoss, "loss")
	assert.Equal(t, 25.0, s.CancellationRate)
}

func TestGroupSumsMatchTotals(t *testing.T) {
	r := mustRange(t, "2024-02-01", "2024-03-31")
	base := time.Date(2024, 2, 5, 9, 30, 0, 0, time.UTC)
	bookings := []booking.Booking{
		makeBooking("1", "Vault", base, "100", "50", false),
		makeBooking("2", "Lab", base.AddDate(0, 1, 0).Add(5*time.Hour), "70", "70", false),
		makeBooking("3", "Lab", base.AddDate(0, 0, 3), "20", "0", false),
		makeBooking("4", "Vault", base, "500", "0", true),
	}
	bd := Breakdowns(bookings, r)
	s := Summarize(bookings, nil, decimal.Zero)

	for name, groups := range map[string][]Group{"rooms": bd.Rooms, "weekdays": bd.Weekdays, "months": bd.Months, "hours": bd.Hours} {
		total := decimal.Zero
		count := 0
		for _, g := range groups {
			total = total.Add(g.Gross)
			count += g.Count
		}
		assert.True(t, total.Equal(s.GrossRevenue), name)
		assert.Equal(t, s.ActiveBookings, count, name)
	}

	require.Len(t, bd.Weekdays, 7)
	assert.Equal(t, "Monday", bd.Weekdays[0].Label)
	assert.Equal(t, "Sunday", bd.Weekdays[6].Label)
	require.Len(t, bd.Hours, 24)
	assert.Equal(t, "12 AM", bd.Hours[0].Label)
	assert.Equal(t, "12 PM", bd.Hours[12].Label)
	assert.Equal(t, "11 PM", bd.Hours[23].Label)
	assert.Equal(t, 2, bd.Hours[9].Count)
	require.Len(t, bd.Months, 2)
	assert.Equal(t, "2024-02", bd.Months[0].Key)
	assert.Equal(t, "2024-03", bd.Months[1].Key)
	require.Len(t, bd.Rooms, 2)
	assert.Equal(t, "Vault", bd.Rooms[0].Key)
}

func TestByRoomTiesSortByName(t *testing.T) {
	event := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	groups := ByRoom([]booking.Booking{
		makeBooking("1", "Zeta", event, "10", "0", false),
		makeBooking("2", "Alpha", event, "10", "0", false),
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "Alpha", groups[0].Key)
}

func TestHourUsesEventOffset(t *testing.T) {
	zone := time.FixedZone("EST", -5*3600)
	event := time.Date(2024, 3, 4, 19, 0, 0, 0, zone)
	hours := ByHour([]booking.Booking{makeBooking("1", "Vault", event, "10", "0", false)})
	assert.Equal(t, 1, hours[19].Count)
}

func TestMonthlyTrendGrowthUndefinedOnZeroBase(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-02-29")
	points := MonthlyTrend(nil, nil, r)
	require.Len(t, points, 2)
	assert.False(t, points[0].Growth.Defined)
	assert.False(t, points[1].Growth.Defined)
}

func TestMonthlyTrendGrowthAndNet(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-03-31")
	bookings := []booking.Booking{
		makeBooking("1", "Vault", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), "100", "100", false),
		makeBooking("2", "Vault", time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC), "150", "50", false),
	}
	expenses := []expense.Record{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: dec("80")},
	}
	points := MonthlyTrend(bookings, expenses, r)
	require.Len(t, points, 3)

	assert.False(t, points[0].Growth.Defined)
	assert.True(t, points[1].Growth.Defined)
	assert.Equal(t, 50.0, points[1].Growth.Percent)
	assert.True(t, points[2].Growth.Defined)
	assert.Equal(t, -100.0, points[2].Growth.Percent)

	assertAmount(t, "80", points[1].Expenses, "feb expenses")
	assertAmount(t, "-30", points[1].Net, "feb net")
	assertAmount(t, "100", points[0].Net, "jan net")
}

func TestMonthlyTrendGrowthSkipsMissingMonth(t *testing.T) {
	r := mustRange(t, "2024-03-01", "2024-04-30")
	bookings := []booking.Booking{
		makeBooking("early", "Vault", time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), "100", "100", false),
		makeBooking("mar", "Vault", time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC), "150", "150", false),
		makeBooking("apr", "Vault", time.Date(2024, 4, 12, 12, 0, 0, 0, time.UTC), "300", "300", false),
	}
	points := MonthlyTrend(bookings, nil, r)
	require.Len(t, points, 3)

	assert.Equal(t, "2024-01", points[0].Month)
	assert.Equal(t, "2024-03", points[1].Month)
	assert.False(t, points[1].Growth.Defined, "february has no point")
	assert.True(t, points[2].Growth.Defined)
	assert.Equal(t, 100.0, points[2].Growth.Percent)
}

func TestPreviousMonth(t *testing.T) {
	assert.Equal(t, "2023-12", previousMonth("2024-01"))
	assert.Equal(t, "2024-02", previousMonth("2024-03"))
	assert.Equal(t, "", previousMonth("bogus"))
}

func TestGrowthBetween(t *testing.T) {
	assert.Equal(t, Growth{}, GrowthBetween(decimal.Zero, dec("10")))
	assert.Equal(t, Growth{Defined: true, Percent: 10}, GrowthBetween(dec("100"), dec("110")))
}

func TestPipelineAndStatusTotals(t *testing.T) {
	event := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	bookings := []booking.Booking{
		makeBooking("late", "Vault", event.AddDate(0, 0, 5), "80", "20", false),
		makeBooking("early", "Lab", event, "60", "0", false),
		makeBooking("paid", "Lab", event, "60", "60", false),
		makeBooking("gone", "Lab", event, "60", "0", true),
	}
	view := Pipeline(bookings)

	assertAmount(t, "120", view.Outstanding, "outstanding")
	require.Len(t, view.Open, 2)
	assert.Equal(t, "early", view.Open[0].ID)
	require.Len(t, view.ByStatus, len(booking.Statuses))
	counts := map[booking.Status]int{}
	for _, row := range view.ByStatus {
		counts[row.Status] = row.Count
	}
	assert.Equal(t, map[booking.Status]int{
		booking.StatusCancelled:     1,
		booking.StatusFullyPaid:     1,
		booking.StatusPartiallyPaid: 1,
		booking.StatusUnpaid:        1,
	}, counts)
}

func TestLeadTimeBuckets(t *testing.T) {
	event := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	mk := func(lead int, flags ...string) booking.Booking {
		b := makeBooking("x", "Vault", event, "10", "0", false)
		b.LeadDays = lead
		b.Anomalies = flags
		return b
	}
	stats := LeadTime([]booking.Booking{
		mk(-2), mk(0), mk(7), mk(8), mk(45), mk(120),
		mk(500, booking.AnomalyInvalidCreatedTime),
	})

	assert.Equal(t, 6, stats.Counted)
	got := map[string]int{}
	for _, b := range stats.Buckets {
		got[b.Label] = b.Count
	}
	assert.Equal(t, map[string]int{"negative": 1, "0-7": 2, "8-30": 1, "31-90": 1, "90+": 1}, got)
	assert.Equal(t, 29.7, stats.AverageDays)
}

func TestExpensesByCategory(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	totals := ExpensesByCategory([]expense.Record{
		{Date: day, Category: "Rent", Amount: dec("1000")},
		{Date: day, Category: "Ads", Amount: dec("50")},
		{Date: day, Category: "Ads", Amount: dec("25.5")},
	})
	require.Len(t, totals, 2)
	assert.Equal(t, "Rent", totals[0].Category)
	assertAmount(t, "75.5", totals[1].Amount, "ads")
	assert.Equal(t, 2, totals[1].Count)
}

func TestBuildEmptyInput(t *testing.T) {
	r := mustRange(t, "2024-03-01", "2024-03-31")
	d := Build(Input{Range: r})

	assert.True(t, d.Summary.GrossRevenue.IsZero())
	assert.Equal(t, 0.0, d.Summary.CancellationRate)
	assert.Len(t, d.Breakdown.Weekdays, 7)
	assert.Len(t, d.Breakdown.Hours, 24)
	assert.Len(t, d.Breakdown.Months, 1)
	assert.NotNil(t, d.Bookings)
	assert.True(t, d.Quality.Complete)
}

func TestBuildFiltersExpensesToRange(t *testing.T) {
	r := mustRange(t, "2024-03-01", "2024-03-31")
	d := Build(Input{Range: r, Expenses: []expense.Record{
		{Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: dec("100")},
		{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: dec("100")},
	}})
	assertAmount(t, "100", d.Summary.Expenses, "expenses")
	assertAmount(t, "-100", d.Summary.NetProfit, "net")
	assert.Len(t, d.Expenses, 1)
}

func TestFilterStatus(t *testing.T) {
	event := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	bookings := []booking.Booking{
		makeBooking("1", "Vault", event, "10", "10", false),
		makeBooking("2", "Vault", event, "10", "0", false),
	}
	assert.Len(t, FilterStatus(bookings, ""), 2)
	only := FilterStatus(bookings, booking.StatusUnpaid)
	require.Len(t, only, 1)
	assert.Equal(t, "2", only[0].ID)
}
