package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/bookeo"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/expense"
	"github.com/novus-dashboard/novus/internal/shared"
)

// DataQuality reports how complete and clean the underlying data was.
type DataQuality struct {
	Fetched      int                   `json:"fetched"`
	Duplicates   int                   `json:"duplicates"`
	MissingID    int                   `json:"missingId"`
	Anomalies    map[string]int        `json:"anomalies,omitempty"`
	PriceSources map[string]int        `json:"priceSources,omitempty"`
	FailedChunks int                   `json:"failedChunks"`
	Complete     bool                  `json:"complete"`
	Chunks       []bookeo.ChunkOutcome `json:"chunks,omitempty"`
	RunID        string                `json:"runId,omitempty"`
}

// Dashboard is every view over one date range.
type Dashboard struct {
	Range             shared.DateRange  `json:"range"`
	GeneratedAt       time.Time         `json:"generatedAt"`
	Summary           Summary           `json:"summary"`
	Breakdown         Breakdown         `json:"breakdown"`
	Trend             []TrendPoint      `json:"trend"`
	Pipeline          PipelineView      `json:"pipeline"`
	Cancellations     CancellationView  `json:"cancellations"`
	LeadTime          LeadTimeStats     `json:"leadTime"`
	ExpenseCategories []CategoryTotal   `json:"expenseCategories"`
	Bookings          []booking.Booking `json:"bookings"`
	Expenses          []expense.Record  `json:"expenses"`
	Quality           DataQuality       `json:"quality"`
	Warnings          []string          `json:"warnings,omitempty"`
}

// Input is what Build aggregates. Bookings must be deduplicated; expenses may
// span any dates and are filtered to Range.
type Input struct {
	Range    shared.DateRange
	Bookings []booking.Booking
	Expenses []expense.Record
	Target   decimal.Decimal
	Now      time.Time
}

// Build computes every view. It is pure and never fails; empty input yields
// a zero dashboard with all fixed groups present.
func Build(in Input) Dashboard {
	expenses := expense.FilterRange(in.Expenses, in.Range)
	bookings := in.Bookings
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	return Dashboard{
		Range:             in.Range,
		GeneratedAt:       in.Now,
		Summary:           Summarize(bookings, expenses, in.Target),
		Breakdown:         Breakdowns(bookings, in.Range),
		Trend:             MonthlyTrend(bookings, expenses, in.Range),
		Pipeline:          Pipeline(bookings),
		Cancellations:     Cancellations(bookings),
		LeadTime:          LeadTime(bookings),
		ExpenseCategories: ExpensesByCategory(expenses),
		Bookings:          bookings,
		Expenses:          expenses,
		Quality:           DataQuality{Complete: true, Anomalies: CountAnomalies(bookings)},
	}
}

// CountAnomalies tallies anomaly flags across bookings.
func CountAnomalies(bookings []booking.Booking) map[string]int {
	counts := map[string]int{}
	for _, b := range bookings {
		for _, a := range b.Anomalies {
			counts[a]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

// FilterStatus returns the bookings with the given status; an empty status
// keeps everything.
func FilterStatus(bookings []booking.Booking, status booking.Status) []booking.Booking {
	if status == "" {
		return bookings
	}
	out := make([]booking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}
