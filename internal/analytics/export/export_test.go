package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/analytics"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/shared"
)

func sampleDashboard(t *testing.T) analytics.Dashboard {
	t.Helper()
	r, err := shared.ParseDateRange("2024-01-01", "2024-02-29")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	gross := decimal.NewFromInt(120)
	b := booking.Booking{
		ID:            "B1",
		EventDate:     time.Date(2024, 2, 3, 18, 0, 0, 0, time.UTC),
		RoomOrProduct: "Vault, the big one",
		CustomerName:  "Ada",
		TotalGross:    gross,
		TotalPaid:     decimal.Zero,
		Outstanding:   gross,
		Status:        booking.StatusUnpaid,
	}
	return analytics.Build(analytics.Input{Range: r, Bookings: []booking.Booking{b}, Target: decimal.NewFromInt(100)})
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	return records
}

func TestWriteSummaryCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteSummaryCSV(buf, sampleDashboard(t)); err != nil {
		t.Fatalf("summary csv error: %v", err)
	}
	records := readCSV(t, buf)
	if len(records) < 2 {
		t.Fatalf("expected data rows, got %d", len(records))
	}
	found := false
	for _, rec := range records {
		if rec[0] == "Gross Revenue" {
			found = true
			if rec[1] != "120.00" {
				t.Fatalf("expected gross 120.00, got %q", rec[1])
			}
		}
	}
	if !found {
		t.Fatalf("gross revenue row missing")
	}
}

func TestWriteTrendLeavesUndefinedGrowthBlank(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteView(buf, sampleDashboard(t), "trend"); err != nil {
		t.Fatalf("trend csv error: %v", err)
	}
	records := readCSV(t, buf)
	if len(records) != 3 {
		t.Fatalf("expected header and two months, got %d", len(records))
	}
	if records[1][6] != "" || records[2][6] != "" {
		t.Fatalf("expected blank growth, got %q and %q", records[1][6], records[2][6])
	}
}

func TestWriteBookingsQuotesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteView(buf, sampleDashboard(t), "bookings"); err != nil {
		t.Fatalf("bookings csv error: %v", err)
	}
	records := readCSV(t, buf)
	if len(records) != 2 || records[1][2] != "Vault, the big one" {
		t.Fatalf("unexpected rows %#v", records)
	}
}

func TestWriteViewRejectsUnknown(t *testing.T) {
	if err := WriteView(&bytes.Buffer{}, sampleDashboard(t), "pdf"); err == nil {
		t.Fatalf("expected error for unknown view")
	}
}

func TestEveryViewWrites(t *testing.T) {
	d := sampleDashboard(t)
	for _, view := range Views {
		buf := &bytes.Buffer{}
		if err := WriteView(buf, d, view); err != nil {
			t.Fatalf("%s: %v", view, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("%s: empty output", view)
		}
	}
}
