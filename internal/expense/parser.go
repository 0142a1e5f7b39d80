// Package expense loads manually entered expenses from a CSV export.
package expense

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/novus-dashboard/novus/internal/shared"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("expense: required columns missing")

// DefaultCategory labels rows with an empty category.
const DefaultCategory = "Uncategorized"

// Row anomaly flags.
const (
	AnomalyInvalidDate   = "invalid_date"
	AnomalyInvalidAmount = "invalid_amount"
)

// Record is one expense row.
type Record struct {
	Date      time.Time       `json:"date"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Anomalies []string        `json:"anomalies,omitempty"`
}

var requiredColumns = []string{"date", "category", "amount"}

var fold = cases.Fold()

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return fold.String(strings.Join(strings.Fields(h), " "))
}

// Parse reads CSV text with at least Date, Category and Amount columns.
// Header matching ignores case and surrounding whitespace. Bad cells become
// sentinels and are flagged instead of failing the whole sheet.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("expense: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("expense: read row: %w", err)
		}
		if blank(row) {
			continue
		}
		rec := Record{Category: cell(row, "category")}
		if rec.Category == "" {
			rec.Category = DefaultCategory
		}
		date, ok := ParseDate(cell(row, "date"))
		if !ok {
			rec.Anomalies = append(rec.Anomalies, AnomalyInvalidDate)
		}
		rec.Date = date
		amount, ok := ParseAmount(cell(row, "amount"))
		if !ok {
			rec.Anomalies = append(rec.Anomalies, AnomalyInvalidAmount)
		}
		rec.Amount = amount
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseAmount strips currency symbols, thousands separators and spaces.
// Accounting style "(12.50)" is negative. Unparseable input yields zero.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-':
			negative = !negative
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

var dateLayouts = []string{
	shared.DateLayout,
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
}

// ParseDate accepts the date formats spreadsheets commonly export. The result
// is a UTC date; failures return the Unix epoch.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				y, m, d := t.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Unix(0, 0).UTC(), false
}

// FilterRange keeps records dated inside the range.
func FilterRange(records []Record, r shared.DateRange) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}
