package expense

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novus-dashboard/novus/internal/shared"
)

const sheet = ` Date ,CATEGORY,Amount,Notes
2024-03-01,Rent,"$1,200.00",march
03/05/2024,Marketing,(45.50),refund
2024-03-07,,12,
not-a-date,Supplies,abc,

2024-04-02,Rent,1200,april
`

func TestParseNormalizesHeadersAndCells(t *testing.T) {
	records, err := Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "Rent", records[0].Category)
	assert.True(t, decimal.RequireFromString("1200").Equal(records[0].Amount))
	assert.Empty(t, records[0].Anomalies)

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), records[1].Date)
	assert.True(t, decimal.RequireFromString("-45.5").Equal(records[1].Amount))

	assert.Equal(t, DefaultCategory, records[2].Category)

	bad := records[3]
	assert.Equal(t, time.Unix(0, 0).UTC(), bad.Date)
	assert.True(t, bad.Amount.IsZero())
	assert.Equal(t, []string{AnomalyInvalidDate, AnomalyInvalidAmount}, bad.Anomalies)
}

func TestParseMissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("Date,Amount\n2024-01-01,5\n"))
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "category")
}

func TestParseEmptyInput(t *testing.T) {
	records, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.50", "12.5", true},
		{"€ 1,000", "1000", true},
		{"-3", "-3", true},
		{"(7.25)", "-7.25", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"1.2.3", "0", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "%s: got %s", tc.in, got)
	}
}

func TestFilterRange(t *testing.T) {
	records, err := Parse(strings.NewReader(sheet))
	require.NoError(t, err)

	r, err := shared.ParseDateRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)

	march := FilterRange(records, r)
	assert.Len(t, march, 3)
	for _, rec := range march {
		assert.Equal(t, time.March, rec.Date.Month())
	}
}

func TestLoaderReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, os.WriteFile(path, []byte(sheet), 0o600))

	records, err := NewLoader(path, nil, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestLoaderFetchesHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sheet))
	}))
	defer srv.Close()

	records, err := NewLoader(srv.URL, srv.Client(), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestLoaderHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL, srv.Client(), nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestLoaderEmptySource(t *testing.T) {
	records, err := NewLoader("  ", nil, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, records)
}
