package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novus-dashboard/novus/internal/analytics"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/shared"
)

type stubDashboards struct {
	got []shared.DateRange
	err error
}

func (s *stubDashboards) Dashboard(ctx context.Context, r shared.DateRange) (analytics.Dashboard, error) {
	s.got = append(s.got, r)
	if s.err != nil {
		return analytics.Dashboard{}, s.err
	}
	gross := decimal.NewFromInt(120)
	return analytics.Build(analytics.Input{
		Range:  r,
		Target: decimal.NewFromInt(100),
		Bookings: []booking.Booking{{
			ID:            "B1",
			EventDate:     r.From.Add(18 * time.Hour),
			RoomOrProduct: "Heist",
			TotalGross:    gross,
			TotalPaid:     gross,
			Status:        booking.StatusFullyPaid,
		}},
	}), nil
}

var cliNow = time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

func TestParseFetchArgs(t *testing.T) {
	opts, err := ParseFetchArgs(nil, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, opts.Days)

	opts, err = ParseFetchArgs([]string{"-from", "2024-01-01", "-to", "2024-01-31", "-csv", "rooms"}, 30)
	require.NoError(t, err)
	assert.Equal(t, "rooms", opts.View)
	r, err := opts.Range(cliNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01_2024-01-31", r.Key())

	_, err = ParseFetchArgs([]string{"-days", "0"}, 30)
	assert.Error(t, err)
	_, err = ParseFetchArgs([]string{"-csv", "pdf"}, 30)
	assert.Error(t, err)
	_, err = ParseFetchArgs([]string{"-bogus"}, 30)
	assert.Error(t, err)
}

func TestFetchOptionsRange(t *testing.T) {
	r, err := FetchOptions{Days: 7}.Range(cliNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-25_2024-03-31", r.Key())

	r, err = FetchOptions{Days: 7, To: "2024-02-10"}.Range(cliNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-04_2024-02-10", r.Key())

	r, err = FetchOptions{Days: 7, From: "2024-03-20"}.Range(cliNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-20_2024-03-31", r.Key())

	_, err = FetchOptions{Days: 7, From: "2024-04-02", To: "2024-04-01"}.Range(cliNow)
	assert.Error(t, err)
}

func TestRunFetchPrintsSummary(t *testing.T) {
	svc := &stubDashboards{}
	var out bytes.Buffer
	require.NoError(t, RunFetch(context.Background(), svc, FetchOptions{Days: 30}, cliNow, &out))

	var report FetchReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Summary.Bookings)
	assert.True(t, report.Summary.CollectedRevenue.Equal(decimal.NewFromInt(120)))
	assert.True(t, report.Quality.Complete)
}

func TestRunFetchWritesCSVView(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunFetch(context.Background(), &stubDashboards{}, FetchOptions{Days: 30, View: "rooms"}, cliNow, &out))
	assert.True(t, strings.HasPrefix(out.String(), "Room,"), out.String())
	assert.Contains(t, out.String(), "Heist,120.00,120.00,1")
}

func TestRunFetchWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	err := RunFetch(context.Background(), &stubDashboards{err: boom}, FetchOptions{Days: 30}, cliNow, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
	assert.Error(t, RunFetch(context.Background(), nil, FetchOptions{Days: 30}, cliNow, &bytes.Buffer{}))
}
