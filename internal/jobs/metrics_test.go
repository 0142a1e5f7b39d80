package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	assert.NoError(t, m.Track("warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("warmup").End(boom), boom)

	body := scrape(t, registry)
	assert.Contains(t, body, `novus_jobs_total{job="warmup",status="success"} 1`)
	assert.Contains(t, body, `novus_jobs_total{job="warmup",status="failure"} 1`)
	assert.Contains(t, body, `novus_jobs_failures_total{job="warmup"} 1`)
	assert.Contains(t, body, `novus_job_duration_seconds_count{job="warmup"} 2`)
}

func TestAddBookingAnomalies(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.AddBookingAnomalies(map[string]int{"invalid_event_time": 2, "missing_id": 0})
	m.AddWarnings("warmup", 1)

	body := scrape(t, registry)
	assert.Contains(t, body, `novus_booking_anomalies_total{kind="invalid_event_time"} 2`)
	assert.NotContains(t, body, `kind="missing_id"`)
	assert.Contains(t, body, `novus_dashboard_warnings_total{job="warmup"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddBookingAnomalies(map[string]int{"x": 1})
	m.AddWarnings("warmup", 3)
	assert.NoError(t, m.Track("warmup").End(nil))
}
