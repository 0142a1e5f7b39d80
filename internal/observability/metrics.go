package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novus-dashboard/novus/internal/bookeo"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chunksTotal     *prometheus.CounterVec
	chunkRecords    prometheus.Counter
	chunkAttempts   prometheus.Histogram
}

// NewMetrics initialises the registry with the HTTP and fetch collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "novus_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "novus_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	chunks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "novus_bookeo_chunks_total",
		Help: "Bookeo fetch windows by outcome.",
	}, []string{"status"})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "novus_bookeo_records_total",
		Help: "Raw booking records received from Bookeo.",
	})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "novus_bookeo_chunk_attempts",
		Help:    "Attempts needed per Bookeo fetch window.",
		Buckets: []float64{1, 2, 3, 5, 10},
	})
	registry.MustRegister(requests, duration, chunks, records, attempts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		chunksTotal:     chunks,
		chunkRecords:    records,
		chunkAttempts:   attempts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveChunk implements bookeo.Observer.
func (m *Metrics) ObserveChunk(outcome bookeo.ChunkOutcome) {
	if m == nil {
		return
	}
	status := string(outcome.Status)
	if outcome.Truncated {
		status = "truncated"
	}
	m.chunksTotal.WithLabelValues(status).Inc()
	m.chunkRecords.Add(float64(outcome.Records))
	if outcome.Attempts > 0 {
		m.chunkAttempts.Observe(float64(outcome.Attempts))
	}
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

var _ bookeo.Observer = (*Metrics)(nil)
