package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/novus-dashboard/novus/internal/analytics"
	"github.com/novus-dashboard/novus/internal/analytics/export"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/diagnostics"
	"github.com/novus-dashboard/novus/internal/platform/httpx"
	"github.com/novus-dashboard/novus/internal/shared"
)

const defaultRequestTimeout = 90 * time.Second

// DashboardService defines the dashboard data contract used by the handler.
type DashboardService interface {
	Dashboard(ctx context.Context, r shared.DateRange) (analytics.Dashboard, error)
	Refresh(ctx context.Context) error
}

// RunLister exposes recent fetch diagnostics.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]diagnostics.Run, error)
}

// Handler serves the dashboard views as JSON and CSV.
type Handler struct {
	logger     *slog.Logger
	service    DashboardService
	runs       RunLister
	validate   *validator.Validate
	windowDays int
	timeout    time.Duration
	csvPool    sync.Pool
	now        func() time.Time
}

// NewHandler constructs the dashboard HTTP handler. runs may be nil when
// diagnostics are not persisted.
func NewHandler(logger *slog.Logger, service DashboardService, runs RunLister, windowDays int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	h := &Handler{
		logger:     logger,
		service:    service,
		runs:       runs,
		validate:   validator.New(),
		windowDays: windowDays,
		timeout:    defaultRequestTimeout,
		now:        time.Now,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithTimeout bounds how long one request may spend building a dashboard.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

type filterParams struct {
	From    string `validate:"omitempty,datetime=2006-01-02"`
	To      string `validate:"omitempty,datetime=2006-01-02"`
	Status  string `validate:"omitempty,oneof=Cancelled FullyPaid PartiallyPaid Unpaid"`
	View    string `validate:"omitempty,oneof=summary rooms weekdays months hours trend bookings expenses"`
	Page    int    `validate:"gte=0,lte=100000"`
	PerPage int    `validate:"gte=0,lte=500"`
}

type filters struct {
	Range   shared.DateRange
	Status  booking.Status
	View    string
	Page    int
	PerPage int
}

func (h *Handler) parseFilters(r *http.Request) (filters, error) {
	q := r.URL.Query()
	params := filterParams{
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
		Status: strings.TrimSpace(q.Get("status")),
		View:   strings.ToLower(strings.TrimSpace(q.Get("view"))),
	}
	var err error
	if params.Page, err = optionalInt(q.Get("page")); err != nil {
		return filters{}, fmt.Errorf("%w: page", httpx.ErrValidation)
	}
	if params.PerPage, err = optionalInt(q.Get("per_page")); err != nil {
		return filters{}, fmt.Errorf("%w: per_page", httpx.ErrValidation)
	}
	if err := h.validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return filters{}, fmt.Errorf("%w: %s", httpx.ErrValidation, strings.ToLower(verrs[0].Field()))
		}
		return filters{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	rng := shared.LastDays(h.now(), h.windowDays)
	switch {
	case params.From != "" && params.To != "":
		rng, err = shared.ParseDateRange(params.From, params.To)
	case params.From != "":
		rng, err = shared.ParseDateRange(params.From, rng.To.Format(shared.DateLayout))
	case params.To != "":
		var to time.Time
		to, err = time.Parse(shared.DateLayout, params.To)
		if err == nil {
			rng = shared.LastDays(to, h.windowDays)
		}
	}
	if err != nil {
		return filters{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return filters{
		Range:   rng,
		Status:  booking.Status(params.Status),
		View:    params.View,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// loadDashboard parses filters and builds the dashboard, writing the error
// response itself when anything fails.
func (h *Handler) loadDashboard(w http.ResponseWriter, r *http.Request) (filters, analytics.Dashboard, bool) {
	f, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return filters{}, analytics.Dashboard{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	d, err := h.service.Dashboard(ctx, f.Range)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return filters{}, analytics.Dashboard{}, false
	}
	return f, d, true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

type revenueView struct {
	Range     shared.DateRange        `json:"range"`
	Summary   analytics.Summary       `json:"summary"`
	Breakdown analytics.Breakdown     `json:"breakdown"`
	LeadTime  analytics.LeadTimeStats `json:"leadTime"`
	Warnings  []string                `json:"warnings,omitempty"`
}

func (h *Handler) handleRevenue(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, revenueView{
		Range:     d.Range,
		Summary:   d.Summary,
		Breakdown: d.Breakdown,
		LeadTime:  d.LeadTime,
		Warnings:  d.Warnings,
	})
}

type trendView struct {
	Range    shared.DateRange       `json:"range"`
	Trend    []analytics.TrendPoint `json:"trend"`
	Warnings []string               `json:"warnings,omitempty"`
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, trendView{Range: d.Range, Trend: d.Trend, Warnings: d.Warnings})
}

type pipelineView struct {
	Range    shared.DateRange       `json:"range"`
	Pipeline analytics.PipelineView `json:"pipeline"`
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, pipelineView{Range: d.Range, Pipeline: d.Pipeline})
}

type cancellationsView struct {
	Range         shared.DateRange           `json:"range"`
	Cancellations analytics.CancellationView `json:"cancellations"`
}

func (h *Handler) handleCancellations(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, cancellationsView{Range: d.Range, Cancellations: d.Cancellations})
}

type bookingsView struct {
	Range      shared.DateRange  `json:"range"`
	Status     booking.Status    `json:"status,omitempty"`
	Pagination shared.Pagination `json:"pagination"`
	Bookings   []booking.Booking `json:"bookings"`
}

func (h *Handler) handleBookings(w http.ResponseWriter, r *http.Request) {
	f, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	matched := analytics.FilterStatus(d.Bookings, f.Status)
	page := shared.NewPagination(f.Page, f.PerPage, len(matched))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, bookingsView{
		Range:      d.Range,
		Status:     f.Status,
		Pagination: page,
		Bookings:   matched[start:end],
	})
}

type expensesView struct {
	Range      shared.DateRange          `json:"range"`
	Total      string                    `json:"total"`
	Categories []analytics.CategoryTotal `json:"categories"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

func (h *Handler) handleExpenses(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, expensesView{
		Range:      d.Range,
		Total:      d.Summary.Expenses.StringFixed(2),
		Categories: d.ExpenseCategories,
		Warnings:   d.Warnings,
	})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	f, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	view := f.View
	if view == "" {
		view = "summary"
	}
	if err := export.WriteView(buf, d, view); err != nil {
		h.handleServerError(w, "write csv", err)
		return
	}
	filename := fmt.Sprintf("novus-%s-%s.csv", view, d.Range.Key())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

type diagnosticsView struct {
	Current analytics.DataQuality `json:"current"`
	Runs    []diagnostics.Run     `json:"runs"`
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	_, d, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	view := diagnosticsView{Current: d.Quality, Runs: []diagnostics.Run{}}
	if h.runs != nil {
		limit, _ := optionalInt(r.URL.Query().Get("limit"))
		runs, err := h.runs.RecentRuns(r.Context(), limit)
		if err != nil {
			h.handleServerError(w, "list runs", err)
			return
		}
		if runs != nil {
			view.Runs = runs
		}
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context()); err != nil {
		h.handleServerError(w, "refresh", fmt.Errorf("%w: %v", httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
