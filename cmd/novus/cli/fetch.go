// Package cli holds the operator subcommands of the novus binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/novus-dashboard/novus/internal/analytics"
	"github.com/novus-dashboard/novus/internal/analytics/export"
	"github.com/novus-dashboard/novus/internal/shared"
)

// DashboardService builds dashboards for the fetch command.
type DashboardService interface {
	Dashboard(ctx context.Context, r shared.DateRange) (analytics.Dashboard, error)
}

// FetchOptions are the parsed flags of `novus fetch`.
type FetchOptions struct {
	From string
	To   string
	Days int
	// View selects a CSV export instead of the JSON summary.
	View string
}

// ParseFetchArgs parses `novus fetch` flags. defaultDays applies when neither
// -days nor -from is given.
func ParseFetchArgs(args []string, defaultDays int) (FetchOptions, error) {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts := FetchOptions{}
	fs.StringVar(&opts.From, "from", "", "first day YYYY-MM-DD")
	fs.StringVar(&opts.To, "to", "", "last day YYYY-MM-DD")
	fs.IntVar(&opts.Days, "days", defaultDays, "window length ending today")
	fs.StringVar(&opts.View, "csv", "", "write one CSV view instead of JSON")
	if err := fs.Parse(args); err != nil {
		return FetchOptions{}, fmt.Errorf("fetch: %w", err)
	}
	if opts.Days <= 0 {
		return FetchOptions{}, errors.New("fetch: -days must be positive")
	}
	if opts.View != "" && !validView(opts.View) {
		return FetchOptions{}, fmt.Errorf("fetch: unknown csv view %q", opts.View)
	}
	return opts, nil
}

func validView(view string) bool {
	for _, v := range export.Views {
		if v == view {
			return true
		}
	}
	return false
}

// Range resolves the options against now.
func (o FetchOptions) Range(now time.Time) (shared.DateRange, error) {
	switch {
	case o.From != "" && o.To != "":
		return shared.ParseDateRange(o.From, o.To)
	case o.From != "":
		return shared.ParseDateRange(o.From, now.UTC().Format(shared.DateLayout))
	case o.To != "":
		to, err := time.Parse(shared.DateLayout, o.To)
		if err != nil {
			return shared.DateRange{}, err
		}
		return shared.LastDays(to, o.Days), nil
	default:
		return shared.LastDays(now, o.Days), nil
	}
}

// FetchReport is the JSON document printed by `novus fetch`.
type FetchReport struct {
	Range    shared.DateRange      `json:"range"`
	Summary  analytics.Summary     `json:"summary"`
	Quality  analytics.DataQuality `json:"quality"`
	Warnings []string              `json:"warnings,omitempty"`
}

// RunFetch builds the dashboard once and writes either the summary report or
// the selected CSV view to w.
func RunFetch(ctx context.Context, svc DashboardService, opts FetchOptions, now time.Time, w io.Writer) error {
	if svc == nil {
		return errors.New("fetch: service not configured")
	}
	rng, err := opts.Range(now)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	d, err := svc.Dashboard(ctx, rng)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if opts.View != "" {
		return export.WriteView(w, d, opts.View)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(FetchReport{
		Range:    d.Range,
		Summary:  d.Summary,
		Quality:  d.Quality,
		Warnings: d.Warnings,
	})
}
