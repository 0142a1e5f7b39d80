package expense

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Loader reads the expense sheet from an http(s) CSV export or a local file.
type Loader struct {
	source     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLoader constructs a Loader. An empty source yields no expenses.
func NewLoader(source string, httpClient *http.Client, logger *slog.Logger) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: strings.TrimSpace(source), httpClient: httpClient, logger: logger}
}

// Load fetches and parses the sheet.
func (l *Loader) Load(ctx context.Context) ([]Record, error) {
	if l == nil || l.source == "" {
		return nil, nil
	}
	body, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = body.Close()
	}()
	records, err := Parse(body)
	if err != nil {
		return nil, err
	}
	flagged := 0
	for _, rec := range records {
		if len(rec.Anomalies) > 0 {
			flagged++
		}
	}
	if flagged > 0 {
		l.logger.Warn("expense rows with unparseable cells", slog.Int("rows", flagged))
	}
	return records, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(l.source, "http://") && !strings.HasPrefix(l.source, "https://") {
		f, err := os.Open(l.source)
		if err != nil {
			return nil, fmt.Errorf("expense: open %s: %w", l.source, err)
		}
		return f, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("expense: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expense: fetch sheet: %w", err)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("expense: sheet returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
