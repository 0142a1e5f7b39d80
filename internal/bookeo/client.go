package bookeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/novus-dashboard/novus/internal/booking"
)

// ErrRateLimited is returned for HTTP 429 responses.
var ErrRateLimited = errors.New("bookeo: rate limited")

// StatusError describes a non-2xx response other than 429.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bookeo: unexpected status %d", e.Code)
}

type pageInfo struct {
	TotalItems          int    `json:"totalItems"`
	TotalPages          int    `json:"totalPages"`
	CurrentPage         int    `json:"currentPage"`
	PageNavigationToken string `json:"pageNavigationToken"`
}

type page struct {
	Data []booking.Raw `json:"data"`
	Info pageInfo      `json:"info"`
}

// getPage issues a single bookings request. The token is empty for the first
// page of a window.
func (f *Fetcher) getPage(ctx context.Context, w Window, token string, number int) (page, error) {
	q := url.Values{}
	q.Set("apiKey", f.cfg.APIKey)
	q.Set("secretKey", f.cfg.SecretKey)
	q.Set("startTime", w.Start.UTC().Format(time.RFC3339))
	q.Set("endTime", w.End.UTC().Format(time.RFC3339))
	q.Set("itemsPerPage", strconv.Itoa(f.cfg.PageSize))
	if token != "" {
		q.Set("pageNavigationToken", token)
		q.Set("pageNumber", strconv.Itoa(number))
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+"/bookings?"+q.Encode(), nil)
	if err != nil {
		return page{}, fmt.Errorf("bookeo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("bookeo: request: %w", redact(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return page{}, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return page{}, &StatusError{Code: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var p page
	if err := dec.Decode(&p); err != nil {
		return page{}, fmt.Errorf("bookeo: decode page: %w", err)
	}
	return p, nil
}

// redact drops the request URL, which carries the credentials, from
// transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
