// Package bookeo fetches raw bookings from the Bookeo reservations API.
package bookeo

import (
	"errors"
	"strings"
	"time"
)

// DefaultBaseURL is the public Bookeo v2 endpoint.
const DefaultBaseURL = "https://api.bookeo.com/v2"

// maxPageSize is the largest itemsPerPage the API accepts.
const maxPageSize = 100

// ErrMissingCredentials is returned when the API or secret key is empty.
var ErrMissingCredentials = errors.New("bookeo: api key and secret key are required")

// Config controls chunking, paging and retry behaviour. Credentials are passed
// explicitly so the fetcher never reads process state.
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string

	ChunkDays        int
	PageSize         int
	MaxAttempts      int
	MaxPagesPerChunk int

	// RateLimitBackoff is multiplied by the attempt number after a 429.
	RateLimitBackoff time.Duration
	// ErrorBackoff is the fixed wait after other failures.
	ErrorBackoff time.Duration
	// PagePause is the minimum spacing between page requests.
	PagePause time.Duration

	RequestTimeout time.Duration
}

// Validate reports configuration errors that must stop startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ChunkDays <= 0 {
		c.ChunkDays = 10
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxPagesPerChunk <= 0 {
		c.MaxPagesPerChunk = 50
	}
	if c.RateLimitBackoff < 0 {
		c.RateLimitBackoff = 0
	}
	if c.ErrorBackoff < 0 {
		c.ErrorBackoff = 0
	}
	if c.PagePause < 0 {
		c.PagePause = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}
