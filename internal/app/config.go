package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/novus-dashboard/novus/internal/bookeo"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production test"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"90s" validate:"gt=0"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty text json"`

	BookeoAPIKey    string `envconfig:"BOOKEO_API_KEY"`
	BookeoSecretKey string `envconfig:"BOOKEO_SECRET_KEY"`
	BookeoBaseURL   string `envconfig:"BOOKEO_BASE_URL" default:"https://api.bookeo.com/v2" validate:"url"`

	FetchChunkDays        int           `envconfig:"FETCH_CHUNK_DAYS" default:"10" validate:"gte=1,lte=31"`
	FetchPageSize         int           `envconfig:"FETCH_PAGE_SIZE" default:"100" validate:"gte=1,lte=100"`
	FetchMaxAttempts      int           `envconfig:"FETCH_MAX_ATTEMPTS" default:"3" validate:"gte=1,lte=10"`
	FetchMaxPages         int           `envconfig:"FETCH_MAX_PAGES" default:"50" validate:"gte=1"`
	FetchRateLimitBackoff time.Duration `envconfig:"FETCH_RATE_LIMIT_BACKOFF" default:"2s" validate:"gte=0"`
	FetchErrorBackoff     time.Duration `envconfig:"FETCH_ERROR_BACKOFF" default:"1s" validate:"gte=0"`
	FetchPagePause        time.Duration `envconfig:"FETCH_PAGE_PAUSE" default:"200ms" validate:"gte=0"`

	ExpenseCSVURL string `envconfig:"EXPENSE_CSV_URL"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m" validate:"gte=0"`

	PGDSN string `envconfig:"PG_DSN"`

	DashboardWindowDays   int    `envconfig:"DASHBOARD_WINDOW_DAYS" default:"30" validate:"gte=1,lte=366"`
	RevenueTarget         string `envconfig:"REVENUE_TARGET" default:"5000" validate:"numeric"`
	DashboardUser         string `envconfig:"DASHBOARD_USER"`
	DashboardPasswordHash string `envconfig:"DASHBOARD_PASSWORD_HASH" validate:"required_with=DashboardUser"`

	WarmupCron        string `envconfig:"WARMUP_CRON" default:"*/10 * * * *"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the booking credentials.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BookeoAPIKey) == "" || strings.TrimSpace(c.BookeoSecretKey) == "" {
		return fmt.Errorf("config: BOOKEO_API_KEY and BOOKEO_SECRET_KEY: %w", bookeo.ErrMissingCredentials)
	}
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config: invalid %s (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Bookeo maps the fetch settings onto the client configuration.
func (c *Config) Bookeo() bookeo.Config {
	return bookeo.Config{
		BaseURL:          c.BookeoBaseURL,
		APIKey:           c.BookeoAPIKey,
		SecretKey:        c.BookeoSecretKey,
		ChunkDays:        c.FetchChunkDays,
		PageSize:         c.FetchPageSize,
		MaxAttempts:      c.FetchMaxAttempts,
		MaxPagesPerChunk: c.FetchMaxPages,
		RateLimitBackoff: c.FetchRateLimitBackoff,
		ErrorBackoff:     c.FetchErrorBackoff,
		PagePause:        c.FetchPagePause,
	}
}

// Target parses REVENUE_TARGET; Validate guarantees it is numeric.
func (c *Config) Target() decimal.Decimal {
	d, err := decimal.NewFromString(c.RevenueTarget)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AuthEnabled reports whether basic auth protects the dashboard.
func (c *Config) AuthEnabled() bool {
	return c != nil && c.DashboardUser != ""
}
