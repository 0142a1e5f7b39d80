package app

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novus-dashboard/novus/internal/bookeo"
	"github.com/novus-dashboard/novus/internal/observability"
	_ "github.com/novus-dashboard/novus/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOOKEO_API_KEY", "key")
	t.Setenv("BOOKEO_SECRET_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10, cfg.FetchChunkDays)
	assert.Equal(t, 100, cfg.FetchPageSize)
	assert.Equal(t, 3, cfg.FetchMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.FetchRateLimitBackoff)
	assert.Equal(t, 30, cfg.DashboardWindowDays)
	assert.True(t, cfg.Target().Equal(decimal.NewFromInt(5000)))
	assert.False(t, cfg.AuthEnabled())

	bc := cfg.Bookeo()
	assert.Equal(t, "key", bc.APIKey)
	assert.Equal(t, 50, bc.MaxPagesPerChunk)
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	t.Setenv("BOOKEO_API_KEY", "")
	t.Setenv("BOOKEO_SECRET_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bookeo.ErrMissingCredentials))
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			AppEnv:              "development",
			AppAddr:             ":8080",
			AppRequestTimeout:   time.Second,
			LogFormat:           "json",
			BookeoAPIKey:        "k",
			BookeoSecretKey:     "s",
			BookeoBaseURL:       "https://api.bookeo.com/v2",
			FetchChunkDays:      10,
			FetchPageSize:       100,
			FetchMaxAttempts:    3,
			FetchMaxPages:       50,
			DashboardWindowDays: 30,
			RevenueTarget:       "5000",
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(*Config){
		"chunk days":    func(c *Config) { c.FetchChunkDays = 0 },
		"page size":     func(c *Config) { c.FetchPageSize = 500 },
		"target":        func(c *Config) { c.RevenueTarget = "lots" },
		"env":           func(c *Config) { c.AppEnv = "qa" },
		"password hash": func(c *Config) { c.DashboardUser = "owner" },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}

func TestInTestModeFromGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestRouterServesProbes(t *testing.T) {
	cfg := &Config{AppEnv: "production", DashboardUser: "owner", DashboardPasswordHash: "$2a$10$invalid"}
	router := NewRouter(RouterParams{Config: cfg, Metrics: observability.NewMetrics()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "https://novus.test/healthz", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://novus.test/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
