package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novus-dashboard/novus/internal/observability"
)

func testConfig() *Config {
	return &Config{
		AppEnv:          "test",
		BookeoAPIKey:    "key",
		BookeoSecretKey: "secret",
		BookeoBaseURL:   "http://127.0.0.1:0",
		FetchChunkDays:  10,
		FetchPageSize:   100,
		RevenueTarget:   "5000",
	}
}

func TestBuildServicesWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := BuildServices(context.Background(), cfg, logger, ServiceOptions{Metrics: observability.NewMetrics(), Listen: true})
	require.NoError(t, err)
	defer s.Close(logger)

	assert.NotNil(t, s.Analytics)
	assert.NotNil(t, s.Redis)
	assert.Nil(t, s.Pool)
	assert.Nil(t, s.RunLister())
}

func TestBuildServicesDegradesWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	mr.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := BuildServices(context.Background(), cfg, logger, ServiceOptions{})
	require.NoError(t, err)
	defer s.Close(logger)
	assert.Nil(t, s.Redis)
	assert.NotNil(t, s.Analytics)
}

func TestBuildServicesRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.BookeoSecretKey = ""
	_, err := BuildServices(context.Background(), cfg, slog.Default(), ServiceOptions{SkipCache: true})
	assert.Error(t, err)
}
