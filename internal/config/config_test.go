package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://absolutebus.com/listings/", cfg.Crawler.SeedURL)
	assert.Equal(t, 16, cfg.Crawler.MaxWorkers)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.NotEmpty(t, cfg.Fetch.UserAgents)

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 60*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 0.2, cfg.Retry.JitterFraction)
	assert.Equal(t, []int{429, 500, 502, 503, 504}, cfg.Retry.RetryableStatuses)

	assert.Equal(t, float64(2), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1, cfg.RateLimit.Burst)

	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")
	assert.Equal(t, ":8080", cfg.Server.Addr)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CRAWLER_SEED_URL", "https://example.com/buses/")
	t.Setenv("CRAWLER_MAX_WORKERS", "4")
	t.Setenv("RETRY_MAX_RETRIES", "5")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("RETRY_HTTP_CODES", "429, 503")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("FETCH_USER_AGENTS", "agent-a,agent-b")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/buses/", cfg.Crawler.SeedURL)
	assert.Equal(t, 4, cfg.Crawler.MaxWorkers)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, []int{429, 503}, cfg.Retry.RetryableStatuses)
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, []string{"agent-a", "agent-b"}, cfg.Fetch.UserAgents)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CRAWLER_MAX_WORKERS", "lots")
	t.Setenv("RETRY_INITIAL_DELAY", "soon")
	t.Setenv("RETRY_HTTP_CODES", "429,many")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Crawler.MaxWorkers)
	assert.Equal(t, 1*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, []int{429, 500, 502, 503, 504}, cfg.Retry.RetryableStatuses)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty seed url", func(c *Config) { c.Crawler.SeedURL = "" }},
		{"zero workers", func(c *Config) { c.Crawler.MaxWorkers = 0 }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"zero initial delay", func(c *Config) { c.Retry.InitialDelay = 0 }},
		{"initial delay above max", func(c *Config) {
			c.Retry.InitialDelay = 2 * time.Minute
		}},
		{"jitter out of range", func(c *Config) { c.Retry.JitterFraction = 1 }},
		{"zero rps", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"no user agents", func(c *Config) { c.Fetch.UserAgents = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
