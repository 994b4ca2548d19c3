package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Crawler   CrawlerConfig
	Fetch     FetchConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

type CrawlerConfig struct {
	SeedURL     string
	MaxWorkers  int
	HostDelay   time.Duration
	RunDeadline time.Duration
}

type FetchConfig struct {
	Timeout    time.Duration
	UserAgents []string
}

type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	JitterFraction    float64
	RetryableStatuses []int
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Crawler: CrawlerConfig{
			SeedURL:     getEnvOrDefault("CRAWLER_SEED_URL", "https://absolutebus.com/listings/"),
			MaxWorkers:  getIntOrDefault("CRAWLER_MAX_WORKERS", 16),
			HostDelay:   getDurationOrDefault("CRAWLER_HOST_DELAY", 0),
			RunDeadline: getDurationOrDefault("CRAWLER_RUN_DEADLINE", 0),
		},
		Fetch: FetchConfig{
			Timeout:    getDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
			UserAgents: getStringSliceOrDefault("FETCH_USER_AGENTS", defaultUserAgents()),
		},
		Retry: RetryConfig{
			MaxRetries:        getIntOrDefault("RETRY_MAX_RETRIES", 3),
			InitialDelay:      getDurationOrDefault("RETRY_INITIAL_DELAY", 1*time.Second),
			MaxDelay:          getDurationOrDefault("RETRY_MAX_DELAY", 60*time.Second),
			JitterFraction:    getFloatOrDefault("RETRY_JITTER_FRACTION", 0.2),
			RetryableStatuses: getIntSliceOrDefault("RETRY_HTTP_CODES", []int{429, 500, 502, 503, 504}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 2),
			Burst:             getIntOrDefault("RATE_LIMIT_BURST", 1),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "bus_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 8)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("SERVER_ADDR", ":8080"),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawler.SeedURL == "" {
		return fmt.Errorf("CRAWLER_SEED_URL must not be empty")
	}

	if c.Crawler.MaxWorkers < 1 {
		return fmt.Errorf("CRAWLER_MAX_WORKERS must be at least 1")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must not be negative")
	}

	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive")
	}

	if c.Retry.InitialDelay > c.Retry.MaxDelay {
		return fmt.Errorf("RETRY_INITIAL_DELAY cannot be greater than RETRY_MAX_DELAY")
	}

	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction >= 1 {
		return fmt.Errorf("RETRY_JITTER_FRACTION must be in [0, 1)")
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}

	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1")
	}

	if len(c.Fetch.UserAgents) == 0 {
		return fmt.Errorf("FETCH_USER_AGENTS must not be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getIntSliceOrDefault(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []int
	for _, part := range strings.Split(value, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, i)
	}
	return out
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
