package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buslistings/bus-scraper/internal/api"
	"github.com/buslistings/bus-scraper/internal/config"
	"github.com/buslistings/bus-scraper/internal/crawl"
	"github.com/buslistings/bus-scraper/internal/database"
	"github.com/buslistings/bus-scraper/internal/dedup"
	"github.com/buslistings/bus-scraper/internal/extractor"
	"github.com/buslistings/bus-scraper/internal/fetch"
	"github.com/buslistings/bus-scraper/internal/pipeline"
	"github.com/buslistings/bus-scraper/internal/ratelimit"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Crawler.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Crawler.RunDeadline)
		defer cancel()
	}

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		return 1
	}

	repo := database.NewBusRepo(db)

	var index dedup.Index = repo
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		index = dedup.NewCachedIndex(redisClient, repo, 24*time.Hour, logger)
	}

	resolver := dedup.NewResolver(index)
	pipe := pipeline.New(repo, resolver, logger)

	rps := cfg.RateLimit.RequestsPerSecond
	if cfg.Crawler.HostDelay > 0 {
		// A configured per-host delay is a floor on request spacing.
		if spaced := 1 / cfg.Crawler.HostDelay.Seconds(); spaced < rps {
			rps = spaced
		}
	}
	limiter := ratelimit.NewHostLimiter(rps, cfg.RateLimit.Burst)

	fetcher := fetch.NewFetcher(limiter, cfg.Fetch.UserAgents, cfg.Fetch.Timeout)
	interceptor := fetch.NewRetryInterceptor(fetcher, fetch.Policy{
		MaxRetries:        cfg.Retry.MaxRetries,
		InitialDelay:      cfg.Retry.InitialDelay,
		MaxDelay:          cfg.Retry.MaxDelay,
		JitterFraction:    cfg.Retry.JitterFraction,
		RetryableStatuses: cfg.Retry.RetryableStatuses,
	}, logger)

	ext, err := extractor.New(cfg.Crawler.SeedURL)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		return 1
	}

	scheduler := crawl.NewScheduler(interceptor, ext, pipe, cfg.Crawler.MaxWorkers, logger)

	statusServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(scheduler, logger).Router(),
	}
	go func() {
		if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = statusServer.Shutdown(shutdownCtx)
	}()

	summary, err := scheduler.Run(ctx, cfg.Crawler.SeedURL)
	if err != nil {
		logger.Error("crawl run aborted", "error", err)
		return 1
	}

	if summary.PermanentlyFailed > 0 || summary.PersistFailures > 0 {
		logger.Warn("crawl run finished with partial failures",
			"failed_tasks", summary.PermanentlyFailed,
			"persist_failures", summary.PersistFailures)
	}

	return 0
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
