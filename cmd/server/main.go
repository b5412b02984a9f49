package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/brightreach/campaign-refresh/internal/budget"
	"github.com/brightreach/campaign-refresh/internal/campaigns"
	"github.com/brightreach/campaign-refresh/internal/config"
	"github.com/brightreach/campaign-refresh/internal/httpx"
	"github.com/brightreach/campaign-refresh/internal/logging"
	"github.com/brightreach/campaign-refresh/internal/models"
	"github.com/brightreach/campaign-refresh/internal/refresh"
	"github.com/brightreach/campaign-refresh/internal/scrape"
	"github.com/brightreach/campaign-refresh/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}
	loader := campaigns.NewPostgresLoader(pool)

	var counter budget.Counter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		counter = budget.NewRedisCounter(rdb, cfg.ResourceLedgerKey)
		logger.Info("shared resource ledger enabled", slog.String("key", cfg.ResourceLedgerKey))
	}

	scraper := scrape.NewClient(cfg.ScraperBaseURL, cfg.ScrapeTimeout)
	orch := refresh.NewOrchestrator(refresh.Options{
		ResourceLimitBytes: cfg.ResourceLimitBytes,
		SafetyFraction:     cfg.SafetyFraction,
		Estimates:          cfg.PlatformEstimates,
		MaxAttempts:        cfg.MaxAttempts,
		RetryBaseDelay:     cfg.RetryBaseDelay,
		PlatformPace: map[models.Platform]time.Duration{
			models.PlatformYouTube:   cfg.YouTubePace,
			models.PlatformInstagram: cfg.InstagramPace,
			models.PlatformTikTok:    cfg.TikTokPace,
		},
		CampaignPace: cfg.CampaignPace,
	}, loader, scraper, st, counter, logger)

	r := httpx.NewRouter(logger, orch)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
