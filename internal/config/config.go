package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brightreach/campaign-refresh/internal/models"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    slog.Level
	LogFile     string

	ScraperBaseURL string
	ScrapeTimeout  time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration

	// Resource budget. Estimates are static per-platform constants, an
	// approximation of real third-party processing cost.
	ResourceLimitBytes int64
	SafetyFraction     float64
	PlatformEstimates  map[models.Platform]int64

	// Pacing between scrape calls and between campaigns.
	YouTubePace   time.Duration
	InstagramPace time.Duration
	TikTokPace    time.Duration
	CampaignPace  time.Duration

	// Optional shared ledger. Empty RedisAddr keeps the ledger in-process.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ResourceLedgerKey string
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogFile:        os.Getenv("LOG_FILE"),
		ScraperBaseURL: os.Getenv("SCRAPER_BASE_URL"),
	}

	var missingVars []string
	if cfg.DatabaseURL == "" {
		missingVars = append(missingVars, "DATABASE_URL")
	}
	if cfg.ScraperBaseURL == "" {
		missingVars = append(missingVars, "SCRAPER_BASE_URL")
	}
	if len(missingVars) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	cfg.LogLevel = slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		cfg.LogLevel = slog.LevelDebug
	}

	cfg.ScrapeTimeout = durOr("SCRAPE_TIMEOUT", 60*time.Second)
	cfg.MaxAttempts = intOr("SCRAPE_MAX_ATTEMPTS", 3)
	cfg.RetryBaseDelay = durOr("SCRAPE_RETRY_BASE_DELAY", time.Second)

	cfg.ResourceLimitBytes = int64Or("RESOURCE_LIMIT_BYTES", 500_000_000)
	cfg.SafetyFraction = floatOr("RESOURCE_SAFETY_FRACTION", 0.8)
	cfg.PlatformEstimates = map[models.Platform]int64{
		models.PlatformYouTube:   int64Or("YOUTUBE_ESTIMATE_BYTES", 2_500_000),
		models.PlatformInstagram: int64Or("INSTAGRAM_ESTIMATE_BYTES", 1_500_000),
		models.PlatformTikTok:    int64Or("TIKTOK_ESTIMATE_BYTES", 2_000_000),
	}

	cfg.YouTubePace = durOr("YOUTUBE_PACE", 5*time.Second)
	cfg.InstagramPace = durOr("INSTAGRAM_PACE", 8*time.Second)
	cfg.TikTokPace = durOr("TIKTOK_PACE", 8*time.Second)
	cfg.CampaignPace = durOr("CAMPAIGN_PACE", 10*time.Second)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = intOr("REDIS_DB", 0)
	cfg.ResourceLedgerKey = envOr("RESOURCE_LEDGER_KEY", "brightreach:resource_ledger")

	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durOr(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "var", k, "value", v, "error", err)
		return def
	}
	return d
}

func intOr(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, using default", "var", k, "value", v, "error", err)
		return def
	}
	return n
}

func int64Or(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer, using default", "var", k, "value", v, "error", err)
		return def
	}
	return n
}

func floatOr(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float, using default", "var", k, "value", v, "error", err)
		return def
	}
	return f
}
