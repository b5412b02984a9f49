package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightreach/campaign-refresh/internal/models"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the analytics tables this service owns. The campaigns
// table itself belongs to the dashboard CRUD layer and is assumed to exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaign_analytics (
			campaign_id      TEXT PRIMARY KEY,
			total_views      BIGINT NOT NULL DEFAULT 0,
			total_engagement BIGINT NOT NULL DEFAULT 0,
			engagement_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
			platform_results JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS url_analytics (
			campaign_id     TEXT NOT NULL,
			platform        TEXT NOT NULL,
			content_url     TEXT NOT NULL,
			date_recorded   DATE NOT NULL,
			views           BIGINT NOT NULL DEFAULT 0,
			likes           BIGINT NOT NULL DEFAULT 0,
			comments        BIGINT NOT NULL DEFAULT 0,
			shares          BIGINT NOT NULL DEFAULT 0,
			engagement      BIGINT NOT NULL DEFAULT 0,
			engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			metadata        JSONB,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (campaign_id, platform, content_url, date_recorded)
		)`,
	}
	for _, s := range stmts {
		if _, err := p.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) SetCampaignStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE campaigns SET analytics_status = $2, analytics_updated_at = now() WHERE id = $1`,
		campaignID, string(status))
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateCampaignAnalytics(ctx context.Context, campaignID string, totalViews, totalEngagement int64, engagementRate float64, byPlatform map[models.Platform][]models.PlatformResult) error {
	results, err := json.Marshal(byPlatform)
	if err != nil {
		return fmt.Errorf("marshal platform results: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO campaign_analytics (campaign_id, total_views, total_engagement, engagement_rate, platform_results, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (campaign_id) DO UPDATE SET
			total_views      = EXCLUDED.total_views,
			total_engagement = EXCLUDED.total_engagement,
			engagement_rate  = EXCLUDED.engagement_rate,
			platform_results = EXCLUDED.platform_results,
			updated_at       = now()`,
		campaignID, totalViews, totalEngagement, engagementRate, results)
	if err != nil {
		return fmt.Errorf("upsert campaign analytics: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertURLAnalytics(ctx context.Context, rec URLAnalytics) error {
	var meta []byte
	if rec.Metadata != nil {
		var err error
		if meta, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("marshal url metadata: %w", err)
		}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO url_analytics (campaign_id, platform, content_url, date_recorded, views, likes, comments, shares, engagement, engagement_rate, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (campaign_id, platform, content_url, date_recorded) DO UPDATE SET
			views           = EXCLUDED.views,
			likes           = EXCLUDED.likes,
			comments        = EXCLUDED.comments,
			shares          = EXCLUDED.shares,
			engagement      = EXCLUDED.engagement,
			engagement_rate = EXCLUDED.engagement_rate,
			metadata        = EXCLUDED.metadata,
			updated_at      = now()`,
		rec.CampaignID, string(rec.Platform), rec.ContentURL, Day(rec.DateRecorded),
		rec.Views, rec.Likes, rec.Comments, rec.Shares, rec.Engagement, rec.EngagementRate, meta)
	if err != nil {
		return fmt.Errorf("upsert url analytics: %w", err)
	}
	return nil
}
