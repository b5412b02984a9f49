package campaigns

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// PostgresLoader reads campaigns and their creators' content URLs from the
// dashboard's tables. Reads are fanned out per campaign; the scrape loop
// downstream stays strictly sequential.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

func (l *PostgresLoader) Load(ctx context.Context, ids []string) ([]models.Campaign, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name FROM campaigns WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	byID := make(map[string]*models.Campaign, len(ids))
	var id, name string
	if _, err := pgx.ForEachRow(rows, []any{&id, &name}, func() error {
		byID[id] = &models.Campaign{CampaignRef: models.CampaignRef{ID: id, Name: name}}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}

	out := make([]models.Campaign, 0, len(ids))
	for _, want := range ids {
		c, ok := byID[want]
		if !ok {
			return nil, fmt.Errorf("campaign %s not found", want)
		}
		out = append(out, *c)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range out {
		i := i
		g.Go(func() error {
			links, err := l.loadLinks(gCtx, out[i].ID)
			if err != nil {
				return err
			}
			out[i].Links = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *PostgresLoader) loadLinks(ctx context.Context, campaignID string) ([]models.ContentLink, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT ccu.platform, ccu.url
		FROM campaign_creators cc
		JOIN creator_content_urls ccu ON ccu.creator_id = cc.creator_id
		WHERE cc.campaign_id = $1
		ORDER BY ccu.id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load content urls for %s: %w", campaignID, err)
	}
	var links []models.ContentLink
	var platform, url string
	if _, err := pgx.ForEachRow(rows, []any{&platform, &url}, func() error {
		links = append(links, models.ContentLink{URL: url, Platform: models.Platform(platform)})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("iterate content url rows for %s: %w", campaignID, err)
	}
	return links, nil
}
