// Package store persists campaign analytics. All writes are idempotent:
// re-running a refresh for the same campaign on the same day merges instead
// of duplicating rows.
package store

import (
	"context"
	"time"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// URLAnalytics is one per-URL analytics row. The natural key is
// (CampaignID, Platform, ContentURL, DateRecorded).
type URLAnalytics struct {
	CampaignID     string
	ContentURL     string
	Platform       models.Platform
	DateRecorded   time.Time
	Views          int64
	Likes          int64
	Comments       int64
	Shares         int64
	Engagement     int64
	EngagementRate float64
	Metadata       map[string]any
}

type Analytics interface {
	SetCampaignStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error
	UpdateCampaignAnalytics(ctx context.Context, campaignID string, totalViews, totalEngagement int64, engagementRate float64, byPlatform map[models.Platform][]models.PlatformResult) error
	UpsertURLAnalytics(ctx context.Context, rec URLAnalytics) error
}

// Day truncates t to its UTC date, the granularity of DateRecorded.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
