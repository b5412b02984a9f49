package store

import (
	"context"
	"sync"
	"time"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// CampaignAggregate is the in-memory analytics row for one campaign.
type CampaignAggregate struct {
	TotalViews      int64
	TotalEngagement int64
	EngagementRate  float64
	ByPlatform      map[models.Platform][]models.PlatformResult
	UpdatedAt       time.Time
}

type urlKey struct {
	CampaignID string
	Platform   models.Platform
	ContentURL string
	Date       time.Time
}

// MemoryStore is the in-process Analytics implementation, used by tests and
// by dev mode without a database. Upserts are keyed the same way as the
// postgres tables, so repeats merge rather than duplicate.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]models.CampaignStatus
	agg      map[string]CampaignAggregate
	urls     map[urlKey]URLAnalytics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]models.CampaignStatus),
		agg:      make(map[string]CampaignAggregate),
		urls:     make(map[urlKey]URLAnalytics),
	}
}

func (s *MemoryStore) SetCampaignStatus(_ context.Context, campaignID string, status models.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[campaignID] = status
	return nil
}

func (s *MemoryStore) UpdateCampaignAnalytics(_ context.Context, campaignID string, totalViews, totalEngagement int64, engagementRate float64, byPlatform map[models.Platform][]models.PlatformResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg[campaignID] = CampaignAggregate{
		TotalViews:      totalViews,
		TotalEngagement: totalEngagement,
		EngagementRate:  engagementRate,
		ByPlatform:      byPlatform,
		UpdatedAt:       time.Now(),
	}
	return nil
}

func (s *MemoryStore) UpsertURLAnalytics(_ context.Context, rec URLAnalytics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := urlKey{CampaignID: rec.CampaignID, Platform: rec.Platform, ContentURL: rec.ContentURL, Date: Day(rec.DateRecorded)}
	s.urls[k] = rec
	return nil
}

func (s *MemoryStore) Status(campaignID string) (models.CampaignStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[campaignID]
	return st, ok
}

func (s *MemoryStore) Aggregate(campaignID string) (CampaignAggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agg[campaignID]
	return a, ok
}

func (s *MemoryStore) URLRows(campaignID string) []URLAnalytics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []URLAnalytics
	for k, v := range s.urls {
		if k.CampaignID == campaignID {
			out = append(out, v)
		}
	}
	return out
}
