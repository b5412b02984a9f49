// Package campaigns resolves campaign refs and their creator-attached
// content links at batch start.
package campaigns

import (
	"context"
	"fmt"
	"sync"

	"github.com/brightreach/campaign-refresh/internal/models"
)

type Loader interface {
	// Load resolves every requested ID. A missing ID is a batch-setup
	// error: the whole load fails rather than silently dropping campaigns.
	Load(ctx context.Context, ids []string) ([]models.Campaign, error)
}

// MemoryLoader serves campaigns from a fixed map, for tests and dev seeding.
type MemoryLoader struct {
	mu        sync.RWMutex
	campaigns map[string]models.Campaign
}

func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{campaigns: make(map[string]models.Campaign)}
}

func (m *MemoryLoader) Put(c models.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
}

func (m *MemoryLoader) Load(_ context.Context, ids []string) ([]models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Campaign, 0, len(ids))
	for _, id := range ids {
		c, ok := m.campaigns[id]
		if !ok {
			return nil, fmt.Errorf("campaign %s not found", id)
		}
		out = append(out, c)
	}
	return out, nil
}
