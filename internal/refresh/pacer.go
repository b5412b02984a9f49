package refresh

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// Pacer spreads third-party load with fixed per-platform gates between
// scrape calls and one gate between campaigns. Gates are burst-1 limiters,
// so the first call on each gate passes immediately and every following call
// waits out the full interval. Waiting is a cancellation checkpoint.
type Pacer struct {
	platform map[models.Platform]*rate.Limiter
	campaign *rate.Limiter
	fallback *rate.Limiter
}

func NewPacer(platformPace map[models.Platform]time.Duration, campaignPace time.Duration) *Pacer {
	p := &Pacer{
		platform: make(map[models.Platform]*rate.Limiter, len(platformPace)),
		campaign: gate(campaignPace),
		fallback: gate(0),
	}
	for plat, d := range platformPace {
		p.platform[plat] = gate(d)
	}
	return p
}

func gate(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// WaitURL blocks until the platform's gate opens or ctx is done.
func (p *Pacer) WaitURL(ctx context.Context, platform models.Platform) error {
	lim, ok := p.platform[platform]
	if !ok {
		lim = p.fallback
	}
	return lim.Wait(ctx)
}

// WaitCampaign blocks until the inter-campaign gate opens or ctx is done.
func (p *Pacer) WaitCampaign(ctx context.Context) error {
	return p.campaign.Wait(ctx)
}
