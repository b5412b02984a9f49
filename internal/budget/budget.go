// Package budget tracks third-party processing cost against a fixed quota
// shared by a whole refresh batch. Estimates are static per-platform byte
// constants, an approximation of real transfer cost, not a measurement.
package budget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// ErrResourceLimit marks quota exhaustion. It is fatal: callers must not
// retry work that failed with this error.
var ErrResourceLimit = errors.New("resource limit reached")

var resourceKeywords = []string{
	"resource limit",
	"resource_exhausted",
	"resource exhausted",
	"quota",
}

// IsResourceLimit reports whether err signals quota or resource exhaustion,
// either as the sentinel or by provider error message keywords.
func IsResourceLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrResourceLimit) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range resourceKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// DefaultEstimates is the expected third-party cost of scraping one URL.
var DefaultEstimates = map[models.Platform]int64{
	models.PlatformYouTube:   2_500_000,
	models.PlatformInstagram: 1_500_000,
	models.PlatformTikTok:    2_000_000,
}

// fallbackEstimate covers platforms without a configured constant.
const fallbackEstimate int64 = 2_000_000

// Counter is a shared consumption counter so concurrent batches can observe
// each other's usage. The in-process ledger is always the fast path; the
// counter is consulted on admission and incremented on commit.
type Counter interface {
	Get(ctx context.Context) (int64, error)
	Add(ctx context.Context, delta int64) (int64, error)
}

// Tracker owns the resource ledger for one batch. Consumption is monotonic:
// every attempted unit of work costs its estimate, success or failure.
type Tracker struct {
	mu        sync.Mutex
	estimates map[models.Platform]int64
	limit     int64
	safety    float64
	consumed  int64
	limitHit  bool
	shared    Counter
	log       *slog.Logger
}

func NewTracker(limit int64, safety float64, estimates map[models.Platform]int64, shared Counter, log *slog.Logger) *Tracker {
	if estimates == nil {
		estimates = DefaultEstimates
	}
	if safety <= 0 || safety > 1 {
		safety = 0.8
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{estimates: estimates, limit: limit, safety: safety, shared: shared, log: log}
}

func (t *Tracker) Estimate(p models.Platform) int64 {
	if v, ok := t.estimates[p]; ok {
		return v
	}
	return fallbackEstimate
}

// CampaignEstimate is the total expected cost of a campaign's links, used to
// order the batch cheapest-first.
func (t *Tracker) CampaignEstimate(links []models.ContentLink) int64 {
	var sum int64
	for _, l := range links {
		sum += t.Estimate(l.Platform)
	}
	return sum
}

// Admit reports whether one more unit of work on the platform fits under the
// safety threshold. It does not reserve: cost is charged by Commit after the
// attempt finishes.
func (t *Tracker) Admit(ctx context.Context, p models.Platform) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	base := t.consumed
	if t.shared != nil {
		if g, err := t.shared.Get(ctx); err != nil {
			t.log.Warn("shared ledger read failed, using local consumption", "error", err)
		} else if g > base {
			base = g
		}
	}
	if float64(base+t.Estimate(p)) > float64(t.limit)*t.safety {
		t.limitHit = true
		return false
	}
	return true
}

// Commit charges the platform estimate after an attempt completes. Failures
// cost real third-party resources too, so callers commit unconditionally.
func (t *Tracker) Commit(ctx context.Context, p models.Platform) {
	est := t.Estimate(p)
	t.mu.Lock()
	t.consumed += est
	shared := t.shared
	t.mu.Unlock()

	if shared != nil {
		if _, err := shared.Add(ctx, est); err != nil {
			t.log.Warn("shared ledger increment failed", "error", err)
		}
	}
}

// Consumed is this batch's own usage, independent of other batches sharing
// the counter.
func (t *Tracker) Consumed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed
}

func (t *Tracker) LimitReached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limitHit
}
