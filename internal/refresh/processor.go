package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightreach/campaign-refresh/internal/budget"
	"github.com/brightreach/campaign-refresh/internal/metrics"
	"github.com/brightreach/campaign-refresh/internal/models"
	"github.com/brightreach/campaign-refresh/internal/retry"
	"github.com/brightreach/campaign-refresh/internal/scrape"
	"github.com/brightreach/campaign-refresh/internal/store"
)

// Processor refreshes one campaign end-to-end: walks its links through the
// scraper under the batch tracker, accumulates totals and persists them.
type Processor struct {
	scraper   scrape.Scraper
	store     store.Analytics
	pacer     *Pacer
	attempts  int
	baseDelay time.Duration
	log       *slog.Logger
	now       func() time.Time
}

func NewProcessor(scraper scrape.Scraper, st store.Analytics, pacer *Pacer, attempts int, baseDelay time.Duration, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		scraper:   scraper,
		store:     st,
		pacer:     pacer,
		attempts:  attempts,
		baseDelay: baseDelay,
		log:       log,
		now:       time.Now,
	}
}

// Process expects c.Links to already be canonical and deduplicated. It emits
// a progress update after every URL and once more on the terminal transition,
// and always returns a terminal outcome; per-URL failures never abort the
// campaign.
func (p *Processor) Process(ctx context.Context, tracker *budget.Tracker, c models.Campaign, emit func(models.CampaignProgress)) models.CampaignOutcome {
	progress := models.CampaignProgress{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		Status:       models.StatusProcessing,
		TotalURLs:    len(c.Links),
	}

	// A campaign with no tracked content is trivially done.
	if len(c.Links) == 0 {
		status := models.StatusCompleted
		var errMsg string
		if err := p.persist(ctx, c.ID, 0, 0, nil, nil); err != nil {
			status = models.StatusError
			errMsg = err.Error()
		}
		return p.finish(ctx, c, progress, status, errMsg, emit)
	}

	var (
		totalViews, totalEngagement int64
		byPlatform                  = make(map[models.Platform][]models.PlatformResult)
		urlRows                     []store.URLAnalytics
		urlErrs                     int
		budgetDenied                bool
		cancelled                   bool
	)

	for _, link := range c.Links {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if !tracker.Admit(ctx, link.Platform) {
			budgetDenied = true
			break
		}
		if err := p.pacer.WaitURL(ctx, link.Platform); err != nil {
			cancelled = true
			break
		}

		var m scrape.Metrics
		attempts := 0
		err := retry.Do(ctx, p.attempts, p.baseDelay, func(ctx context.Context) error {
			attempts++
			var ferr error
			m, ferr = p.scraper.Fetch(ctx, link.Platform, link.Canonical)
			return ferr
		})
		tracker.Commit(ctx, link.Platform)
		metrics.ResourceBytesConsumed.Add(float64(tracker.Estimate(link.Platform)))
		if attempts > 1 {
			metrics.ScrapeRetries.WithLabelValues(string(link.Platform)).Add(float64(attempts - 1))
		}

		if err != nil {
			metrics.ScrapeAttempts.WithLabelValues(string(link.Platform), "error").Inc()
			p.log.Warn("scrape failed", "campaign", c.ID, "url", link.Canonical, "error", err)
			byPlatform[link.Platform] = append(byPlatform[link.Platform], models.PlatformResult{
				URL:   link.Canonical,
				Error: err.Error(),
			})
			urlErrs++
			progress.ProcessedURLs++
			emit(progress)
			if budget.IsResourceLimit(err) {
				budgetDenied = true
				break
			}
			continue
		}

		metrics.ScrapeAttempts.WithLabelValues(string(link.Platform), "success").Inc()
		byPlatform[link.Platform] = append(byPlatform[link.Platform], models.PlatformResult{
			URL:        link.Canonical,
			Views:      m.Views,
			Engagement: m.Engagement,
			Likes:      m.Likes,
			Comments:   m.Comments,
			Shares:     m.Shares,
			Raw:        m.Metadata,
		})
		totalViews += m.Views
		totalEngagement += m.Engagement
		urlRows = append(urlRows, store.URLAnalytics{
			CampaignID:     c.ID,
			ContentURL:     link.Canonical,
			Platform:       link.Platform,
			DateRecorded:   p.now(),
			Views:          m.Views,
			Likes:          m.Likes,
			Comments:       m.Comments,
			Shares:         m.Shares,
			Engagement:     m.Engagement,
			EngagementRate: engagementRate(m.Views, m.Engagement),
			Metadata:       m.Metadata,
		})
		progress.ProcessedURLs++
		emit(progress)
	}

	// Partial totals are persisted even when the budget cut the campaign
	// short: the third-party cost was already paid.
	status := models.StatusCompleted
	var errMsg string
	switch {
	case budgetDenied:
		status = models.StatusError
		errMsg = fmt.Sprintf("resource limit reached after %d of %d urls", progress.ProcessedURLs, progress.TotalURLs)
	case cancelled:
		status = models.StatusError
		errMsg = "refresh cancelled"
	case urlErrs > 0:
		status = models.StatusError
		errMsg = fmt.Sprintf("%d of %d urls failed", urlErrs, progress.TotalURLs)
	}
	// Writes still happen after cancellation: collected partials are not
	// thrown away at the persistence step.
	pctx := ctx
	if ctx.Err() != nil {
		pctx = context.WithoutCancel(ctx)
	}
	if err := p.persist(pctx, c.ID, totalViews, totalEngagement, byPlatform, urlRows); err != nil {
		status = models.StatusError
		errMsg = err.Error()
	}
	return p.finish(pctx, c, progress, status, errMsg, emit)
}

func (p *Processor) persist(ctx context.Context, campaignID string, totalViews, totalEngagement int64, byPlatform map[models.Platform][]models.PlatformResult, urlRows []store.URLAnalytics) error {
	rate := engagementRate(totalViews, totalEngagement)
	if err := p.store.UpdateCampaignAnalytics(ctx, campaignID, totalViews, totalEngagement, rate, byPlatform); err != nil {
		return fmt.Errorf("persist campaign analytics: %w", err)
	}
	for _, row := range urlRows {
		if err := p.store.UpsertURLAnalytics(ctx, row); err != nil {
			return fmt.Errorf("persist url analytics: %w", err)
		}
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, c models.Campaign, progress models.CampaignProgress, status models.CampaignStatus, errMsg string, emit func(models.CampaignProgress)) models.CampaignOutcome {
	if err := p.store.SetCampaignStatus(ctx, c.ID, status); err != nil {
		p.log.Warn("set campaign status failed", "campaign", c.ID, "error", err)
		if status == models.StatusCompleted {
			status = models.StatusError
			errMsg = err.Error()
		}
	}
	progress.Status = status
	progress.Error = errMsg
	emit(progress)
	metrics.CampaignsProcessed.WithLabelValues(string(status)).Inc()
	return models.CampaignOutcome{ID: c.ID, Name: c.Name, Status: status, Error: errMsg}
}

// engagementRate is engagement over views as a percentage, rounded to two
// decimals, zero when there are no views.
func engagementRate(views, engagement int64) float64 {
	if views <= 0 {
		return 0
	}
	return round2(float64(engagement) / float64(views) * 100)
}

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
