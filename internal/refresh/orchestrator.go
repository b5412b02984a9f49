package refresh

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/brightreach/campaign-refresh/internal/budget"
	"github.com/brightreach/campaign-refresh/internal/campaigns"
	"github.com/brightreach/campaign-refresh/internal/metrics"
	"github.com/brightreach/campaign-refresh/internal/models"
	"github.com/brightreach/campaign-refresh/internal/normalize"
	"github.com/brightreach/campaign-refresh/internal/scrape"
	"github.com/brightreach/campaign-refresh/internal/store"
)

const skippedMsg = "skipped due to resource limits"

// Options are the per-batch knobs, wired from config in main.
type Options struct {
	ResourceLimitBytes int64
	SafetyFraction     float64
	Estimates          map[models.Platform]int64
	MaxAttempts        int
	RetryBaseDelay     time.Duration
	PlatformPace       map[models.Platform]time.Duration
	CampaignPace       time.Duration
}

// Orchestrator drives one refresh batch at a time: orders campaigns cheapest
// first, runs them strictly sequentially under a shared resource tracker and
// streams progress to the observer.
type Orchestrator struct {
	opts    Options
	loader  campaigns.Loader
	scraper scrape.Scraper
	store   store.Analytics
	counter budget.Counter
	log     *slog.Logger
}

func NewOrchestrator(opts Options, loader campaigns.Loader, scraper scrape.Scraper, st store.Analytics, counter budget.Counter, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{opts: opts, loader: loader, scraper: scraper, store: st, counter: counter, log: log}
}

// Run starts one batch and returns its event stream. The stream carries any
// number of progress events followed by exactly one terminal event, then
// closes. Cancel ctx to stop the batch at its next checkpoint; in-flight
// scrape calls are allowed to finish.
func (o *Orchestrator) Run(ctx context.Context, ids []string) <-chan Event {
	events := make(chan Event, 64)
	go o.run(ctx, ids, events)
	return events
}

func (o *Orchestrator) run(ctx context.Context, ids []string, events chan Event) {
	defer close(events)
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	batchID := uuid.NewString()
	log := o.log.With(slog.String("batch", batchID))
	log.Info("refresh batch starting", slog.Int("requested", len(ids)))

	loaded, err := o.loader.Load(ctx, ids)
	if err != nil {
		log.Error("batch setup failed", "error", err)
		o.sendTerminal(events, Event{Kind: EventError, Message: err.Error()})
		return
	}

	tracker := budget.NewTracker(o.opts.ResourceLimitBytes, o.opts.SafetyFraction, o.opts.Estimates, o.counter, log)
	pacer := NewPacer(o.opts.PlatformPace, o.opts.CampaignPace)
	proc := NewProcessor(o.scraper, o.store, pacer, o.opts.MaxAttempts, o.opts.RetryBaseDelay, log)

	// Normalize once up front so estimates and the processor see the same
	// deduplicated link set.
	for i := range loaded {
		loaded[i].Links = normalize.Dedup(loaded[i].Links)
	}

	// Cheapest campaigns first: when the budget runs out, more campaigns
	// have finished whole instead of one large campaign finishing half.
	sort.SliceStable(loaded, func(i, j int) bool {
		return tracker.CampaignEstimate(loaded[i].Links) < tracker.CampaignEstimate(loaded[j].Links)
	})

	var (
		results   []models.CampaignOutcome
		succeeded int
		failed    int
		skipped   int
		cancelled bool
	)

	emit := func(p models.CampaignProgress) {
		// Fire and forget: a lagging observer loses intermediate
		// updates, never the terminal event.
		select {
		case events <- Event{Kind: EventProgress, Progress: p}:
		default:
		}
	}

	for i, c := range loaded {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if err := pacer.WaitCampaign(ctx); err != nil {
			cancelled = true
			break
		}

		// Admission pre-check: if not even one more URL fits, every
		// remaining campaign is cut off without further remote calls.
		if len(c.Links) > 0 && !tracker.Admit(ctx, c.Links[0].Platform) {
			for _, rest := range loaded[i:] {
				if serr := o.store.SetCampaignStatus(ctx, rest.ID, models.StatusError); serr != nil {
					log.Warn("set campaign status failed", "campaign", rest.ID, "error", serr)
				}
				results = append(results, models.CampaignOutcome{
					ID: rest.ID, Name: rest.Name, Status: models.StatusError, Error: skippedMsg,
				})
				emit(models.CampaignProgress{
					CampaignID: rest.ID, CampaignName: rest.Name,
					Status: models.StatusError, TotalURLs: len(rest.Links), Error: skippedMsg,
				})
				failed++
				skipped++
			}
			log.Warn("resource limit reached, remaining campaigns skipped", slog.Int("skipped", len(loaded)-i))
			break
		}

		emit(models.CampaignProgress{
			CampaignID: c.ID, CampaignName: c.Name,
			Status: models.StatusProcessing, TotalURLs: len(c.Links),
		})
		if serr := o.store.SetCampaignStatus(ctx, c.ID, models.StatusProcessing); serr != nil {
			log.Warn("set campaign status failed", "campaign", c.ID, "error", serr)
		}

		outcome := proc.Process(ctx, tracker, c, emit)
		results = append(results, outcome)
		if outcome.Status == models.StatusCompleted {
			succeeded++
		} else {
			failed++
		}
		log.Info("campaign refreshed",
			slog.String("campaign", c.ID),
			slog.String("status", string(outcome.Status)),
			slog.Int64("consumed_bytes", tracker.Consumed()))
	}

	summary := &models.BatchSummary{
		Total:                len(results),
		Successful:           succeeded,
		Failed:               failed,
		Skipped:              skipped,
		ResourceUsageBytes:   tracker.Consumed(),
		ResourceUsageMB:      round2(float64(tracker.Consumed()) / (1024 * 1024)),
		ResourceLimitReached: tracker.LimitReached(),
		Results:              results,
	}
	log.Info("refresh batch finished",
		slog.Int("total", summary.Total),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Bool("cancelled", cancelled),
		slog.Bool("limit_reached", summary.ResourceLimitReached))
	o.sendTerminal(events, Event{Kind: EventComplete, Summary: summary})
}

// sendTerminal delivers the one terminal event. Unlike progress events it is
// not droppable; the stream must never end silently for a live observer.
func (o *Orchestrator) sendTerminal(events chan Event, ev Event) {
	select {
	case events <- ev:
	case <-time.After(5 * time.Second):
		o.log.Warn("observer gone, terminal event dropped")
	}
}
