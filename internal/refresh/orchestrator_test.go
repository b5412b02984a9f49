package refresh

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/brightreach/campaign-refresh/internal/campaigns"
	"github.com/brightreach/campaign-refresh/internal/models"
	"github.com/brightreach/campaign-refresh/internal/scrape"
	"github.com/brightreach/campaign-refresh/internal/store"
)

func testOptions(limit int64) Options {
	return Options{
		ResourceLimitBytes: limit,
		SafetyFraction:     0.8,
		MaxAttempts:        1,
		RetryBaseDelay:     time.Millisecond,
	}
}

func drain(ch <-chan Event) (progress []models.CampaignProgress, terminal Event, n int) {
	for ev := range ch {
		n++
		switch ev.Kind {
		case EventProgress:
			progress = append(progress, ev.Progress)
		default:
			terminal = ev
		}
	}
	return progress, terminal, n
}

func TestBatchProcessesCheapestCampaignFirst(t *testing.T) {
	loader := campaigns.NewMemoryLoader()
	loader.Put(testCampaign("big",
		ytLink("https://www.youtube.com/watch?v=b1"),
		ytLink("https://www.youtube.com/watch?v=b2"),
		ytLink("https://www.youtube.com/watch?v=b3"),
	))
	loader.Put(testCampaign("small", ytLink("https://www.youtube.com/watch?v=s1")))

	sc := &fakeScraper{fn: func(int, models.Platform, string) (scrape.Metrics, error) {
		return scrape.Metrics{Views: 10, Engagement: 1}, nil
	}}
	orch := NewOrchestrator(testOptions(1<<40), loader, sc, store.NewMemoryStore(), nil, nil)

	// submitted big-first, processed cheapest-first
	progress, terminal, _ := drain(orch.Run(context.Background(), []string{"big", "small"}))

	if len(progress) == 0 || progress[0].CampaignID != "small" {
		t.Fatalf("expected the small campaign first, events: %+v", progress)
	}
	sum := terminal.Summary
	if sum == nil {
		t.Fatal("missing complete event")
	}
	if sum.Total != 2 || sum.Successful != 2 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Total != sum.Successful+sum.Failed {
		t.Fatalf("summary counts inconsistent: %+v", sum)
	}
	if sum.ResourceUsageBytes != 4*2_500_000 {
		t.Fatalf("resource usage = %d", sum.ResourceUsageBytes)
	}
}

func TestBudgetExhaustionSkipsRemainingCampaigns(t *testing.T) {
	loader := campaigns.NewMemoryLoader()
	loader.Put(testCampaign("c1", ytLink("https://www.youtube.com/watch?v=a")))
	loader.Put(testCampaign("c2", ytLink("https://www.youtube.com/watch?v=b")))
	loader.Put(testCampaign("c3", ytLink("https://www.youtube.com/watch?v=c")))

	sc := &fakeScraper{fn: func(int, models.Platform, string) (scrape.Metrics, error) {
		return scrape.Metrics{Views: 10, Engagement: 1}, nil
	}}
	st := store.NewMemoryStore()
	// threshold 7MB*0.8 = 5.6MB: two 2.5MB urls fit, a third does not
	orch := NewOrchestrator(testOptions(7_000_000), loader, sc, st, nil, nil)

	progress, terminal, _ := drain(orch.Run(context.Background(), []string{"c1", "c2", "c3"}))

	if sc.callCount() != 2 {
		t.Fatalf("scraper calls = %d, want 2 (no calls after refusal)", sc.callCount())
	}
	sum := terminal.Summary
	if sum == nil {
		t.Fatal("missing complete event")
	}
	if sum.Total != 3 || sum.Successful != 2 || sum.Failed != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.ResourceLimitReached {
		t.Fatal("summary must flag the resource limit")
	}
	skippedSeen := false
	for _, r := range sum.Results {
		if r.Status == models.StatusError {
			if !strings.Contains(r.Error, "resource limit") {
				t.Fatalf("skip error should mention resource limits: %+v", r)
			}
			skippedSeen = true
		}
	}
	if !skippedSeen {
		t.Fatalf("expected a skipped campaign in results: %+v", sum.Results)
	}
	// the skipped campaign got a terminal progress event too
	found := false
	for _, p := range progress {
		if p.Status == models.StatusError && p.Error == skippedMsg {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected skip progress event, got %+v", progress)
	}
}

func TestCancellationStopsAtNextCampaignCheckpoint(t *testing.T) {
	loader := campaigns.NewMemoryLoader()
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		loader.Put(testCampaign(id, ytLink("https://www.youtube.com/watch?v="+id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// cancel while the second campaign's only scrape is in flight: that
	// call finishes, campaigns 3-5 are never started
	sc := &fakeScraper{fn: func(call int, _ models.Platform, _ string) (scrape.Metrics, error) {
		if call == 2 {
			cancel()
		}
		return scrape.Metrics{Views: 10, Engagement: 1}, nil
	}}
	orch := NewOrchestrator(testOptions(1<<40), loader, sc, store.NewMemoryStore(), nil, nil)

	progress, terminal, _ := drain(orch.Run(ctx, []string{"c1", "c2", "c3", "c4", "c5"}))

	if sc.callCount() != 2 {
		t.Fatalf("scraper calls = %d, want 2", sc.callCount())
	}
	seen := map[string]bool{}
	for _, p := range progress {
		seen[p.CampaignID] = true
	}
	for _, id := range []string{"c3", "c4", "c5"} {
		if seen[id] {
			t.Fatalf("campaign %s should never have been started", id)
		}
	}
	sum := terminal.Summary
	if sum == nil {
		t.Fatal("cancellation must still produce a complete event")
	}
	if sum.Total != 2 || len(sum.Results) != 2 {
		t.Fatalf("summary should cover only attempted campaigns: %+v", sum)
	}
	if sum.Successful != 2 {
		t.Fatalf("in-flight work finishes before the checkpoint: %+v", sum)
	}
}

func TestBatchSetupFailureEmitsSingleErrorEvent(t *testing.T) {
	loader := campaigns.NewMemoryLoader() // empty: every lookup fails
	sc := &fakeScraper{fn: func(int, models.Platform, string) (scrape.Metrics, error) {
		return scrape.Metrics{}, nil
	}}
	orch := NewOrchestrator(testOptions(1<<40), loader, sc, store.NewMemoryStore(), nil, nil)

	progress, terminal, n := drain(orch.Run(context.Background(), []string{"ghost"}))

	if len(progress) != 0 {
		t.Fatalf("no progress expected, got %+v", progress)
	}
	if n != 1 || terminal.Kind != EventError {
		t.Fatalf("expected exactly one error event, got %d events, terminal %+v", n, terminal)
	}
	if !strings.Contains(terminal.Message, "ghost") {
		t.Fatalf("error should name the missing campaign: %q", terminal.Message)
	}
	if sc.callCount() != 0 {
		t.Fatalf("no scrapes expected, got %d", sc.callCount())
	}
}

func TestDuplicateLinksCountOnce(t *testing.T) {
	loader := campaigns.NewMemoryLoader()
	loader.Put(models.Campaign{
		CampaignRef: models.CampaignRef{ID: "c1", Name: "Campaign c1"},
		Links: []models.ContentLink{
			{URL: "https://youtu.be/AAA", Platform: models.PlatformYouTube},
			{URL: "https://www.youtube.com/watch?v=AAA", Platform: models.PlatformYouTube},
		},
	})
	sc := &fakeScraper{fn: func(int, models.Platform, string) (scrape.Metrics, error) {
		return scrape.Metrics{Views: 10, Engagement: 1}, nil
	}}
	orch := NewOrchestrator(testOptions(1<<40), loader, sc, store.NewMemoryStore(), nil, nil)

	progress, terminal, _ := drain(orch.Run(context.Background(), []string{"c1"}))

	if sc.callCount() != 1 {
		t.Fatalf("scraper calls = %d, want 1 after dedup", sc.callCount())
	}
	if terminal.Summary == nil || terminal.Summary.Successful != 1 {
		t.Fatalf("summary = %+v", terminal.Summary)
	}
	for _, p := range progress {
		if p.TotalURLs != 1 {
			t.Fatalf("total urls should reflect dedup: %+v", p)
		}
	}
}

func TestEventWireShapes(t *testing.T) {
	prog := Event{Kind: EventProgress, Progress: models.CampaignProgress{
		CampaignID: "c1", CampaignName: "C", Status: models.StatusProcessing, ProcessedURLs: 1, TotalURLs: 3,
	}}
	b, err := json.Marshal(prog)
	if err != nil {
		t.Fatal(err)
	}
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["campaignId"] != "c1" || flat["processedUrls"] != float64(1) {
		t.Fatalf("progress wire shape: %s", b)
	}
	if _, hasType := flat["type"]; hasType {
		t.Fatalf("progress events carry no type field: %s", b)
	}

	done := Event{Kind: EventComplete, Summary: &models.BatchSummary{Total: 1, Successful: 1, ResourceUsageMB: 2.38}}
	b, err = json.Marshal(done)
	if err != nil {
		t.Fatal(err)
	}
	var wrapped map[string]any
	if err := json.Unmarshal(b, &wrapped); err != nil {
		t.Fatal(err)
	}
	if wrapped["type"] != "complete" {
		t.Fatalf("complete wire shape: %s", b)
	}
	sum, ok := wrapped["summary"].(map[string]any)
	if !ok || sum["resourceUsageMB"] != 2.38 {
		t.Fatalf("summary wire shape: %s", b)
	}

	b, err = json.Marshal(Event{Kind: EventError, Message: "boom"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"error","message":"boom"}` {
		t.Fatalf("error wire shape: %s", b)
	}
}
