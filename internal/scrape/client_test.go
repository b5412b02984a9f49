package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brightreach/campaign-refresh/internal/budget"
	"github.com/brightreach/campaign-refresh/internal/models"
)

func TestFetchInvokesPlatformFunction(t *testing.T) {
	var gotPath, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotURL = body["url"]
		json.NewEncoder(w).Encode(map[string]any{
			"views": 1000, "engagement": 50, "likes": 40, "comments": 7, "shares": 3,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	m, err := c.Fetch(context.Background(), models.PlatformYouTube, "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/scrape-youtube-analytics" {
		t.Fatalf("invoked %q, want /scrape-youtube-analytics", gotPath)
	}
	if gotURL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("scraper received url %q", gotURL)
	}
	if m.Views != 1000 || m.Engagement != 50 || m.Likes != 40 || m.Comments != 7 || m.Shares != 3 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestFetchNon2xxCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "daily quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.Fetch(context.Background(), models.PlatformTikTok, "https://www.tiktok.com/@u/video/1")
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status code: %v", err)
	}
	// quota wording from the provider must classify as a resource-limit error
	if !budget.IsResourceLimit(err) {
		t.Fatalf("expected resource-limit classification: %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100*time.Millisecond)
	_, err := c.Fetch(context.Background(), models.PlatformInstagram, "https://www.instagram.com/p/x/")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}
