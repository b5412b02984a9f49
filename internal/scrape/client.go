// Package scrape consumes the per-platform scraper functions as opaque
// remote calls: one URL in, one metrics payload out.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// Metrics is the payload returned by a platform scraper function.
type Metrics struct {
	Views      int64          `json:"views"`
	Engagement int64          `json:"engagement"`
	Likes      int64          `json:"likes"`
	Comments   int64          `json:"comments"`
	Shares     int64          `json:"shares"`
	Rate       float64        `json:"rate,omitempty"`
	Metadata   map[string]any `json:"analytics_metadata,omitempty"`
}

type Scraper interface {
	Fetch(ctx context.Context, platform models.Platform, url string) (Metrics, error)
}

// functionFor maps a platform to its scraper function name.
func functionFor(p models.Platform) string {
	switch p {
	case models.PlatformYouTube:
		return "scrape-youtube-analytics"
	case models.PlatformInstagram:
		return "scrape-instagram-analytics"
	case models.PlatformTikTok:
		return "scrape-tiktok-analytics"
	default:
		return "scrape-" + string(p) + "-analytics"
	}
}

// Client invokes scraper functions over HTTP: POST <base>/<function> with a
// JSON body {"url": ...}.
type Client struct {
	httpc *http.Client
	base  string
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{httpc: &http.Client{Timeout: timeout}, base: base}
}

func (c *Client) Fetch(ctx context.Context, platform models.Platform, url string) (Metrics, error) {
	fn := functionFor(platform)
	body, _ := json.Marshal(map[string]string{"url": url})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+fn, bytes.NewReader(body))
	if err != nil {
		return Metrics{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Metrics{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Metrics{}, fmt.Errorf("%s returned %d: %s", fn, resp.StatusCode, string(b))
	}
	var m Metrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Metrics{}, fmt.Errorf("%s: decode response: %w", fn, err)
	}
	return m, nil
}
