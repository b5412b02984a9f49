package models

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

type CampaignStatus string

const (
	StatusPending    CampaignStatus = "pending"
	StatusProcessing CampaignStatus = "processing"
	StatusCompleted  CampaignStatus = "completed"
	StatusError      CampaignStatus = "error"
)

// CampaignRef identifies a campaign being refreshed. Read-only for the
// lifetime of a batch.
type CampaignRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContentLink is one piece of creator-attached content. Canonical is the
// normalized URL used as the dedup key and passed to the scrapers.
type ContentLink struct {
	URL       string   `json:"url"`
	Platform  Platform `json:"platform"`
	Canonical string   `json:"canonicalUrl"`
}

type Campaign struct {
	CampaignRef
	Links []ContentLink `json:"links"`
}

// PlatformResult is the outcome of one scrape attempt, success or error.
type PlatformResult struct {
	URL        string         `json:"url"`
	Views      int64          `json:"views"`
	Engagement int64          `json:"engagement"`
	Likes      int64          `json:"likes"`
	Comments   int64          `json:"comments"`
	Shares     int64          `json:"shares"`
	Raw        map[string]any `json:"raw,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type CampaignProgress struct {
	CampaignID    string         `json:"campaignId"`
	CampaignName  string         `json:"campaignName"`
	Status        CampaignStatus `json:"status"`
	ProcessedURLs int            `json:"processedUrls"`
	TotalURLs     int            `json:"totalUrls"`
	Error         string         `json:"error,omitempty"`
}

type CampaignOutcome struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status CampaignStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

// BatchSummary is produced exactly once per batch, from the final state of
// every campaign that reached a terminal status. Skipped campaigns are
// counted within Failed.
type BatchSummary struct {
	Total                int               `json:"total"`
	Successful           int               `json:"successful"`
	Failed               int               `json:"failed"`
	Skipped              int               `json:"skipped"`
	ResourceUsageBytes   int64             `json:"-"`
	ResourceUsageMB      float64           `json:"resourceUsageMB"`
	ResourceLimitReached bool              `json:"resourceLimitReached"`
	Results              []CampaignOutcome `json:"results"`
}
