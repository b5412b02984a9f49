// Package metrics holds the prometheus collectors for the refresh pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScrapeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_scrape_attempts_total",
			Help: "Scrape calls issued, labeled by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)
	ScrapeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_scrape_retries_total",
			Help: "Backoff retries performed before a scrape resolved.",
		},
		[]string{"platform"},
	)
	ResourceBytesConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_resource_bytes_consumed_total",
			Help: "Estimated third-party processing bytes charged against the quota.",
		},
	)
	CampaignsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_campaigns_processed_total",
			Help: "Campaigns that reached a terminal status, labeled by status.",
		},
		[]string{"status"},
	)
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_batch_duration_seconds",
			Help:    "Wall time of one refresh batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(ScrapeAttempts)
	prometheus.MustRegister(ScrapeRetries)
	prometheus.MustRegister(ResourceBytesConsumed)
	prometheus.MustRegister(CampaignsProcessed)
	prometheus.MustRegister(BatchDuration)
}
