// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_total",
			Help: "Total number of processed candidates by terminal outcome",
		},
		[]string{"source", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of individual pipeline stages in seconds",
		},
		[]string{"stage"},
	)

	CrawlerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_requests_total",
			Help: "Outbound crawler requests by result class",
		},
		[]string{"source", "result"},
	)

	RateLimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "rate_limiter_wait_seconds",
			Help: "Time spent waiting for a request slot",
		},
	)

	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_provider_attempts_total",
			Help: "AI provider invocations by provider and result",
		},
		[]string{"provider", "result"},
	)

	ExtractionStrategyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_strategy_hits_total",
			Help: "Which apply-URL strategy produced the result",
		},
		[]string{"strategy"},
	)
)
