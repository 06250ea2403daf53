// Package metrics exposes Prometheus collectors for the tubescout service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for YouTube API calls.
const (
	OutcomeOK    = "ok"
	OutcomeQuota = "quota"
	OutcomeError = "error"
)

var (
	channelsDiscoveredTotal    prometheus.Counter
	channelsSkippedTotal       prometheus.Counter
	crawlRunsTotal             *prometheus.CounterVec
	youtubeCallsTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		channelsDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tubescout_channels_discovered_total",
				Help: "Total number of new channels inserted by discovery runs.",
			},
		)

		channelsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tubescout_channels_skipped_total",
				Help: "Total number of search candidates skipped because they were already known.",
			},
		)

		crawlRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_crawl_runs_total",
				Help: "Total number of discovery runs, labeled by status.",
			},
			[]string{"status"},
		)

		youtubeCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_youtube_calls_total",
				Help: "Total number of YouTube Data API calls, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubescout_youtube_ratelimit_delay_seconds",
				Help:    "Time spent waiting on the YouTube request limiter, labeled by endpoint.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawlRun records a finished discovery run.
func ObserveCrawlRun(status string, discovered, skipped int) {
	Init()
	crawlRunsTotal.WithLabelValues(status).Inc()
	if discovered > 0 {
		channelsDiscoveredTotal.Add(float64(discovered))
	}
	if skipped > 0 {
		channelsSkippedTotal.Add(float64(skipped))
	}
}

// ObserveYouTubeCall records one platform API call.
func ObserveYouTubeCall(endpoint, outcome string) {
	Init()
	youtubeCallsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a request token.
func ObserveRateLimitDelay(endpoint string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}
