package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headline_runs_total",
			Help: "Total number of scrape runs.",
		},
		[]string{"status"}, // succeeded, partial, failed
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "headline_run_duration_seconds",
			Help:    "Duration of scrape runs.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		},
	)

	PagesScraped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "headline_pages_scraped_total",
			Help: "Total number of result pages extracted.",
		},
	)

	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headline_extraction_attempts_total",
			Help: "Per-container extraction attempts.",
		},
		[]string{"outcome"}, // success, retry, skipped
	)

	HeadlinesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "headlines_extracted_total",
			Help: "Total number of headline records produced.",
		},
	)

	LinkChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headline_link_checks_total",
			Help: "Link validation results.",
		},
		[]string{"status", "source"}, // source: cache, probe
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headline_exports_total",
			Help: "Export attempts per format.",
		},
		[]string{"format", "status"},
	)

	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headline_notification_attempts_total",
			Help: "Email send attempts.",
		},
		[]string{"status"},
	)
)

// WriteTextfile dumps the default registry in the text exposition format,
// for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
