// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aipulse_items_collected_total",
		Help: "Candidate articles fetched, by collector.",
	}, []string{"collector"})

	DuplicatesFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_duplicates_filtered_total",
		Help: "Articles removed by the deduplicator.",
	})

	ItemsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_items_discarded_total",
		Help: "Articles rejected by scoring or admission gates.",
	})

	ItemsSelected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_items_selected_total",
		Help: "Articles selected into a digest.",
	})

	BacklogBorrowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_backlog_borrowed_total",
		Help: "Articles pulled from the unsent backlog to fill the target.",
	})

	ExtrasInjected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aipulse_extras_injected_total",
		Help: "Articles appended beyond the target, by detector.",
	}, []string{"detector"})

	DigestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_digests_sent_total",
		Help: "Digests delivered successfully.",
	})

	DigestsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aipulse_digests_failed_total",
		Help: "Digest deliveries that exhausted retries.",
	})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aipulse_pipeline_duration_seconds",
		Help:    "Wall time of one full pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aipulse_last_run_timestamp_seconds",
		Help: "Unix time of the last completed pipeline run.",
	})
)
