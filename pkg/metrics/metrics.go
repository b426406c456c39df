// Package metrics provides Prometheus metrics for the crawl engine: pages
// fetched, records accepted, duplicates skipped, partition failures, and
// fetch latency, all labelled by source.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts pages successfully fetched from a source.
	// Labels: source
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_pages_fetched_total",
			Help: "Total number of catalog pages fetched",
		},
		[]string{"source"},
	)

	// RecordsAccepted counts records accepted (first-seen keys appended to
	// the sink). Labels: source
	RecordsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_records_accepted_total",
			Help: "Total number of records accepted into the output",
		},
		[]string{"source"},
	)

	// DuplicatesSkipped counts records dropped because their key was
	// already seen. Labels: source
	DuplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_duplicates_skipped_total",
			Help: "Total number of duplicate records skipped",
		},
		[]string{"source"},
	)

	// PartitionFailures counts partitions abandoned after retries were
	// exhausted or a fatal error surfaced. Labels: source
	PartitionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_partition_failures_total",
			Help: "Total number of partitions that failed",
		},
		[]string{"source"},
	)

	// CheckpointSaves counts checkpoint writes. Labels: source
	CheckpointSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_checkpoint_saves_total",
			Help: "Total number of checkpoint saves",
		},
		[]string{"source"},
	)

	// FetchLatency tracks the distribution of page fetch durations.
	// Labels: source
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "harvester_fetch_latency_seconds",
			Help: "Page fetch latency in seconds",
			Buckets: []float64{
				0.05, // fast CDN hit
				0.1,
				0.25,
				0.5,
				1,
				2.5,
				5,
				10, // slow upstream, near timeout
			},
		},
		[]string{"source"},
	)

	// ActivePartitions tracks the number of partitions currently being
	// driven. Labels: source
	ActivePartitions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harvester_active_partitions",
			Help: "Number of partitions currently being crawled",
		},
		[]string{"source"},
	)
)

// Collector records engine metrics for one source. Each worker creates its
// own collector so call sites don't repeat the source label.
type Collector struct {
	source string
}

// NewCollector creates a metrics collector for a source.
func NewCollector(source string) *Collector {
	return &Collector{source: source}
}

// PageFetched records one fetched page and its latency.
func (c *Collector) PageFetched(elapsed time.Duration) {
	PagesFetched.WithLabelValues(c.source).Inc()
	FetchLatency.WithLabelValues(c.source).Observe(elapsed.Seconds())
}

// RecordsHandled records the accept/skip split of one page.
func (c *Collector) RecordsHandled(accepted, skipped int) {
	if accepted > 0 {
		RecordsAccepted.WithLabelValues(c.source).Add(float64(accepted))
	}
	if skipped > 0 {
		DuplicatesSkipped.WithLabelValues(c.source).Add(float64(skipped))
	}
}

// PartitionFailed records a partition abandoned with an error.
func (c *Collector) PartitionFailed() {
	PartitionFailures.WithLabelValues(c.source).Inc()
}

// CheckpointSaved records one checkpoint write.
func (c *Collector) CheckpointSaved() {
	CheckpointSaves.WithLabelValues(c.source).Inc()
}

// PartitionStarted marks a partition as active.
func (c *Collector) PartitionStarted() {
	ActivePartitions.WithLabelValues(c.source).Inc()
}

// PartitionDone marks a partition as no longer active.
func (c *Collector) PartitionDone() {
	ActivePartitions.WithLabelValues(c.source).Dec()
}
