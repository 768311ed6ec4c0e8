package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics cover ingestion and index rebuilds. Registered explicitly
// from main (no init()) so batch tools can opt out.
var (
	IndexRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowdex",
		Name:      "index_records",
		Help:      "Number of records in the last built index artifact",
	})

	IndexArtifactBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowdex",
		Name:      "index_artifact_bytes",
		Help:      "Size of the last built index artifact in bytes",
	})

	IndexRebuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowdex",
		Name:      "index_rebuild_duration_seconds",
		Help:      "Index rebuild duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	IndexMalformedSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flowdex",
		Name:      "index_malformed_skipped_total",
		Help:      "Documents skipped during rebuilds because they failed to parse",
	})

	DocumentsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowdex",
		Name:      "documents_ingested_total",
		Help:      "Documents written to the corpus per source",
	}, []string{"source"})

	DocumentsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowdex",
		Name:      "documents_skipped_total",
		Help:      "Source items skipped during ingestion per source and reason",
	}, []string{"source", "reason"})
)

// RegisterPipelineMetrics registers ingestion and index metrics.
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		IndexRecords,
		IndexArtifactBytes,
		IndexRebuildDuration,
		IndexMalformedSkipped,
		DocumentsIngested,
		DocumentsSkipped,
	)
}
