package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the pipeline
type Registry struct {
	// Snapshot Metrics
	SnapshotsProcessedTotal prometheus.Counter
	SnapshotsSkippedTotal   *prometheus.CounterVec
	SnapshotsInFlight       prometheus.Gauge
	SnapshotNodes           prometheus.Histogram
	SnapshotEdges           prometheus.Histogram

	// Engine Metrics
	EngineDuration       *prometheus.HistogramVec
	MetricFallbacksTotal *prometheus.CounterVec

	// Merge Metrics
	JoinRowsTotal       *prometheus.CounterVec
	JoinMismatchesTotal *prometheus.CounterVec

	// Sink Metrics
	SinkWritesTotal   *prometheus.CounterVec
	SinkWriteDuration prometheus.Histogram

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initSnapshotMetrics()
	r.initEngineMetrics()
	r.initMergeMetrics()
	r.initSinkMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler serving the registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotsProcessedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowpanel_snapshots_processed_total",
			Help: "Total number of snapshots processed successfully",
		},
	)

	r.SnapshotsSkippedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_snapshots_skipped_total",
			Help: "Total number of snapshots skipped, by reason",
		},
		[]string{"reason"},
	)

	r.SnapshotsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowpanel_snapshots_in_flight",
			Help: "Current number of snapshots being processed",
		},
	)

	r.SnapshotNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowpanel_snapshot_nodes",
			Help:    "Node count per loaded snapshot",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	r.SnapshotEdges = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowpanel_snapshot_edges",
			Help:    "Edge count per loaded snapshot",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000},
		},
	)
}

func (r *Registry) initEngineMetrics() {
	r.EngineDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowpanel_engine_duration_seconds",
			Help:    "Per-snapshot engine latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	r.MetricFallbacksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_metric_fallbacks_total",
			Help: "Total number of measures that fell back to zero values",
		},
		[]string{"measure"},
	)
}

func (r *Registry) initMergeMetrics() {
	r.JoinRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_join_rows_total",
			Help: "Merged panel rows, by match status",
		},
		[]string{"status"},
	)

	r.JoinMismatchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_join_mismatches_total",
			Help: "Join keys present on only one side, by side",
		},
		[]string{"side"},
	)
}

func (r *Registry) initSinkMetrics() {
	r.SinkWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_sink_writes_total",
			Help: "Total number of sink write batches, by status",
		},
		[]string{"status"},
	)

	r.SinkWriteDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowpanel_sink_write_duration_seconds",
			Help:    "Sink write batch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
}

// RecordSnapshotProcessed records a successfully processed snapshot
func (r *Registry) RecordSnapshotProcessed(nodes, edges int) {
	r.SnapshotsProcessedTotal.Inc()
	r.SnapshotNodes.Observe(float64(nodes))
	r.SnapshotEdges.Observe(float64(edges))
}

// RecordSnapshotSkipped records a skipped snapshot with its reason
func (r *Registry) RecordSnapshotSkipped(reason string) {
	r.SnapshotsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordEngine records one engine pass over a snapshot
func (r *Registry) RecordEngine(engine string, duration time.Duration) {
	r.EngineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordFallback records a measure that fell back to zero values
func (r *Registry) RecordFallback(measure string) {
	r.MetricFallbacksTotal.WithLabelValues(measure).Inc()
}

// RecordJoin records the outcome of a full table merge
func (r *Registry) RecordJoin(matched, centralityOnly, communityOnly int) {
	r.JoinRowsTotal.WithLabelValues("matched").Add(float64(matched))
	r.JoinRowsTotal.WithLabelValues("unmatched").Add(float64(centralityOnly + communityOnly))
	r.JoinMismatchesTotal.WithLabelValues("centrality").Add(float64(centralityOnly))
	r.JoinMismatchesTotal.WithLabelValues("community").Add(float64(communityOnly))
}

// RecordSinkWrite records a sink write batch
func (r *Registry) RecordSinkWrite(status string, duration time.Duration) {
	r.SinkWritesTotal.WithLabelValues(status).Inc()
	r.SinkWriteDuration.Observe(duration.Seconds())
}
