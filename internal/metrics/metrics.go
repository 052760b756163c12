// Package metrics provides Prometheus metrics for the HLS packager.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the packager.
type Metrics struct {
	// Segment metrics
	SegmentsWritten  *prometheus.CounterVec
	FragmentsDropped *prometheus.CounterVec
	LastSequenceID   prometheus.Gauge

	// Destination metrics
	WriteErrors   *prometheus.CounterVec
	RetryAttempts *prometheus.CounterVec
	WindowResets  *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec

	// Timing metrics
	UploadDuration *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRestarts *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g. ":9090"
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hls_packager"
	}

	m := &Metrics{
		SegmentsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "segments_written_total",
				Help:      "Total number of media segments persisted per destination",
			},
			[]string{"rendition", "destination"},
		),
		FragmentsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragments_dropped_total",
				Help:      "Total number of media fragments dropped because no sequence id resolved",
			},
			[]string{"rendition"},
		),
		LastSequenceID: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_sequence_id",
				Help:      "Most recently assigned segment sequence id",
			},
		),
		WriteErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_errors_total",
				Help:      "Total number of destination write failures",
			},
			[]string{"rendition", "destination"},
		),
		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of upload retry attempts",
			},
			[]string{"rendition", "destination"},
		),
		WindowResets: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "window_resets_total",
				Help:      "Total number of rolling-window resets after persistent write failures or sequence gaps",
			},
			[]string{"rendition", "destination"},
		),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "destination_queue_depth",
				Help:      "Current number of pending writes in a destination's ordered queue",
			},
			[]string{"destination"},
		),
		UploadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Time to durably store one media segment",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"rendition", "destination"},
		),
		PipelineRestarts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_restarts_total",
				Help:      "Total number of rendition pipeline restarts after encoder failure",
			},
			[]string{"rendition"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}
