// Package metrics exposes Prometheus instrumentation for the pipeline,
// adapted from the teacher's metrics package with the log-shipping metric
// names replaced by stage-processing ones.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// FilesProcessedTotal counts files a stage has finished handling.
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midi_ingest_files_processed_total",
			Help: "Total number of files processed by each pipeline stage",
		},
		[]string{"stage"},
	)

	// FilesErrorTotal counts recoverable errors by stage and error kind.
	FilesErrorTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midi_ingest_files_error_total",
			Help: "Total number of recoverable errors by pipeline stage",
		},
		[]string{"stage", "kind"},
	)

	// FilesDuplicateTotal counts files skipped as duplicates during Import.
	FilesDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "midi_ingest_files_duplicate_total",
		Help: "Total number of files skipped as content-hash duplicates",
	})

	// QueueDepth reports the approximate depth of each inter-stage queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "midi_ingest_queue_depth",
			Help: "Approximate number of records currently queued between two stages",
		},
		[]string{"edge"},
	)

	// StageBatchDuration times batched persistence operations (Import
	// inserts, Analyze flushes).
	StageBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midi_ingest_stage_batch_duration_seconds",
			Help:    "Time spent persisting a batch in a pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// ActiveWorkers reports the configured worker count per stage.
	ActiveWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "midi_ingest_active_workers",
			Help: "Configured worker count for a pipeline stage",
		},
		[]string{"stage"},
	)
)

// Serve starts a blocking HTTP server exposing /metrics on addr. Intended
// to run in its own goroutine; logs and returns on listener failure rather
// than panicking, matching the teacher's metrics server lifecycle.
func Serve(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.WithField("addr", addr).Info("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("metrics server stopped")
	}
}
