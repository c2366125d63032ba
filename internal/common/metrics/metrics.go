// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	IntentDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_detections_total",
			Help: "Total number of detections by resulting intent",
		},
		[]string{"intent", "fallback"},
	)

	IntentConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_detection_confidence",
			Help:    "Confidence of the winning intent",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	IntentDetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intent_detection_duration_seconds",
			Help:    "Duration of a single detection",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		},
	)

	EntityExtractionWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_extraction_warnings_total",
			Help: "Entity categories that failed and were returned empty",
		},
		[]string{"category"},
	)

	IntentTableReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_table_reloads_total",
			Help: "Intent table reload attempts by outcome",
		},
		[]string{"status"},
	)

	IntentTableSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intent_table_intents",
			Help: "Number of intents in the live table",
		},
	)
)

// DetectorObserver records detector telemetry into the Prometheus collectors above.
type DetectorObserver struct{}

func (DetectorObserver) ObserveDetection(intent string, confidence float64, fallback bool, elapsed time.Duration) {
	fb := "false"
	if fallback {
		fb = "true"
	}
	IntentDetections.WithLabelValues(intent, fb).Inc()
	IntentConfidence.Observe(confidence)
	IntentDetectionDuration.Observe(elapsed.Seconds())
}

func (DetectorObserver) ObserveExtractionWarning(category string) {
	EntityExtractionWarnings.WithLabelValues(category).Inc()
}

func (DetectorObserver) ObserveReload(intents int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	IntentTableReloads.WithLabelValues(status).Inc()
	IntentTableSize.Set(float64(intents))
}
