package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription service
type Metrics struct {
	// Job metrics
	JobsEnqueued  *prometheus.CounterVec
	JobsCompleted prometheus.Counter
	JobsFailed    *prometheus.CounterVec
	JobsCancelled prometheus.Counter
	QueueDepth    prometheus.Gauge
	JobDuration   prometheus.Histogram

	// Upload metrics
	UploadBytes    prometheus.Counter
	UploadDuration prometheus.Histogram

	// Transcription service metrics
	PollAttempts   prometheus.Counter
	TranscriptSize prometheus.Histogram
}

// NewMetrics creates and registers all metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtt_jobs_enqueued_total",
			Help: "Total number of jobs accepted, by input source",
		}, []string{"source"}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "vtt_jobs_completed_total",
			Help: "Total number of jobs that produced a transcript",
		}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtt_jobs_failed_total",
			Help: "Total number of failed jobs, by pipeline stage",
		}, []string{"stage"}),
		JobsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "vtt_jobs_cancelled_total",
			Help: "Total number of jobs cancelled before finishing",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vtt_queue_depth",
			Help: "Number of jobs waiting for a worker",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtt_job_duration_seconds",
			Help:    "End-to-end duration of a job",
			Buckets: []float64{5, 10, 30, 60, 120, 300, 600, 1200, 1800},
		}),
		UploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "vtt_upload_bytes_total",
			Help: "Total bytes uploaded to object storage",
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtt_upload_duration_seconds",
			Help:    "Time taken to upload audio to object storage",
			Buckets: prometheus.DefBuckets,
		}),
		PollAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "vtt_poll_attempts_total",
			Help: "Total number of transcription job status checks",
		}),
		TranscriptSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtt_transcript_words",
			Help:    "Word count of finished transcripts",
			Buckets: prometheus.ExponentialBuckets(10, 4, 7),
		}),
	}
}
