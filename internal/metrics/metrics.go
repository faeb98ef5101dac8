package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus instruments used by the verification pipeline.
// Registered once at startup via New(); passed by pointer wherever needed.
// A custom registry (instead of prometheus.DefaultRegisterer) keeps tests
// isolated and avoids global state.
type Metrics struct {
	JobsEnqueued        prometheus.Counter
	JobsProcessed       *prometheus.CounterVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	VerificationLatency prometheus.Histogram
}

// New registers all instruments with the given registerer and returns the
// populated Metrics struct.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_jobs_enqueued_total",
			Help: "Total number of verification jobs accepted and published.",
		}),

		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_jobs_processed_total",
			Help: "Total number of verification job attempts by result.",
		}, []string{"result"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_cache_hits_total",
			Help: "Total number of verification result cache hits.",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_cache_misses_total",
			Help: "Total number of verification result cache misses.",
		}),

		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_notifications_sent_total",
			Help: "Total number of successfully delivered outcome notifications.",
		}),

		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_notifications_failed_total",
			Help: "Total number of failed outcome notifications.",
		}),

		VerificationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verification_processing_seconds",
			Help:    "Latency from job claim to verification outcome.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.JobsEnqueued,
		m.JobsProcessed,
		m.CacheHits,
		m.CacheMisses,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.VerificationLatency,
	)

	return m
}

// JobsProcessed result labels
const (
	ResultCompleted = "completed"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
)
