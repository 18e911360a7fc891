package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startupInitializerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dts_startup_initializer_duration_seconds",
			Help:    "Duration of individual startup initializers.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"initializer", "status"},
	)

	startupSequenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dts_startup_sequence_duration_seconds",
			Help:    "Total duration of the startup initializer sequence.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"status"},
	)

	appReadyGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dts_app_ready",
			Help: "1 once the startup sequence has completed and the service accepts traffic.",
		},
	)

	tokensIssuedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dts_tokens_issued_total",
			Help: "Number of company tokens issued.",
		},
	)
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveStartupInitializer records the outcome and duration of one initializer.
func ObserveStartupInitializer(name string, success bool, d time.Duration) {
	startupInitializerDuration.WithLabelValues(name, statusLabel(success)).Observe(d.Seconds())
}

// ObserveStartupSequence records the outcome and duration of a whole startup run.
func ObserveStartupSequence(success bool, d time.Duration) {
	startupSequenceDuration.WithLabelValues(statusLabel(success)).Observe(d.Seconds())
}

// SetAppReady flips the readiness gauge.
func SetAppReady(ready bool) {
	if ready {
		appReadyGauge.Set(1)
	} else {
		appReadyGauge.Set(0)
	}
}

// IncTokensIssued increments the issued-token counter.
func IncTokensIssued() {
	tokensIssuedCounter.Inc()
}
