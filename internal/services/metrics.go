package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus instruments. A nil *Metrics is
// valid everywhere it is consumed, so tests can run without touching the
// default registry.
type Metrics struct {
	RepliesTotal        *prometheus.CounterVec
	FallbackActivations prometheus.Counter
	HardFailures        prometheus.Counter
	Summarizations      prometheus.Counter
	TurnDuration        prometheus.Histogram
	WebhookEvents       *prometheus.CounterVec
}

// InitMetrics registers the pipeline metrics on the default registry.
// Call once from the composition root.
func InitMetrics() *Metrics {
	return &Metrics{
		RepliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "allchat_replies_total",
			Help: "Replies delivered to end users, by platform",
		}, []string{"platform"}),
		FallbackActivations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "allchat_fallback_activations_total",
			Help: "Turns answered by the fallback provider",
		}),
		HardFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "allchat_hard_failures_total",
			Help: "Turns that degraded to a canned apology",
		}),
		Summarizations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "allchat_summarizations_total",
			Help: "Successful rolling-summary refreshes",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "allchat_turn_duration_seconds",
			Help:    "End-to-end reply pipeline latency",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "allchat_webhook_events_total",
			Help: "Webhook events received, by platform and outcome",
		}, []string{"platform", "outcome"}),
	}
}
