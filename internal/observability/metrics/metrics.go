// Package metrics exposes the Prometheus instrumentation for the
// response engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	CapabilityRuns    *prometheus.CounterVec
	ReplyCost         prometheus.Histogram
	ProcessDuration   prometheus.Histogram
	CreditsDepleted   prometheus.Counter
}

// New registers the engine collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anisa_messages_processed_total",
			Help: "Inbound messages processed, by outcome.",
		}, []string{"outcome"}),
		CapabilityRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anisa_capability_runs_total",
			Help: "Capability dispatches, by capability.",
		}, []string{"capability"}),
		ReplyCost: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anisa_reply_cost_dollars",
			Help:    "Estimated provider cost per reply.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.06, 0.1, 0.5},
		}),
		ProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anisa_message_process_seconds",
			Help:    "End-to-end processing time per message.",
			Buckets: prometheus.DefBuckets,
		}),
		CreditsDepleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "anisa_credits_depleted_total",
			Help: "Messages refused because the user had no credits.",
		}),
	}
}
