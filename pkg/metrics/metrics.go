// Package metrics registers the Prometheus instruments exported at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AgentRuns counts agent executions by agent name and outcome.
	AgentRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kredefy_agent_runs_total",
		Help: "Agent executions by agent and status.",
	}, []string{"agent", "status"})

	// PipelineDuration observes end-to-end orchestration latency per
	// workflow.
	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kredefy_pipeline_duration_seconds",
		Help:    "Orchestration pipeline duration by workflow.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"workflow"})

	// BreakerTransitions counts circuit breaker state changes.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kredefy_breaker_transitions_total",
		Help: "Circuit breaker state transitions by breaker and target state.",
	}, []string{"breaker", "to"})

	// RateLimitRejections counts requests rejected with 429.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kredefy_rate_limit_rejections_total",
		Help: "Requests rejected by the per-principal rate limiter.",
	})

	// WebhookDuplicates counts repayment webhooks dropped as replays.
	WebhookDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kredefy_webhook_duplicates_total",
		Help: "Payment webhooks ignored because the payment id was already processed.",
	})
)

// ObserveBreakerTransition is the hook wired into every breaker.
func ObserveBreakerTransition(name, _, to string) {
	BreakerTransitions.WithLabelValues(name, to).Inc()
}
