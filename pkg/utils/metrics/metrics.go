package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts authenticated webhook deliveries by event type
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookwarden_webhook_events_total",
		Help: "A counter of the webhook events received by hookwarden.",
	}, []string{"event_type"})

	// DispatchOutcomes counts terminal dispatcher states
	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookwarden_webhook_outcomes_total",
		Help: "A counter of the dispatch outcomes hookwarden has reached for webhooks.",
	}, []string{"outcome"})

	// RuleRuns counts finished rule runs by status
	RuleRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookwarden_rule_runs_total",
		Help: "A counter of the rule runs hookwarden has executed.",
	}, []string{"status"})
)
