// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BillingEvents counts subscription ledger operations.
	// op: tier_change, monthly_deduction, deposit, role_change
	// outcome: charged, rejected, downgraded, credited, skipped, reset
	BillingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_total",
			Help: "Subscription ledger operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// AssistantRequests counts calls to the chat-completion backend.
	// outcome: ok, fallback
	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Assistant requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	// FulfillmentEvents counts checkouts and returns.
	FulfillmentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_events_total",
			Help: "Checkout and return operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)
)
