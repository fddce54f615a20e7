package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingflow_workflow_transitions_total",
			Help: "Workflow state transitions",
		},
		[]string{"from", "to"},
	)

	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookingflow_holds_created_total",
			Help: "Holds successfully placed on the reservation backend",
		},
	)

	HoldsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookingflow_holds_expired_total",
			Help: "Holds that expired before payment completed",
		},
	)

	PaymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingflow_payment_outcomes_total",
			Help: "Checkout outcomes by kind",
		},
		[]string{"outcome"},
	)

	CatalogTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingflow_catalog_resolutions_total",
			Help: "Catalog resolutions by supplying tier",
		},
		[]string{"tier"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookingflow_upstream_request_seconds",
			Help:    "Duration of reservation backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookingflow_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookingflow_active_sessions",
			Help: "Workflow sessions currently registered",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookingflow_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)
)
