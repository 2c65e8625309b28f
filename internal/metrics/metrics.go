// Package metrics declares the Prometheus collectors of the marketplace API.
// Every collector registers itself with the default registry on import and is
// served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── HTTP ──────────────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts finished requests.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern (e.g. "/api/project/projects/{id}")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// AuthEventsTotal counts session operations.
// Labels:
//   - event: "register", "login", "refresh" or "logout"
//   - result: "success" or a short failure reason (e.g. "reuse", "bad_credentials")
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Total number of session operations, by event and result.",
	},
	[]string{"event", "result"},
)

// ── Projects ──────────────────────────────────────────────────────────────────

var ProjectsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "projects_created_total",
		Help:      "Total number of projects created.",
	},
)

// ProjectTransitionsTotal counts applied status changes.
var ProjectTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_transitions_total",
		Help:      "Total number of project status transitions, by source and target status.",
	},
	[]string{"from", "to"},
)

var BidsPlacedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_placed_total",
		Help:      "Total number of bids accepted.",
	},
)

var DeliverablesUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliverables_uploaded_total",
		Help:      "Total number of deliverables, by kind (file, link or both).",
	},
	[]string{"kind"},
)

// ── Outbox ────────────────────────────────────────────────────────────────────

// OutboxDeliveriesTotal counts delivery attempts.
// Label:
//   - result: "sent", "retry" or "dead"
var OutboxDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_deliveries_total",
		Help:      "Total number of outbox delivery attempts, by result.",
	},
	[]string{"result"},
)
