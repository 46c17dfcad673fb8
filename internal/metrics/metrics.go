package metrics

import (
	"debtster_routes/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_http_requests_total",
		Help: "HTTP requests by method, route template and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtster_routes_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RouteComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_route_computations_total",
		Help: "Daily route computations by outcome kind.",
	}, []string{"outcome"})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_payments_total",
		Help: "Payment submissions by outcome kind.",
	}, []string{"outcome"})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_gate_decisions_total",
		Help: "Access gate decisions by operation and result.",
	}, []string{"operation", "result"})

	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_store_retries_total",
		Help: "Retried store reads by operation.",
	}, []string{"op"})

	RouteSheetsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtster_routes_route_sheets_total",
		Help: "Route sheet exports by outcome.",
	}, []string{"outcome"})
)

// Outcome labels a result by its error kind, "ok" on success.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return ports.Kind(err)
}
