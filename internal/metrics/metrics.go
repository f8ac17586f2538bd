// AngelaMos | 2026
// metrics.go

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acquisitions"

// AdmissionDecisionsTotal counts admission outcomes.
// Labels:
//   - role: caller tier (admin, user, guest)
//   - outcome: allowed, bot, rate_limit, shield, dry_run, guard_error
var AdmissionDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_decisions_total",
		Help:      "Admission decisions for API requests, by role and outcome.",
	},
	[]string{"role", "outcome"},
)

// AuthEventsTotal counts sign-up, sign-in and sign-out attempts.
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events, by event and result.",
	},
	[]string{"event", "result"},
)

var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route pattern and status.",
	},
	[]string{"method", "route", "status"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// RegisterDBStats exports connection pool statistics for db. Registering
// the same database twice is a no-op.
func RegisterDBStats(db *sql.DB, name string) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		return err
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}
