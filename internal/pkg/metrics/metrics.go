// Package metrics defines and registers all custom Prometheus metrics for the
// portal. It is the single source of truth for metric names, labels, and help
// strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionResolutionsTotal counts finished resolutions of the current user.
// Labels:
//   - trigger: "bootstrap", "login", "event"
//   - source: strategy that produced the user ("remote-session", "local-cache",
//     "credential-store", "demo-table") or "none"
var SessionResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resolutions_total",
		Help:      "Total number of current-user resolutions, by trigger and winning source.",
	},
	[]string{"trigger", "source"},
)

// StrategyFailuresTotal counts resolution strategies that failed and fell through.
var StrategyFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_strategy_failures_total",
		Help:      "Total number of resolution strategies that failed, by strategy.",
	},
	[]string{"strategy"},
)

// LoginAttemptsTotal counts login calls.
// Label:
//   - result: "credential-store", "demo-table" or "failed"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts logouts; remote is "ok" or "error".
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logouts, by remote sign-out result.",
	},
	[]string{"remote"},
)

// RegistrationsTotal counts register calls.
// Label:
//   - result: "ok", "identity_failed", "profile_failed"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registrations, by result. profile_failed leaves an orphaned identity.",
	},
	[]string{"result"},
)

// LastLoginStampFailuresTotal counts best-effort last_login writes that failed.
var LastLoginStampFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "last_login_stamp_failures_total",
		Help:      "Total number of failed last_login updates after a profile read.",
	},
)

// ── Identity API metrics ─────────────────────────────────────────────────────

// TokensIssuedTotal counts access tokens issued by the identity API.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
)

// HTTPRequestDuration measures request handling time.
// Labels:
//   - method, route (echo path template), status
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route", "status"},
)
