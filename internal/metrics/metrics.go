// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TaskTransitions counts assignment status changes by target status.
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudralaya_task_transitions_total",
		Help: "Task assignment status transitions.",
	}, []string{"to"})

	// LedgerAppends counts ledger entries by type.
	LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudralaya_ledger_appends_total",
		Help: "Ledger entries appended.",
	}, []string{"type"})

	// StatsFallbacks counts wallet stats served by the scan path after the aggregate failed.
	StatsFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudralaya_stats_fallbacks_total",
		Help: "Wallet stats computed by rescanning rows after the aggregate query failed.",
	})

	// ReconcileMismatches counts users whose aggregate and scanned stats disagree.
	ReconcileMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudralaya_reconcile_mismatches_total",
		Help: "Users whose aggregate wallet stats disagree with a full rescan.",
	})

	// CompensationFailures counts approvals whose rollback to completed failed.
	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudralaya_approval_compensation_failures_total",
		Help: "Approvals left in approved state after a failed ledger insert.",
	})

	// AdminAuthFailures counts rejected admin credentials.
	AdminAuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudralaya_admin_auth_failures_total",
		Help: "Rejected admin logins and privileged calls.",
	}, []string{"stage"})

	// KycDecisions counts admin KYC decisions by resulting status.
	KycDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudralaya_kyc_decisions_total",
		Help: "KYC status changes made by admins.",
	}, []string{"status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mudralaya_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
