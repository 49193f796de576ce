package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PersistFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_persist_flushes_total",
		Help: "Collection flushes written to the local store",
	}, []string{"collection"})
	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_persist_failures_total",
		Help: "Collection flushes that failed to write",
	}, []string{"collection"})
	PRChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_pr_checks_total",
		Help: "Pull request lookups made by reconciliation",
	}, []string{"mode"})
	PRDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_pr_drift_total",
		Help: "Pull requests whose remote status differed from the stored one",
	}, []string{"mode"})
	PRCheckErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_pr_check_errors_total",
		Help: "Pull request lookups that failed during reconciliation",
	}, []string{"mode"})
	PRCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_pr_cache_hits_total",
		Help: "Pull request source reads served from cache",
	}, []string{"kind"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kanban_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
