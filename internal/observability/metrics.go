package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ridematch", Name: "matches_total", Help: "Total matches created"})
	AutoAssignRuns    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ridematch", Name: "auto_assign_runs_total", Help: "Auto-assign invocations that reached the suggestion service"})
	AutoAssignCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ridematch", Name: "auto_assign_created_total", Help: "Matches created from suggestion-service results"})
	EventsCreated     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ridematch", Name: "events_created_total", Help: "Events created"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ridematch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ridematch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
