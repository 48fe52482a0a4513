package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizdir_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bizdir_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Sync Metrics
var (
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_syncs_total",
			Help: "Sync reconciliations by resulting action",
		},
		[]string{"action"},
	)

	SyncFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizdir_sync_fallbacks_total",
			Help: "Syncs that fell back to cached data after a failure",
		},
	)
)

// Tracking Metrics
var (
	EventsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_events_enqueued_total",
			Help: "Analytics events accepted into the batch queue",
		},
		[]string{"table"},
	)

	EventsFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_events_flushed_total",
			Help: "Analytics events delivered to the sink",
		},
		[]string{"table"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_events_dropped_total",
			Help: "Analytics events lost to a failed flush",
		},
		[]string{"table"},
	)
)

// AI Search Metrics
var (
	AISearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_ai_searches_total",
			Help: "AI-assisted searches by outcome category",
		},
		[]string{"outcome"},
	)

	AISearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizdir_ai_search_cache_hits_total",
			Help: "AI searches served from the response cache",
		},
	)
)

// Presence Metrics
var (
	PresencePings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizdir_presence_pings_total",
			Help: "Presence heartbeats written",
		},
	)
)
