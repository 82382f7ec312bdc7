// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runfeed_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runfeed_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Cache Metrics, labelled by tier (memory, duckdb, badger, tiered)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_cache_misses_total",
			Help: "Total number of cache misses, expired entries included",
		},
		[]string{"tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_cache_evictions_total",
			Help: "Total number of expired entries removed",
		},
		[]string{"tier"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runfeed_cache_entries",
			Help: "Number of entries held by a cache tier",
		},
		[]string{"tier"},
	)

	// Feed Metrics
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_feed_requests_total",
			Help: "Feed requests by feed type and cache outcome (hit, miss, shared)",
		},
		[]string{"feed", "outcome"},
	)

	FeedBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runfeed_feed_build_duration_seconds",
			Help:    "Time spent rebuilding a feed on cache miss",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"feed"},
	)

	FeedDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_feed_degraded_total",
			Help: "Feed builds that served an empty section because an upstream failed",
		},
		[]string{"feed"},
	)

	FeedItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runfeed_feed_items",
			Help: "Number of items in the most recently built feed",
		},
		[]string{"feed"},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_upstream_requests_total",
			Help: "Outbound requests by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runfeed_upstream_request_duration_seconds",
			Help:    "Duration of outbound requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runfeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Refresh Metrics
	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_refresh_runs_total",
			Help: "Refresh action runs by action, trigger and status",
		},
		[]string{"action", "trigger", "status"},
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runfeed_refresh_duration_seconds",
			Help:    "Duration of refresh actions",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"action"},
	)

	RefreshLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runfeed_refresh_last_success_timestamp",
			Help: "Unix time of the last successful run of an action",
		},
		[]string{"action"},
	)

	VideoCatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runfeed_video_catalog_size",
			Help: "Number of videos in the durable catalogue",
		},
	)

	// Event bus and WebSocket Metrics
	InvalidationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runfeed_invalidation_events_total",
			Help: "Cache invalidation events by direction (published, consumed, failed)",
		},
		[]string{"direction"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runfeed_websocket_connections",
			Help: "Currently connected websocket clients",
		},
	)
)

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstream records one outbound call. A zero status means the request
// never got a response.
func RecordUpstream(source string, status int, duration time.Duration, err error) {
	outcome := "ok"
	switch {
	case status == 0 && err != nil:
		outcome = "network_error"
	case status >= 400:
		outcome = strconv.Itoa(status)
	case err != nil:
		outcome = "decode_error"
	}
	UpstreamRequests.WithLabelValues(source, outcome).Inc()
	UpstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRefresh records the outcome of a refresh action.
func RecordRefresh(action, trigger string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		RefreshLastSuccess.WithLabelValues(action).SetToCurrentTime()
	}
	RefreshRuns.WithLabelValues(action, trigger, status).Inc()
	RefreshDuration.WithLabelValues(action).Observe(duration.Seconds())
}
