// Package metrics exposes Prometheus collectors for the search service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal              *prometheus.CounterVec
	upstreamRequestsTotal      *prometheus.CounterVec
	detailResolutionsTotal     *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Label values for the counters below.
const (
	SearchOK            = "ok"
	SearchValidationErr = "validation_error"
	SearchUpstreamErr   = "upstream_error"
	SearchTransportErr  = "transport_error"

	ResolutionResolved = "resolved"
	ResolutionDegraded = "degraded"
	ResolutionSkipped  = "skipped"

	UpstreamKindSearch   = "search"
	UpstreamKindService  = "service"
	UpstreamStatusFailed = "failed"
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railsearch_searches_total",
				Help: "Total number of journey searches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railsearch_upstream_requests_total",
				Help: "Total upstream page fetches, labeled by page kind and status.",
			},
			[]string{"kind", "status"},
		)

		detailResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railsearch_detail_resolutions_total",
				Help: "Per-candidate arrival resolutions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearch increments the search counter for the given outcome.
func ObserveSearch(outcome string) {
	if searchesTotal == nil {
		return
	}
	searchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one upstream fetch. status is the HTTP status code
// as a string, or UpstreamStatusFailed for transport errors.
func ObserveUpstream(kind, status string) {
	if upstreamRequestsTotal == nil {
		return
	}
	upstreamRequestsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveResolution records the outcome of one per-candidate arrival lookup.
func ObserveResolution(outcome string) {
	if detailResolutionsTotal == nil {
		return
	}
	detailResolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
