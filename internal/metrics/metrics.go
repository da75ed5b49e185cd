// Package metrics provides Prometheus metrics for the GraphFS server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphfs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Listing metrics
	listingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_listings_total",
			Help: "Directory listings served, by outcome",
		},
		[]string{"status"},
	)

	listingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphfs_listing_duration_seconds",
			Help:    "Time spent reading one directory",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Watch metrics
	fsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_watch_events_total",
			Help: "Normalized filesystem events queued for delivery, by kind",
		},
		[]string{"kind"},
	)

	fsEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphfs_watch_events_dropped_total",
			Help: "Events sequenced but dropped because the session consumer was slow",
		},
	)

	renamePairings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_watch_rename_pairings_total",
			Help: "Rename pairing outcomes (paired, expired, unknown)",
		},
		[]string{"outcome"},
	)

	watchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphfs_watch_subscriptions_active",
			Help: "Number of active watch subscriptions",
		},
	)

	watchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphfs_watch_errors_total",
			Help: "Watch establishment and backend errors",
		},
	)

	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphfs_sessions_active",
			Help: "Number of open client sessions",
		},
	)

	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphfs_sse_connections_active",
			Help: "Number of active event-stream connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveListing records one directory read.
func ObserveListing(d time.Duration, status string) {
	listingsTotal.WithLabelValues(status).Inc()
	listingDuration.Observe(d.Seconds())
}

// RecordFsEvent counts a sequenced event.
func RecordFsEvent(kind string) {
	fsEventsTotal.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event lost to a slow consumer.
func RecordEventDropped() {
	fsEventsDropped.Inc()
}

// RecordRenamePairing counts a rename pairing outcome.
func RecordRenamePairing(outcome string) {
	renamePairings.WithLabelValues(outcome).Inc()
}

// RecordWatchError counts a watch failure.
func RecordWatchError() {
	watchErrorsTotal.Inc()
}

// AddWatches adjusts the active subscription gauge.
func AddWatches(delta int) {
	watchesActive.Add(float64(delta))
}

// AddSessions adjusts the open session gauge.
func AddSessions(delta int) {
	sessionsActive.Add(float64(delta))
}

// AddSSEConnections adjusts the event-stream connection gauge.
func AddSSEConnections(delta int) {
	sseConnectionsActive.Add(float64(delta))
}
