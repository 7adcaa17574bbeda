package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatcher outcomes, one per terminal state of a request.
const (
	OutcomeStaticHit        = "static_hit"
	OutcomeStaticMiss       = "static_miss"
	OutcomeRender           = "render"
	OutcomeNotFound         = "not_found"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeRenderError      = "render_error"
)

// Metrics bundles prometheus collectors used by edge-host.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	DispatchOutcomes   *prometheus.CounterVec
	StoreErrors        prometheus.Counter
	OriginErrors       prometheus.Counter
	BackgroundTasks    prometheus.Gauge
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter
	DiscoveryRefreshes prometheus.Counter
	DiscoveryErrors    prometheus.Counter

	assetPrefix string
}

// New registers every collector on registry. assetPrefix keeps the route
// label for static assets bounded.
func New(registry *prometheus.Registry, assetPrefix string) *Metrics {
	if assetPrefix == "" {
		assetPrefix = "/_app/"
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_requests_total",
			Help: "Total number of edge HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edge_request_duration_seconds",
			Help:    "Edge request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_dispatch_outcomes_total",
			Help: "Dispatcher stage outcomes.",
		}, []string{"outcome"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_store_errors_total",
			Help: "Asset store lookups that failed and fell through to render.",
		}),
		OriginErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_origin_errors_total",
			Help: "Total number of render origin errors.",
		}),
		BackgroundTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_background_tasks",
			Help: "Deferred tasks currently running.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		DiscoveryRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_discovery_refresh_total",
			Help: "Total number of discovery refresh attempts.",
		}),
		DiscoveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_discovery_errors_total",
			Help: "Total number of discovery refresh failures.",
		}),
		assetPrefix: assetPrefix,
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.DispatchOutcomes,
		m.StoreErrors,
		m.OriginErrors,
		m.BackgroundTasks,
		m.AuthFailures,
		m.RateLimitDropped,
		m.DiscoveryRefreshes,
		m.DiscoveryErrors,
	)

	return m
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := m.normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// Page paths are unbounded, so everything outside the fixed routes shares a label.
func (m *Metrics) normalizeRoute(path string) string {
	switch {
	case path == "/healthz", path == "/readyz", path == "/metrics":
		return path
	case strings.HasPrefix(path, m.assetPrefix):
		return m.assetPrefix + "*"
	case path == "/":
		return "/"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
