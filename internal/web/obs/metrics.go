package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediplan_http_requests_total",
			Help: "HTTP requests served, by method and status class.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediplan_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	refreshOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediplan_session_refresh_total",
			Help: "Refresh token rotations, by outcome (success, failure, shared).",
		},
		[]string{"outcome"},
	)

	guardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediplan_guard_decisions_total",
			Help: "Route guard decisions, by verdict (allow, login, unauthorized).",
		},
		[]string{"verdict"},
	)
)

// RecordRefresh counts a refresh rotation outcome.
func RecordRefresh(outcome string) {
	refreshOutcomes.WithLabelValues(outcome).Inc()
}

// RecordGuard counts a route guard verdict.
func RecordGuard(verdict string) {
	guardDecisions.WithLabelValues(verdict).Inc()
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps a handler with request count and latency metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
