package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics for the access gate and mission engine.
var (
	accessKeysIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_keys_issued_total",
			Help: "Access keys issued, by kind.",
		},
		[]string{"kind"},
	)

	accessKeyVerifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_key_verify_failures_total",
			Help: "Failed access key verifications, by reason.",
		},
		[]string{"reason"},
	)

	missionSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_submissions_total",
			Help: "Mission answer submissions, by mission and outcome.",
		},
		[]string{"mission", "outcome"},
	)

	rankUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearance_rank_ups_total",
		Help: "Clearance tier promotions recorded.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		accessKeysIssued, accessKeyVerifyFailures, missionSubmissions, rankUps,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AccessKeyIssued counts one issued key of the given kind.
func AccessKeyIssued(kind string) {
	accessKeysIssued.WithLabelValues(kind).Inc()
}

// AccessKeyVerifyFailed counts a failed verification with its reason.
func AccessKeyVerifyFailed(reason string) {
	accessKeyVerifyFailures.WithLabelValues(reason).Inc()
}

// MissionSubmission counts a submission outcome ("correct", "incorrect",
// "malformed", "already_completed").
func MissionSubmission(mission, outcome string) {
	missionSubmissions.WithLabelValues(mission, outcome).Inc()
}

// RankUp counts a tier promotion.
func RankUp() {
	rankUps.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter records the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE endpoints working through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
