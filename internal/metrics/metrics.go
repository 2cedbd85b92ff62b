package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isstrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	fetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isstrack_fetch_duration_seconds",
			Help:    "Upstream ephemeris fetch duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	fetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isstrack_fetch_errors_total",
			Help: "Total number of failed upstream ephemeris fetches.",
		},
	)

	matchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_epoch_match_total",
			Help: "Epoch match attempts by outcome (hit, miss, error).",
		},
		[]string{"outcome"},
	)

	datasetVectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstrack_dataset_vectors",
			Help: "State vector count of the most recently fetched dataset.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_stream_connections_total",
			Help: "SSE stream connect/disconnect events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstrack_streams_active",
			Help: "Currently open SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isstrack_stream_messages_total",
			Help: "Total SSE data messages sent.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_stream_errors_total",
			Help: "SSE stream errors by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		fetchDurationSeconds,
		fetchErrorsTotal,
		matchTotal,
		datasetVectors,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one upstream fetch attempt.
func ObserveFetch(d time.Duration, err error) {
	if err != nil {
		fetchErrorsTotal.Inc()
		return
	}
	fetchDurationSeconds.Observe(d.Seconds())
}

// RecordMatch records an epoch match outcome: "hit", "miss" or "error".
func RecordMatch(outcome string) {
	matchTotal.WithLabelValues(outcome).Inc()
}

// SetDatasetVectors updates the vector-count gauge.
func SetDatasetVectors(n int) {
	datasetVectors.Set(float64(n))
}

// IncStreamConnections records a stream "connect" or "disconnect" event.
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active-stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active-stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts one sent SSE data message.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// IncStreamErrors counts a stream error by kind.
func IncStreamErrors(kind string) {
	streamErrorsTotal.WithLabelValues(kind).Inc()
}

// knownRoutes are the exact paths this service serves.
var knownRoutes = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/epochs":          true,
	"/now":             true,
	"/metadata":        true,
	"/comment":         true,
	"/track":           true,
	"/stream/position": true,
}

// normalizeRoute collapses parameterized epoch paths to a single label and
// everything unknown (bot probes, typos) to "other", keeping the metric
// cardinality bounded.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/epochs/"); ok && rest != "" {
		switch {
		case strings.HasSuffix(rest, "/speed"):
			return "/epochs/{epoch}/speed"
		case strings.HasSuffix(rest, "/location"):
			return "/epochs/{epoch}/location"
		case !strings.Contains(rest, "/"):
			return "/epochs/{epoch}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming works through the
// middleware chain.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
