package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/auth"
	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/health"
	"github.com/ni-da-ba/iss-tracker/internal/httputil"
	"github.com/ni-da-ba/iss-tracker/internal/metrics"
	"github.com/ni-da-ba/iss-tracker/internal/query"
	"github.com/ni-da-ba/iss-tracker/internal/stream"
	"github.com/ni-da-ba/iss-tracker/internal/track"
)

// Source provides the ephemeris dataset consumed by every data route.
type Source interface {
	Dataset(ctx context.Context) (*ephem.Dataset, error)
}

// Geocoder annotates a ground position with a place name.
type Geocoder interface {
	Reverse(ctx context.Context, latDeg, lonDeg float64) (string, error)
}

// Deps are the collaborators the route handlers need. Geocoder is optional;
// when nil, location responses carry the geodetic triple without a place
// annotation.
type Deps struct {
	Source   Source
	Facade   query.Facade
	Geocoder Geocoder
	Tracks   *track.Computer
	Stream   *stream.Handler
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	h := &handlers{
		source:   deps.Source,
		facade:   deps.Facade,
		geocoder: deps.Geocoder,
		tracks:   deps.Tracks,
		logger:   logger,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /epochs", h.epochs)
	mux.HandleFunc("GET /epochs/{epoch}", h.epochAt)
	mux.HandleFunc("GET /epochs/{epoch}/speed", h.speedAt)
	mux.HandleFunc("GET /epochs/{epoch}/location", h.locationAt)
	mux.HandleFunc("GET /now", h.now)
	mux.HandleFunc("GET /metadata", h.metadata)
	mux.HandleFunc("GET /comment", h.comment)
	mux.HandleFunc("GET /track", h.track)

	if deps.Stream != nil {
		mux.HandleFunc("GET /stream/position", deps.Stream.HandlePosition)
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming works through the
// middleware chain.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, false),
			)
		})
	}
}
