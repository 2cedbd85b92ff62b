// Package stream implements Server-Sent Events (SSE) streaming of the
// station's live position. Clients connect via GET /stream/position and
// receive a snapshot of the wall-clock "now" query every step seconds.
//
// SSE message format:
//
//	data: {"type":"position","epoch":"2024-047T12:48:00.000Z","latitude_deg":...}\n\n
//
// The first message is always dataset metadata:
//
//	data: {"type":"metadata","source":"...","vectors":5000,"first_epoch":"...","last_epoch":"..."}\n\n
//
// One ephemeris snapshot is fetched per connection; when the wall clock
// leaves its coverage the stream ends with a "coverage_exhausted" message.
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/httputil"
	"github.com/ni-da-ba/iss-tracker/internal/metrics"
	"github.com/ni-da-ba/iss-tracker/internal/query"
)

// Source supplies a fresh ephemeris snapshot.
type Source interface {
	Dataset(ctx context.Context) (*ephem.Dataset, error)
}

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For for client IPs.
}

// Handler manages SSE position-stream connections.
type Handler struct {
	source  Source
	facade  query.Facade
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source Source, facade query.Facade, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		source:  source,
		facade:  facade,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandlePosition serves the SSE position stream.
// GET /stream/position?step=5
func (h *Handler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	step := 5
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid step parameter, must be 1-60"})
			return
		}
		step = n
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step", step,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// One snapshot per connection; the stream evaluates "now" against it
	// until coverage runs out.
	ds, err := h.source.Dataset(r.Context())
	if err != nil {
		metrics.IncStreamErrors("fetch_error")
		h.logger.Error("stream ephemeris fetch failed", "remote_ip", ip, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "ephemeris feed unavailable"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection; per-write
	// deadlines take over.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) to spread reconnection storms after a
	// server restart.
	retryMs := 3000 + rand.Intn(4000)
	if _, err := w.Write([]byte("retry: " + strconv.Itoa(retryMs) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()

	if err := c.sendJSON(metadataMessage(ds)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	// First snapshot immediately, then on the step interval.
	if done := h.sendSnapshot(c, ds, ip); done {
		return
	}

	ticker := time.NewTicker(time.Duration(step) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if done := h.sendSnapshot(c, ds, ip); done {
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// sendSnapshot evaluates "now" against the connection's dataset and sends
// the result. Returns true when the stream should end.
func (h *Handler) sendSnapshot(c *client, ds *ephem.Dataset, ip string) bool {
	res, found, err := h.facade.Now(ds)
	if err != nil {
		metrics.IncStreamErrors("query_error")
		h.logger.Warn("stream snapshot failed", "remote_ip", ip, "error", err)
		// A degraded record is not fatal to the stream; the next tick may
		// match a different one.
		return false
	}
	if !found {
		// The wall clock has left the snapshot's hour coverage.
		if err := c.sendJSON(endMessage{Type: "coverage_exhausted", QueriedEpoch: res.QueriedEpoch}); err != nil {
			metrics.IncStreamErrors("send_error")
		}
		return true
	}

	if err := c.sendJSON(positionMessage{
		Type:         "position",
		Epoch:        res.Vector.Epoch,
		QueriedEpoch: res.QueriedEpoch,
		LatDeg:       res.Location.LatDeg,
		LonDeg:       res.Location.LonDeg,
		AltKm:        res.Location.AltKm,
		SpeedKmS:     res.SpeedKmS,
	}); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return true
	}
	return false
}

// SSE message payload types.

type metaMessage struct {
	Type       string `json:"type"`
	Source     string `json:"source"`
	FetchedAt  string `json:"fetched_at"`
	Vectors    int    `json:"vectors"`
	FirstEpoch string `json:"first_epoch,omitempty"`
	LastEpoch  string `json:"last_epoch,omitempty"`
}

func metadataMessage(ds *ephem.Dataset) metaMessage {
	m := metaMessage{
		Type:      "metadata",
		Source:    ds.Source,
		FetchedAt: ds.FetchedAt.UTC().Format(time.RFC3339),
		Vectors:   len(ds.Vectors),
	}
	if cov, ok := ds.Coverage(); ok {
		m.FirstEpoch = cov.First
		m.LastEpoch = cov.Last
	}
	return m
}

type positionMessage struct {
	Type         string  `json:"type"`
	Epoch        string  `json:"epoch"`
	QueriedEpoch string  `json:"queried_epoch"`
	LatDeg       float64 `json:"latitude_deg"`
	LonDeg       float64 `json:"longitude_deg"`
	AltKm        float64 `json:"altitude_km"`
	SpeedKmS     float64 `json:"speed_km_s"`
}

type endMessage struct {
	Type         string `json:"type"`
	QueriedEpoch string `json:"queried_epoch"`
}
