package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/metrics"
	"github.com/ni-da-ba/iss-tracker/internal/query"
	"github.com/ni-da-ba/iss-tracker/internal/track"
)

// handlers serves the data routes. Every request fetches a fresh dataset
// from the source; nothing is retained between requests.
type handlers struct {
	source   Source
	facade   query.Facade
	geocoder Geocoder
	tracks   *track.Computer
	logger   *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// dataset fetches the feed for one request. On failure it writes a 503 and
// returns nil.
func (h *handlers) dataset(w http.ResponseWriter, r *http.Request) *ephem.Dataset {
	start := time.Now()
	ds, err := h.source.Dataset(r.Context())
	metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		h.logger.Error("ephemeris fetch failed", "component", "api", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ephemeris feed unavailable")
		return nil
	}
	metrics.SetDatasetVectors(len(ds.Vectors))
	return ds
}

// matchStatus maps a facade match result onto an HTTP error response.
// Returns true when a response has been written.
func (h *handlers) matchStatus(w http.ResponseWriter, found bool, err error) bool {
	switch {
	case errors.Is(err, query.ErrBadEpoch):
		metrics.RecordMatch("error")
		writeError(w, http.StatusBadRequest, err.Error())
		return true
	case err != nil:
		metrics.RecordMatch("error")
		h.logger.Error("query failed", "component", "api", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return true
	case !found:
		metrics.RecordMatch("miss")
		writeError(w, http.StatusNotFound, "no epoch within the queried hour")
		return true
	}
	metrics.RecordMatch("hit")
	return false
}

// place runs the reverse geocoder, best effort. An empty string means no
// annotation (geocoder absent or lookup failed).
func (h *handlers) place(r *http.Request, latDeg, lonDeg float64) string {
	if h.geocoder == nil {
		return ""
	}
	name, err := h.geocoder.Reverse(r.Context(), latDeg, lonDeg)
	if err != nil {
		h.logger.Warn("reverse geocode failed", "component", "api", "error", err)
		return ""
	}
	return name
}

// epochs returns the offset/limit window over the dataset.
// GET /epochs?offset=N&limit=M
func (h *handlers) epochs(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	q := r.URL.Query()
	win := h.facade.WindowOf(ds, q.Get("offset"), q.Get("limit"))
	if win == nil {
		win = []ephem.StateVector{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(win),
		"total":  len(ds.Vectors),
		"epochs": win,
	})
}

// epochAt returns the record nearest the requested epoch.
// GET /epochs/{epoch}
func (h *handlers) epochAt(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	sv, found, err := h.facade.EpochAt(ds, r.PathValue("epoch"))
	if h.matchStatus(w, found, err) {
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// speedAt returns the scalar speed of the record nearest the requested epoch.
// GET /epochs/{epoch}/speed
func (h *handlers) speedAt(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	speed, found, err := h.facade.SpeedAt(ds, r.PathValue("epoch"))
	if h.matchStatus(w, found, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"speed": speed,
		"units": "km/s",
	})
}

type locationResponse struct {
	LatDeg float64 `json:"latitude_deg"`
	LonDeg float64 `json:"longitude_deg"`
	AltKm  float64 `json:"altitude_km"`
	Place  string  `json:"place,omitempty"`
}

// locationAt returns the ground position of the record nearest the requested
// epoch, annotated with a place name when the geocoder resolves one.
// GET /epochs/{epoch}/location
func (h *handlers) locationAt(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	geo, found, err := h.facade.LocationAt(ds, r.PathValue("epoch"))
	if h.matchStatus(w, found, err) {
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		LatDeg: geo.LatDeg,
		LonDeg: geo.LonDeg,
		AltKm:  geo.AltKm,
		Place:  h.place(r, geo.LatDeg, geo.LonDeg),
	})
}

type nowResponse struct {
	query.NowResult
	Place string `json:"place,omitempty"`
}

// now returns the record nearest the current wall-clock time with its speed
// and ground position.
// GET /now
func (h *handlers) now(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	res, found, err := h.facade.Now(ds)
	switch {
	case err != nil:
		metrics.RecordMatch("error")
		h.logger.Error("now query failed", "component", "api", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case !found:
		metrics.RecordMatch("miss")
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":         "dataset does not cover the current time",
			"queried_epoch": res.QueriedEpoch,
		})
		return
	}
	metrics.RecordMatch("hit")

	writeJSON(w, http.StatusOK, nowResponse{
		NowResult: res,
		Place:     h.place(r, res.Location.LatDeg, res.Location.LonDeg),
	})
}

type metadataResponse struct {
	Source      string   `json:"source"`
	FetchedAt   string   `json:"fetched_at"`
	Vectors     int      `json:"vectors"`
	FirstEpoch  string   `json:"first_epoch,omitempty"`
	LastEpoch   string   `json:"last_epoch,omitempty"`
	AvgSpeedKmS *float64 `json:"avg_speed_km_s,omitempty"`
}

// metadata returns the dataset's coverage bounds and average speed.
// GET /metadata
func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	resp := metadataResponse{
		Source:    ds.Source,
		FetchedAt: ds.FetchedAt.UTC().Format(time.RFC3339),
		Vectors:   len(ds.Vectors),
	}
	if cov, ok := ds.Coverage(); ok {
		resp.FirstEpoch = cov.First
		resp.LastEpoch = cov.Last
	}
	if avg, err := query.AverageSpeed(ds.Vectors); err == nil {
		resp.AvgSpeedKmS = &avg
	} else {
		h.logger.Warn("average speed unavailable", "component", "api", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// comment returns the OEM comment block.
// GET /comment
func (h *handlers) comment(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	comments := ds.Comments
	if comments == nil {
		comments = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// track computes the ground track for the offset/limit window.
// GET /track?offset=N&limit=M
func (h *handlers) track(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w, r)
	if ds == nil {
		return
	}

	win := h.facade.WindowOf(ds, r.URL.Query().Get("offset"), r.URL.Query().Get("limit"))
	points, skipped := h.tracks.GroundTrack(r.Context(), win)
	if points == nil {
		points = []track.Point{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(points),
		"skipped": skipped,
		"points":  points,
	})
}
