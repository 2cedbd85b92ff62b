// Package geocode annotates a ground position with a human-readable place
// name via the OSM Nominatim reverse-geocoding API. The annotation is
// strictly best-effort: the location queries it decorates stay correct and
// complete without it.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// maxBodyBytes caps the reverse-geocode response; a place record is a few KB.
const maxBodyBytes = 1 << 20

// OverOpenWater is the annotation used when the geocoder knows no feature at
// the position, which for an ISS ground track is most of the time.
const OverOpenWater = "over open water"

// Client is a Nominatim /reverse API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a Client against the given Nominatim base URL. An empty
// URL selects the public OSM instance. Nominatim's usage policy requires an
// identifying User-Agent.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// reverseResponse is the subset of the Nominatim JSON reply this service
// reads. A position with no known feature yields {"error": "Unable to
// geocode"} with HTTP 200.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse resolves a latitude/longitude pair to a display name.
// Positions Nominatim cannot resolve return OverOpenWater, not an error.
func (c *Client) Reverse(ctx context.Context, latDeg, lonDeg float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(latDeg, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lonDeg, 'f', 6, 64))
	q.Set("format", "jsonv2")
	q.Set("zoom", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from geocoder", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading geocoder response: %w", err)
	}

	var rr reverseResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "", fmt.Errorf("decoding geocoder response: %w", err)
	}

	if rr.Error != "" || rr.DisplayName == "" {
		return OverOpenWater, nil
	}
	return rr.DisplayName, nil
}
