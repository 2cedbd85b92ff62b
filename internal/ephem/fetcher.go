package ephem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultSourceURL = "https://nasa-public-data.s3.amazonaws.com/iss-coords/current/ISS_OEM/ISS.OEM_J2K_EPH.xml"

// maxBodyBytes caps the OEM response size. The feed is ~2 MB; anything past
// this is a broken or hostile upstream.
const maxBodyBytes = 50 * 1024 * 1024

// Fetcher retrieves the raw OEM ephemeris document from the upstream feed.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL. An empty URL selects
// the NASA public ISS OEM feed.
func NewFetcher(sourceURL string, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET and returns the raw OEM XML document.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ephemeris: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	// Read one byte past the cap so an exactly-at-limit response is
	// distinguishable from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", f.sourceURL, maxBodyBytes)
	}

	return body, nil
}

// Dataset fetches and parses the feed in one step, stamping the result with
// the source URL and fetch time. This is the per-request entry point for the
// HTTP layer: every query gets a fresh snapshot.
func (f *Fetcher) Dataset(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	raw, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := Parse(raw, f.logger)
	if err != nil {
		return nil, err
	}
	ds.Source = f.sourceURL
	ds.FetchedAt = time.Now()

	f.logger.Debug("ephemeris snapshot ready",
		"vectors", len(ds.Vectors),
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ds, nil
}
