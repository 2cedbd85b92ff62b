package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/api"
	"github.com/ni-da-ba/iss-tracker/internal/auth"
	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/epoch"
	"github.com/ni-da-ba/iss-tracker/internal/geocode"
	"github.com/ni-da-ba/iss-tracker/internal/query"
	"github.com/ni-da-ba/iss-tracker/internal/stream"
	"github.com/ni-da-ba/iss-tracker/internal/track"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(),
	}))

	addr := os.Getenv("ISSTRACK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	fetcher := ephem.NewFetcher(os.Getenv("ISSTRACK_SOURCE_URL"), logger)
	facade := query.Facade{Codec: epoch.Codec{LeapAware: loadLeapAware(logger)}}

	trackWorkers := loadTrackWorkers(logger)
	tracks := track.NewComputer(trackWorkers, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(fetcher, facade, streamCfg, logger)

	deps := api.Deps{
		Source:   fetcher,
		Facade:   facade,
		Geocoder: loadGeocoder(logger),
		Tracks:   tracks,
		Stream:   streamHandler,
	}
	srv := api.NewServer(addr, logger, authCfg, deps)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"source_url", fetcher.SourceURL(),
			"track_workers", trackWorkers,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ISSTRACK_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ISSTRACK_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ISSTRACK_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ISSTRACK_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ISSTRACK_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadLeapAware(logger *slog.Logger) bool {
	v := os.Getenv("ISSTRACK_LEAP_AWARE")
	if v == "" {
		return false
	}
	aware, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid ISSTRACK_LEAP_AWARE value, defaulting to false", "value", v)
		return false
	}
	return aware
}

func loadTrackWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()
	if v := os.Getenv("ISSTRACK_TRACK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_TRACK_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}
	return workers
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("ISSTRACK_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ISSTRACK_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSTRACK_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ISSTRACK_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ISSTRACK_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

// loadGeocoder returns nil when reverse geocoding is disabled. Nominatim's
// usage policy requires an identifying User-Agent, so the annotation stays
// off until one is configured.
func loadGeocoder(logger *slog.Logger) api.Geocoder {
	enabledStr := os.Getenv("ISSTRACK_GEOCODE_ENABLED")
	if enabledStr == "" {
		return nil
	}
	enabled, err := strconv.ParseBool(enabledStr)
	if err != nil {
		logger.Warn("invalid ISSTRACK_GEOCODE_ENABLED value, geocoding disabled", "value", enabledStr)
		return nil
	}
	if !enabled {
		return nil
	}

	userAgent := os.Getenv("ISSTRACK_GEOCODE_USER_AGENT")
	if userAgent == "" {
		logger.Warn("ISSTRACK_GEOCODE_USER_AGENT is required for geocoding, geocoding disabled")
		return nil
	}

	logger.Info("reverse geocoding enabled", "user_agent", userAgent)
	return geocode.NewClient(os.Getenv("ISSTRACK_GEOCODE_URL"), userAgent)
}
