// Package main provides the SECDASH security dashboard data service.
//
// The service loads the incident, user-behaviour and risk datasets once at startup and serves
// filtered, sorted and paginated views of them over HTTP, plus CSV exports and an analytics
// summary.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/correlator-io/secdash/internal/api"
	"github.com/correlator-io/secdash/internal/api/middleware"
	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/metrics"
)

const name = "secdash"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, api.Version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting SECDASH service",
		slog.String("service", name),
		slog.String("version", api.Version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
		slog.Int("default_page_size", serverConfig.DefaultPageSize),
		slog.Int("max_page_size", serverConfig.MaxPageSize),
	)

	catalog, err := dataset.LoadFromEnv(time.Now())
	if err != nil {
		logger.Error("Failed to load datasets", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Datasets loaded",
		slog.Int("incidents", len(catalog.Incidents)),
		slog.Int("users", len(catalog.Users)),
		slog.Int("risks", len(catalog.Risks)),
		slog.String("override_dir", os.Getenv(dataset.DatasetDirEnvVar)),
	)

	// Load rate limiter configuration
	middlewareConfig := middleware.LoadConfig()

	// Leave the interface nil when disabled so the middleware is skipped entirely.
	var rateLimiter middleware.RateLimiter

	if middlewareConfig.Enabled() {
		// Graceful shutdown handled by server.shutdown()
		rateLimiter = middleware.NewInMemoryRateLimiter(middlewareConfig)

		logger.Info("Rate limiter initialized",
			slog.Float64("global_rps", middlewareConfig.GlobalRPS),
			slog.Int("global_burst", middlewareConfig.GlobalBurst),
			slog.Float64("client_rps", middlewareConfig.ClientRPS),
			slog.Int("client_burst", middlewareConfig.ClientBurst),
			slog.Bool("trust_forwarded_for", middlewareConfig.TrustForwardedFor),
		)
	}

	var recorder *metrics.Recorder

	if serverConfig.MetricsEnabled {
		recorder = metrics.New()
	} else {
		logger.Warn("Prometheus metrics disabled",
			slog.String("note", "Set SECDASH_METRICS_ENABLED=true to expose /metrics"),
		)
	}

	server, err := api.NewServer(serverConfig, catalog, rateLimiter, recorder)
	if err != nil {
		logger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("SECDASH service stopped")
}
