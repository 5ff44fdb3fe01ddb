package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/correlator-io/secdash/internal/api/middleware"
	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/metrics"
	"github.com/correlator-io/secdash/internal/views"
)

// ErrNilCatalog indicates the server was created without datasets.
var ErrNilCatalog = errors.New("dataset catalog is required")

// Server represents the HTTP API server.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	logger      *slog.Logger
	config      *ServerConfig
	startTime   time.Time
	clock       func() time.Time
	validate    *validator.Validate
	catalog     *dataset.Catalog
	rateLimiter middleware.RateLimiter
	metrics     *metrics.Recorder

	incidents *views.View[dataset.Incident]
	users     *views.View[dataset.User]
	risks     *views.View[dataset.Risk]
}

// NewServer creates a new HTTP server instance with structured logging and middleware stack.
//
// Dependencies are injected explicitly rather than being part of ServerConfig.
//
// Parameters:
//   - cfg: Pure server configuration (ports, timeouts, paging, CORS settings)
//   - catalog: Loaded datasets; shared read-only by every request
//   - rateLimiter: Rate limiter implementation (nil disables rate limiting)
//   - recorder: Prometheus recorder (nil disables /metrics and request metrics)
func NewServer(
	cfg *ServerConfig,
	catalog *dataset.Catalog,
	rateLimiter middleware.RateLimiter,
	recorder *metrics.Recorder,
) (*Server, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	server := &Server{
		logger:      logger,
		config:      cfg,
		clock:       time.Now,
		validate:    newValidator(),
		catalog:     catalog,
		rateLimiter: rateLimiter,
		metrics:     recorder,
		incidents:   views.IncidentsView(),
		users:       views.HighRiskUsersView(),
		risks:       views.TopRisksView(),
	}

	mux := http.NewServeMux()
	server.setupRoutes(mux)

	if rateLimiter != nil {
		logger.Info("Rate limiting middleware enabled")
	} else {
		logger.Warn("RateLimiter not configured - rate limiting middleware disabled")
	}

	var (
		requestObserver middleware.RequestObserver
		rejectObserver  middleware.RejectObserver
	)

	if recorder != nil {
		requestObserver, rejectObserver = recorder, recorder

		recorder.SetDatasetSize(server.incidents.Name(), len(catalog.Incidents))
		recorder.SetDatasetSize(server.users.Name(), len(catalog.Users))
		recorder.SetDatasetSize(server.risks.Name(), len(catalog.Risks))
	}

	// Middleware executes in the order listed (top-to-bottom):
	//   1. CorrelationID - generate correlation ID for all responses
	//   2. Recovery - catch panics in all downstream middleware
	//   3. RequestLogger - log every request, including rejected ones
	//   4. CORS - answer preflights before they consume rate limit tokens
	//   5. RateLimit - block floods before any query runs (optional)
	//   6. Metrics - innermost, so it sees the route pattern matched by the mux (optional)
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
		middleware.WithRateLimit(rateLimiter, logger, rejectObserver),
		middleware.WithMetrics(requestObserver),
	)

	server.handler = handler
	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT and SIGTERM signals.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting SECDASH API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
			slog.Int("incidents", len(s.catalog.Incidents)),
			slog.Int("users", len(s.catalog.Users)),
			slog.Int("risks", len(s.catalog.Risks)),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)

		return s.shutdown()
	}
}

// shutdown gracefully shuts down the server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed",
			slog.String("error", err.Error()),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop the in-memory limiter's background cleanup goroutine.
	if limiter, ok := s.rateLimiter.(io.Closer); ok {
		s.logger.Info("Closing rate limiter")

		if err := limiter.Close(); err != nil {
			s.logger.Error("Failed to close rate limiter", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("Server shutdown completed successfully")

	return nil
}
