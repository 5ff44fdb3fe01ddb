package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/correlator-io/secdash/internal/api/middleware"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeProblemJSON = "application/problem+json"
	serviceName            = "secdash"
	versionHeader          = "X-Secdash-Version"
)

// Version is reported by /health and the version header. Overridden at build time with
// -ldflags "-X github.com/correlator-io/secdash/internal/api.Version=...".
var Version = "1.0.0-dev" //nolint:gochecknoglobals

// Route represents an HTTP route configuration with a path and handler.
type Route struct {
	Path    string           // The URL pattern for this route (e.g., "GET /ping", "GET /api/v1/incidents")
	Handler http.HandlerFunc // The HTTP handler function for this route
}

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	routes := []Route{
		{"GET /ping", s.handlePing},     // K8s liveness probe
		{"GET /ready", s.handleReady},   // K8s readiness probe
		{"GET /health", s.handleHealth}, // Basic health check - status, uptime, version, dataset sizes

		// Dashboard tables
		{"GET /api/v1/incidents", handleList(s, s.incidents, s.catalog.Incidents)},
		{"GET /api/v1/incidents/export", handleExport(s, s.incidents, s.catalog.Incidents)},
		{"GET /api/v1/users/high-risk", handleList(s, s.users, s.catalog.Users)},
		{"GET /api/v1/users/high-risk/export", handleExport(s, s.users, s.catalog.Users)},
		{"GET /api/v1/risks/top", handleList(s, s.risks, s.catalog.Risks)},
		{"GET /api/v1/risks/top/export", handleExport(s, s.risks, s.catalog.Risks)},

		// Reports
		{"GET /api/v1/reports/summary", s.handleSummary},
		{"GET /api/v1/reports/summary/export", s.handleSummaryExport},

		{"/", s.handleNotFound}, // Catch-all handler for 404 responses
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)
	}

	if s.metrics != nil && s.config.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// handlePing responds to ping requests for basic server validation.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set(versionHeader, Version)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleReady responds to Kubernetes readiness probes.
//
// Response codes:
//   - 200 OK: Datasets are loaded and the server can answer queries
//   - 503 Service Unavailable: The catalog has not been loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, "ready"

	if s.catalog.LoadedAt.IsZero() {
		s.logger.Error("Readiness check failed: datasets not loaded",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)

		status, body = http.StatusServiceUnavailable, "datasets unavailable"
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)

	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("Failed to write ready response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleHealth returns detailed health status information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "healthy",
		ServiceName: serviceName,
		Version:     Version,
		Uptime:      uptime,
		Datasets: map[string]int{
			s.incidents.Name(): len(s.catalog.Incidents),
			s.users.Name():     len(s.catalog.Users),
			s.risks.Name():     len(s.catalog.Risks),
		},
	}

	w.Header().Set(versionHeader, Version)
	s.writeJSON(w, r, health)
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// writeJSON marshals body and writes it with a 200 status. Headers are only written after
// marshaling succeeds, so an encoding failure still produces a clean 500 problem.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, body any) {
	correlationID := middleware.GetCorrelationID(r.Context())

	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		// At this point headers already sent, log only
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
