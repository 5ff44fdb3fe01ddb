package api

import (
	"log/slog"
	"net/http"

	"github.com/correlator-io/secdash/internal/analytics"
	"github.com/correlator-io/secdash/internal/api/middleware"
	"github.com/correlator-io/secdash/internal/export"
	"github.com/correlator-io/secdash/internal/views"
)

// handleSummary returns the analytics summary computed over the whole catalog.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := analytics.Summarize(s.catalog, s.clock())

	s.writeJSON(w, r, SummaryResponse{
		Summary: summary,
		Metrics: summary.Metrics(),
	})
}

// handleSummaryExport returns the analytics summary as analytics-summary-<date>.csv.
func (s *Server) handleSummaryExport(w http.ResponseWriter, r *http.Request) {
	now := s.clock()
	summary := analytics.Summarize(s.catalog, now)

	payload, err := summary.Export()
	if err == nil {
		var filename string

		filename, err = export.Filename(analytics.DatasetLabel, now)
		if err == nil {
			s.observeExport(analytics.DatasetLabel, string(views.ScopeAll), len(payload), nil)
			s.writeAttachment(w, r, filename, payload)

			return
		}
	}

	s.observeExport(analytics.DatasetLabel, string(views.ScopeAll), 0, err)

	s.logger.Error("Summary export failed",
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		slog.String("error", err.Error()),
	)

	WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to generate CSV export"))
}
