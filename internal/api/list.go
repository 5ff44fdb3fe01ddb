package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/correlator-io/secdash/internal/api/middleware"
	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
	"github.com/correlator-io/secdash/internal/views"
)

// handleList serves one page of view over records.
//
// Response codes:
//   - 200 OK: Page of results (possibly empty, with total_pages 1)
//   - 400 Bad Request: Malformed or out-of-range query parameter; "param" names it
//   - 500 Internal Server Error: Unexpected engine failure
func handleList[T any](s *Server, view *views.View[T], records []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, _, err := parseState(s, r, view)
		if err != nil {
			s.writeQueryError(w, r, view.Name(), err)

			return
		}

		result, err := view.Query(records, state)
		if err != nil {
			s.writeQueryError(w, r, view.Name(), err)

			return
		}

		if s.metrics != nil {
			s.metrics.ObserveQuery(view.Name(), result.TotalCount)
		}

		s.logger.Debug("View query served",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("view", view.Name()),
			slog.Int("total_count", result.TotalCount),
			slog.Int("page", result.PageIndex),
			slog.Int("total_pages", result.TotalPages),
		)

		s.writeJSON(w, r, ListResponse{
			View:       view.Name(),
			Title:      view.Title(),
			Items:      view.Rows(result.Items),
			TotalCount: result.TotalCount,
			TotalPages: result.TotalPages,
			Page:       result.PageIndex,
			PageSize:   result.PageSize,
			Pager:      views.NewPager(result, s.config.PagerWindow),
			Sort: SortState{
				Column:    state.Sort.Column,
				Direction: string(state.Sort.Direction),
			},
			Filters: activeFilters(state.Filters),
		})
	}
}

// handleExport serves the CSV download of view. The whole payload is serialized before the
// first byte is written, so a failure yields a 500 problem instead of a truncated file.
//
// Query parameters are the same as handleList plus scope=filtered|all; paging is ignored.
func handleExport[T any](s *Server, view *views.View[T], records []T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := middleware.GetCorrelationID(r.Context())

		state, query, err := parseState(s, r, view)
		if err != nil {
			s.writeQueryError(w, r, view.Name(), err)

			return
		}

		scope, err := views.ParseScope(query.Scope)
		if err != nil {
			WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()).WithParam(paramScope))

			return
		}

		payload, err := view.Export(records, state, scope)
		if err == nil {
			var filename string

			filename, err = export.Filename(view.Name(), state.Now)
			if err == nil {
				s.observeExport(view.Name(), string(scope), len(payload), nil)
				s.writeAttachment(w, r, filename, payload)

				return
			}
		}

		s.observeExport(view.Name(), string(scope), 0, err)

		s.logger.Error("CSV export failed",
			slog.String("correlation_id", correlationID),
			slog.String("view", view.Name()),
			slog.String("scope", string(scope)),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to generate CSV export"))
	}
}

// writeQueryError maps a state parsing or engine error to a problem response.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, view string, err error) {
	var pErr *paramError
	if errors.As(err, &pErr) {
		WriteErrorResponse(w, r, s.logger, BadRequest(pErr.Error()).WithParam(pErr.param))

		return
	}

	if errors.Is(err, dataview.ErrInvalidPageSize) {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()).WithParam(paramPageSize))

		return
	}

	s.logger.Error("View query failed",
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		slog.String("view", view),
		slog.String("error", err.Error()),
	)

	WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to query view"))
}

func (s *Server) writeAttachment(w http.ResponseWriter, r *http.Request, filename, payload string) {
	if err := export.WriteAttachment(w, filename, payload); err != nil {
		// Headers already sent, log only
		s.logger.Error("Failed to write CSV attachment",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) observeExport(view, scope string, size int, err error) {
	if s.metrics != nil {
		s.metrics.ObserveExport(view, scope, size, err)
	}
}
