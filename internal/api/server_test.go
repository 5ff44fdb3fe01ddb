package api

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/secdash/internal/api/middleware"
	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/metrics"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testConfig() *ServerConfig {
	return &ServerConfig{
		Port:               8080,
		Host:               "127.0.0.1",
		ReadTimeout:        time.Second,
		WriteTimeout:       time.Second,
		ShutdownTimeout:    time.Second,
		LogLevel:           slog.LevelError,
		DefaultPageSize:    20,
		MaxPageSize:        100,
		PagerWindow:        5,
		MaxSearchLength:    50,
		MetricsEnabled:     true,
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSExposedHeaders: []string{"Content-Disposition"},
		CORSMaxAge:         60,
	}
}

func newTestServer(t *testing.T, limiter middleware.RateLimiter, recorder *metrics.Recorder) *Server {
	t.Helper()

	catalog, err := dataset.Load(testNow)
	require.NoError(t, err)

	server, err := NewServer(testConfig(), catalog, limiter, recorder)
	require.NoError(t, err)

	server.clock = func() time.Time { return testNow }

	return server
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()

	assert.Equal(t, contentTypeProblemJSON, rec.Header().Get("Content-Type"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func parseCSV(t *testing.T, body string) [][]string {
	t.Helper()

	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestNewServer_RequiresCatalog(t *testing.T) {
	_, err := NewServer(testConfig(), nil, nil, nil)

	assert.ErrorIs(t, err, ErrNilCatalog)
}

func TestListIncidents_Defaults(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(), "/api/v1/incidents"))

	assert.Equal(t, "incidents", body["view"])
	assert.InDelta(t, 25, body["total_count"], 0)
	assert.InDelta(t, 2, body["total_pages"], 0)
	assert.InDelta(t, 1, body["page"], 0)
	assert.InDelta(t, 20, body["page_size"], 0)
	assert.Equal(t, map[string]any{"column": "detected_at", "direction": "desc"}, body["sort"])
	assert.Empty(t, body["filters"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 20)

	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INC-2041", first["id"])
}

func TestListIncidents_FilterSortPaginate(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(),
		"/api/v1/incidents?severity=critical&status=all&sort=title&dir=asc&page=2&page_size=2"))

	assert.InDelta(t, 5, body["total_count"], 0)
	assert.InDelta(t, 3, body["total_pages"], 0)
	assert.InDelta(t, 2, body["page"], 0)
	assert.Equal(t, map[string]any{"severity": "critical"}, body["filters"], "sentinel values are not echoed")
	assert.Len(t, body["items"], 2)

	pager, ok := body["pager"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, pager["has_prev"])
	assert.Equal(t, true, pager["has_next"])
}

func TestListIncidents_PageBeyondEndIsClamped(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(), "/api/v1/incidents?page=99"))

	assert.InDelta(t, 2, body["page"], 0)
	assert.Len(t, body["items"], 5)
}

func TestListIncidents_NoMatchesIsEmptyPage(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(), "/api/v1/incidents?q=no-such-incident-anywhere"))

	assert.InDelta(t, 0, body["total_count"], 0)
	assert.InDelta(t, 1, body["total_pages"], 0)
	assert.InDelta(t, 1, body["page"], 0)
	assert.Equal(t, []any{}, body["items"])
}

func TestListIncidents_InvalidParameters(t *testing.T) {
	server := newTestServer(t, nil, nil)

	tests := []struct {
		name  string
		query string
		param string
	}{
		{name: "page size zero", query: "page_size=0", param: "page_size"},
		{name: "page size above max", query: "page_size=101", param: "page_size"},
		{name: "page not a number", query: "page=abc", param: "page"},
		{name: "negative page", query: "page=-1", param: "page"},
		{name: "bad direction", query: "dir=sideways", param: "dir"},
		{name: "unknown sort column", query: "sort=favourite_colour", param: "sort"},
		{name: "unknown window", query: "window=2d", param: "window"},
		{name: "search too long", query: "q=" + strings.Repeat("x", 51), param: "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, server.Handler(), "/api/v1/incidents?"+tt.query)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.param, problem.Param)
			assert.Equal(t, http.StatusBadRequest, problem.Status)
			assert.Contains(t, problem.Detail, "'"+tt.param+"'")
			assert.NotEmpty(t, problem.CorrelationID)
		})
	}
}

func TestListHighRiskUsers_DefaultSortAndFilter(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(), "/api/v1/users/high-risk"))

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, items)

	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jordan Blake", first["name"])

	body = decodeList(t, get(t, server.Handler(), "/api/v1/users/high-risk?department=Finance"))
	assert.InDelta(t, 2, body["total_count"], 0)
}

func TestListTopRisks_DefaultSort(t *testing.T) {
	server := newTestServer(t, nil, nil)

	body := decodeList(t, get(t, server.Handler(), "/api/v1/risks/top?page_size=3"))

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 3)

	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RSK-301", first["id"])
	assert.InDelta(t, 20, first["score"], 0.0001)
}

func TestExportIncidents(t *testing.T) {
	server := newTestServer(t, nil, nil)

	tests := []struct {
		name  string
		query string
		rows  int
	}{
		{name: "filtered by default", query: "severity=critical", rows: 5},
		{name: "explicit filtered scope", query: "severity=critical&scope=filtered", rows: 5},
		{name: "all scope ignores filters", query: "severity=critical&scope=all", rows: 25},
		{name: "paging is ignored", query: "page_size=1&page=3", rows: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, server.Handler(), "/api/v1/incidents/export?"+tt.query)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t,
				`attachment; filename="incidents-2026-03-14.csv"`,
				rec.Header().Get("Content-Disposition"),
			)

			rows := parseCSV(t, rec.Body.String())
			assert.Len(t, rows, tt.rows+1)
			assert.Equal(t, "ID", rows[0][0])
		})
	}
}

func TestExport_InvalidScope(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/risks/top/export?scope=everything")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scope", decodeProblem(t, rec).Param)
}

func TestExportHighRiskUsers_Filename(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/users/high-risk/export?q=jordan")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "high-risk-users-2026-03-14.csv")
	assert.Len(t, parseCSV(t, rec.Body.String()), 2)
}

func TestSummary(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/reports/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 25, body.Summary.TotalIncidents)
	assert.Equal(t, 10, body.Summary.TotalRisks)
	assert.True(t, body.Summary.GeneratedAt.Equal(testNow))
	assert.NotEmpty(t, body.Metrics)
}

func TestSummaryExport(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/reports/summary/export")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`attachment; filename="analytics-summary-2026-03-14.csv"`,
		rec.Header().Get("Content-Disposition"),
	)

	rows := parseCSV(t, rec.Body.String())
	require.Greater(t, len(rows), 1)
	assert.Equal(t, []string{"incidents", "total"}, rows[1][:2])
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, Version, rec.Header().Get(versionHeader))

	rec = get(t, server.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	rec = get(t, server.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, serviceName, health.ServiceName)
	assert.Equal(t, map[string]int{"incidents": 25, "high-risk-users": 13, "top-risks": 10}, health.Datasets)
}

func TestReady_UnloadedCatalog(t *testing.T) {
	server, err := NewServer(testConfig(), &dataset.Catalog{}, nil, nil)
	require.NoError(t, err)

	rec := get(t, server.Handler(), "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFound(t *testing.T) {
	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/unknown")

	require.Equal(t, http.StatusNotFound, rec.Code)

	problem := decodeProblem(t, rec)
	assert.Equal(t, "/api/v1/unknown", problem.Instance)
	assert.Equal(t, rec.Header().Get(middleware.CorrelationIDHeader), problem.CorrelationID)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, nil, metrics.New())

	require.Equal(t, http.StatusOK, get(t, server.Handler(), "/api/v1/incidents?severity=high").Code)
	require.Equal(t, http.StatusOK, get(t, server.Handler(), "/api/v1/incidents/export").Code)

	rec := get(t, server.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `secdash_view_queries_total{view="incidents"} 1`)
	assert.Contains(t, text, `secdash_exports_total{outcome="success",scope="filtered",view="incidents"} 1`)
	assert.Contains(t, text, `secdash_http_requests_total{method="GET",route="GET /api/v1/incidents",status="200"} 1`)
	assert.Contains(t, text, `secdash_dataset_records{dataset="top-risks"} 10`)
}

func TestMetricsEndpoint_DisabledWithoutRecorder(t *testing.T) {
	server := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusNotFound, get(t, server.Handler(), "/metrics").Code)
}

func TestRateLimit_RejectsBurst(t *testing.T) {
	limiter := middleware.NewInMemoryRateLimiter(&middleware.Config{
		GlobalRPS:       0.01,
		GlobalBurst:     1,
		CleanupInterval: time.Minute,
		IdleTimeout:     time.Minute,
	})
	t.Cleanup(func() { _ = limiter.Close() })

	server := newTestServer(t, limiter, metrics.New())

	assert.Equal(t, http.StatusOK, get(t, server.Handler(), "/api/v1/risks/top").Code)

	rec := get(t, server.Handler(), "/api/v1/risks/top")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
