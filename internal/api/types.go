package api

import (
	"github.com/correlator-io/secdash/internal/analytics"
	"github.com/correlator-io/secdash/internal/views"
)

type (
	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string         `json:"status"`
		ServiceName string         `json:"service_name"` //nolint:tagliatelle
		Version     string         `json:"version"`
		Uptime      string         `json:"uptime,omitempty"`
		Datasets    map[string]int `json:"datasets"`
	}

	// SortState echoes the ordering a list response was produced with.
	SortState struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	}

	// ListResponse is one page of a dashboard table.
	//
	// Items is always a JSON array, empty when nothing matches. Page is the page actually served:
	// an out-of-range request is clamped into 1..TotalPages.
	ListResponse struct {
		View       string            `json:"view"`
		Title      string            `json:"title"`
		Items      []any             `json:"items"`
		TotalCount int               `json:"total_count"` //nolint:tagliatelle
		TotalPages int               `json:"total_pages"` //nolint:tagliatelle
		Page       int               `json:"page"`
		PageSize   int               `json:"page_size"` //nolint:tagliatelle
		Pager      views.Pager       `json:"pager"`
		Sort       SortState         `json:"sort"`
		Filters    map[string]string `json:"filters"`
	}

	// SummaryResponse is the analytics report plus its flattened metric lines.
	SummaryResponse struct {
		Summary analytics.Summary  `json:"summary"`
		Metrics []analytics.Metric `json:"metrics"`
	}
)
