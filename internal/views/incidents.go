package views

import (
	"time"

	"golang.org/x/text/language"

	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
)

// IncidentRow is the JSON shape of one incident in a list response.
type IncidentRow struct {
	dataset.Incident

	SeverityRank    int      `json:"severity_rank"`              //nolint:tagliatelle
	ResolutionHours *float64 `json:"resolution_hours,omitempty"` //nolint:tagliatelle
}

// IncidentsView is the incidents page: filterable by severity, status and category, searchable
// by id, title, description and assignee, newest first by default.
func IncidentsView() *View[dataset.Incident] {
	return &View[dataset.Incident]{
		name:  "incidents",
		title: "Security Incidents",
		schema: dataview.Schema[dataset.Incident]{
			Dimensions: map[string]func(dataset.Incident) string{
				"severity": func(i dataset.Incident) string { return i.Severity },
				"status":   func(i dataset.Incident) string { return i.Status },
				"category": func(i dataset.Incident) string { return i.Category },
			},
			Searchable: []func(dataset.Incident) string{
				func(i dataset.Incident) string { return i.ID },
				func(i dataset.Incident) string { return i.Title },
				func(i dataset.Incident) string { return i.Description },
				func(i dataset.Incident) string { return i.Assignee },
			},
			Timestamp: func(i dataset.Incident) time.Time { return i.DetectedAt },
			Columns: map[string]dataview.Column[dataset.Incident]{
				"severity": dataview.RankColumn(func(i dataset.Incident) string { return i.Severity }, SeverityRanks),
				"status":   dataview.RankColumn(func(i dataset.Incident) string { return i.Status }, IncidentStatusRanks),
				"title":    dataview.TextColumn(func(i dataset.Incident) string { return i.Title }),
				"category": dataview.TextColumn(func(i dataset.Incident) string { return i.Category }),
				"assignee": dataview.TextColumn(func(i dataset.Incident) string { return i.Assignee }),
				"detected_at": dataview.TimeColumn(func(i dataset.Incident) time.Time {
					return i.DetectedAt
				}),
				"assets": dataview.NumberColumn(func(i dataset.Incident) float64 {
					return float64(i.AffectedAssets)
				}),
			},
			Locale: language.English,
		},
		defaultSort: dataview.Sort{Column: "detected_at", Direction: dataview.Desc},
		columns: []export.Column[dataset.Incident]{
			{Header: "ID", Value: export.Text(func(i dataset.Incident) string { return i.ID })},
			{Header: "Title", Value: export.Text(func(i dataset.Incident) string { return i.Title })},
			{Header: "Severity", Value: export.Text(func(i dataset.Incident) string { return i.Severity })},
			{Header: "Status", Value: export.Text(func(i dataset.Incident) string { return i.Status })},
			{Header: "Category", Value: export.Text(func(i dataset.Incident) string { return i.Category })},
			{Header: "Assignee", Value: export.Text(func(i dataset.Incident) string { return i.Assignee })},
			{Header: "Source", Value: export.Text(func(i dataset.Incident) string { return i.Source })},
			{Header: "Detected At", Value: export.Timestamp(func(i dataset.Incident) time.Time { return i.DetectedAt })},
			{Header: "Resolved At", Value: export.Timestamp(resolvedAt)},
			{Header: "Affected Assets", Value: export.Int(func(i dataset.Incident) int { return i.AffectedAssets })},
		},
		row: func(i dataset.Incident) any {
			row := IncidentRow{Incident: i, SeverityRank: dataview.RankOf(SeverityRanks, i.Severity)}

			if i.ResolvedAt != nil {
				hours := i.ResolvedAt.Sub(i.DetectedAt).Hours()
				row.ResolutionHours = &hours
			}

			return row
		},
	}
}

func resolvedAt(i dataset.Incident) time.Time {
	if i.ResolvedAt == nil {
		return time.Time{}
	}

	return *i.ResolvedAt
}
