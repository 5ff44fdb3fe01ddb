package views

import (
	"time"

	"golang.org/x/text/language"

	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
)

// RiskRow is the JSON shape of one risk in the top-risks table.
type RiskRow struct {
	dataset.Risk

	SeverityRank int `json:"severity_rank"` //nolint:tagliatelle
}

// TopRisksView is the risk-summary page, highest score first by default.
func TopRisksView() *View[dataset.Risk] {
	return &View[dataset.Risk]{
		name:  "top-risks",
		title: "Top Risks",
		schema: dataview.Schema[dataset.Risk]{
			Dimensions: map[string]func(dataset.Risk) string{
				"severity": func(r dataset.Risk) string { return r.Severity },
				"category": func(r dataset.Risk) string { return r.Category },
				"status":   func(r dataset.Risk) string { return r.Status },
			},
			Searchable: []func(dataset.Risk) string{
				func(r dataset.Risk) string { return r.Title },
				func(r dataset.Risk) string { return r.Owner },
				func(r dataset.Risk) string { return r.Category },
			},
			Timestamp: func(r dataset.Risk) time.Time { return r.ReviewedAt },
			Columns: map[string]dataview.Column[dataset.Risk]{
				"score":      dataview.NumberColumn(func(r dataset.Risk) float64 { return r.Score }),
				"likelihood": dataview.NumberColumn(func(r dataset.Risk) float64 { return float64(r.Likelihood) }),
				"impact":     dataview.NumberColumn(func(r dataset.Risk) float64 { return float64(r.Impact) }),
				"severity":   dataview.RankColumn(func(r dataset.Risk) string { return r.Severity }, SeverityRanks),
				"status":     dataview.RankColumn(func(r dataset.Risk) string { return r.Status }, RiskStatusRanks),
				"title":      dataview.TextColumn(func(r dataset.Risk) string { return r.Title }),
				"reviewed_at": dataview.TimeColumn(func(r dataset.Risk) time.Time {
					return r.ReviewedAt
				}),
			},
			Locale: language.English,
		},
		defaultSort: dataview.Sort{Column: "score", Direction: dataview.Desc},
		columns: []export.Column[dataset.Risk]{
			{Header: "ID", Value: export.Text(func(r dataset.Risk) string { return r.ID })},
			{Header: "Title", Value: export.Text(func(r dataset.Risk) string { return r.Title })},
			{Header: "Category", Value: export.Text(func(r dataset.Risk) string { return r.Category })},
			{Header: "Severity", Value: export.Text(func(r dataset.Risk) string { return r.Severity })},
			{Header: "Status", Value: export.Text(func(r dataset.Risk) string { return r.Status })},
			{Header: "Owner", Value: export.Text(func(r dataset.Risk) string { return r.Owner })},
			{Header: "Likelihood", Value: export.Int(func(r dataset.Risk) int { return r.Likelihood })},
			{Header: "Impact", Value: export.Int(func(r dataset.Risk) int { return r.Impact })},
			{Header: "Score", Value: export.Float(func(r dataset.Risk) float64 { return r.Score }, 1)},
			{Header: "Trend", Value: export.Text(func(r dataset.Risk) string { return r.Trend })},
			{Header: "Reviewed At", Value: export.Timestamp(func(r dataset.Risk) time.Time { return r.ReviewedAt })},
		},
		row: func(r dataset.Risk) any {
			return RiskRow{Risk: r, SeverityRank: dataview.RankOf(SeverityRanks, r.Severity)}
		},
	}
}
