package views

import (
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
)

// UserRow is the JSON shape of one user in the high-risk table.
type UserRow struct {
	dataset.User

	RiskLevelRank int `json:"risk_level_rank"` //nolint:tagliatelle
}

// HighRiskUsersView is the user-behaviour page, highest risk score first by default.
func HighRiskUsersView() *View[dataset.User] {
	return &View[dataset.User]{
		name:  "high-risk-users",
		title: "High-Risk Users",
		schema: dataview.Schema[dataset.User]{
			Dimensions: map[string]func(dataset.User) string{
				"department": func(u dataset.User) string { return u.Department },
				"risk_level": func(u dataset.User) string { return u.RiskLevel },
			},
			Searchable: []func(dataset.User) string{
				func(u dataset.User) string { return u.Name },
				func(u dataset.User) string { return u.Email },
				func(u dataset.User) string { return u.Department },
			},
			Timestamp: func(u dataset.User) time.Time { return u.LastActivity },
			Columns: map[string]dataview.Column[dataset.User]{
				"risk_score": dataview.NumberColumn(func(u dataset.User) float64 { return u.RiskScore }),
				"name":       dataview.TextColumn(func(u dataset.User) string { return u.Name }),
				"department": dataview.TextColumn(func(u dataset.User) string { return u.Department }),
				"anomalies":  dataview.NumberColumn(func(u dataset.User) float64 { return float64(u.Anomalies) }),
				"risk_level": dataview.RankColumn(func(u dataset.User) string { return u.RiskLevel }, SeverityRanks),
				"last_activity": dataview.TimeColumn(func(u dataset.User) time.Time {
					return u.LastActivity
				}),
			},
			Locale: language.English,
		},
		defaultSort: dataview.Sort{Column: "risk_score", Direction: dataview.Desc},
		columns: []export.Column[dataset.User]{
			{Header: "ID", Value: export.Text(func(u dataset.User) string { return u.ID })},
			{Header: "Name", Value: export.Text(func(u dataset.User) string { return u.Name })},
			{Header: "Email", Value: export.Text(func(u dataset.User) string { return u.Email })},
			{Header: "Department", Value: export.Text(func(u dataset.User) string { return u.Department })},
			{Header: "Risk Score", Value: export.Float(func(u dataset.User) float64 { return u.RiskScore }, 1)},
			{Header: "Risk Level", Value: export.Text(func(u dataset.User) string { return u.RiskLevel })},
			{Header: "Anomalies", Value: export.Int(func(u dataset.User) int { return u.Anomalies })},
			{Header: "Indicators", Value: export.Text(func(u dataset.User) string {
				return strings.Join(u.Indicators, "; ")
			})},
			{Header: "Last Activity", Value: export.Timestamp(func(u dataset.User) time.Time { return u.LastActivity })},
		},
		row: func(u dataset.User) any {
			return UserRow{User: u, RiskLevelRank: dataview.RankOf(SeverityRanks, u.RiskLevel)}
		},
	}
}
