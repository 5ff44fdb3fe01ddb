// Package analytics derives the report numbers shown on the analytics page.
//
// Every function here is pure: it reads the loaded datasets and returns numbers, with no
// caching and no shared state.
package analytics

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/export"
)

const (
	statusResolved = "resolved"

	// DatasetLabel names the summary export file.
	DatasetLabel = "analytics-summary"
)

//nolint:gochecknoglobals // display order
var (
	severityOrder = []string{"critical", "high", "medium", "low"}
	statusOrder   = []string{"open", "investigating", "contained", "resolved"}
)

type (
	// Summary is the analytics report over the whole catalog.
	Summary struct {
		GeneratedAt            time.Time      `json:"generated_at"`               //nolint:tagliatelle
		TotalIncidents         int            `json:"total_incidents"`            //nolint:tagliatelle
		OpenIncidents          int            `json:"open_incidents"`             //nolint:tagliatelle
		IncidentsBySeverity    map[string]int `json:"incidents_by_severity"`      //nolint:tagliatelle
		IncidentsByStatus      map[string]int `json:"incidents_by_status"`        //nolint:tagliatelle
		MeanTimeToResolveHours float64        `json:"mean_time_to_resolve_hours"` //nolint:tagliatelle
		MonitoredUsers         int            `json:"monitored_users"`            //nolint:tagliatelle
		HighRiskUsers          int            `json:"high_risk_users"`            //nolint:tagliatelle
		MeanUserRiskScore      float64        `json:"mean_user_risk_score"`       //nolint:tagliatelle
		TotalRisks             int            `json:"total_risks"`                //nolint:tagliatelle
		RisksByCategory        map[string]int `json:"risks_by_category"`          //nolint:tagliatelle
		TopRisk                *dataset.Risk  `json:"top_risk,omitempty"`         //nolint:tagliatelle
	}

	// Metric is one exportable line of a Summary.
	Metric struct {
		Section string  `json:"section"`
		Name    string  `json:"name"`
		Value   float64 `json:"value"`
		Unit    string  `json:"unit"`
	}
)

// Summarize computes the analytics report for catalog.
func Summarize(catalog *dataset.Catalog, now time.Time) Summary {
	summary := Summary{
		GeneratedAt:         now,
		TotalIncidents:      len(catalog.Incidents),
		OpenIncidents:       OpenIncidents(catalog.Incidents),
		IncidentsBySeverity: CountBy(catalog.Incidents, func(i dataset.Incident) string { return i.Severity }),
		IncidentsByStatus:   CountBy(catalog.Incidents, func(i dataset.Incident) string { return i.Status }),
		MonitoredUsers:      len(catalog.Users),
		HighRiskUsers:       HighRiskUsers(catalog.Users),
		MeanUserRiskScore:   MeanRiskScore(catalog.Users),
		TotalRisks:          len(catalog.Risks),
		RisksByCategory:     CountBy(catalog.Risks, func(r dataset.Risk) string { return r.Category }),
	}

	if mttr, ok := MeanTimeToResolve(catalog.Incidents); ok {
		summary.MeanTimeToResolveHours = mttr.Hours()
	}

	if top, ok := TopRisk(catalog.Risks); ok {
		summary.TopRisk = &top
	}

	return summary
}

// CountBy counts records per key. Keys are compared as returned by key.
func CountBy[T any](records []T, key func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, record := range records {
		counts[key(record)]++
	}

	return counts
}

// OpenIncidents counts incidents that are not resolved.
func OpenIncidents(incidents []dataset.Incident) int {
	open := 0

	for _, incident := range incidents {
		if incident.Status != statusResolved {
			open++
		}
	}

	return open
}

// MeanTimeToResolve averages detection-to-resolution time over resolved incidents.
// It reports false when no incident has a resolution time.
func MeanTimeToResolve(incidents []dataset.Incident) (time.Duration, bool) {
	var (
		total time.Duration
		count int
	)

	for _, incident := range incidents {
		if incident.ResolvedAt == nil {
			continue
		}

		total += incident.ResolvedAt.Sub(incident.DetectedAt)
		count++
	}

	if count == 0 {
		return 0, false
	}

	return total / time.Duration(count), true
}

// HighRiskUsers counts users whose risk level is high or critical.
func HighRiskUsers(users []dataset.User) int {
	count := 0

	for _, user := range users {
		if user.RiskLevel == "high" || user.RiskLevel == "critical" {
			count++
		}
	}

	return count
}

// MeanRiskScore averages user risk scores; it is 0 for no users.
func MeanRiskScore(users []dataset.User) float64 {
	if len(users) == 0 {
		return 0
	}

	total := 0.0
	for _, user := range users {
		total += user.RiskScore
	}

	return total / float64(len(users))
}

// TopRisk returns the highest-scoring risk. Ties go to the earliest record.
func TopRisk(risks []dataset.Risk) (dataset.Risk, bool) {
	if len(risks) == 0 {
		return dataset.Risk{}, false
	}

	top := risks[0]
	for _, risk := range risks[1:] {
		if risk.Score > top.Score {
			top = risk
		}
	}

	return top, true
}

// Metrics flattens the summary into ordered report lines. Severities and statuses follow
// business order; risk categories are alphabetical.
func (s Summary) Metrics() []Metric {
	metrics := []Metric{
		{Section: "incidents", Name: "total", Value: float64(s.TotalIncidents), Unit: "count"},
		{Section: "incidents", Name: "open", Value: float64(s.OpenIncidents), Unit: "count"},
		{Section: "incidents", Name: "mean time to resolve", Value: s.MeanTimeToResolveHours, Unit: "hours"},
	}

	for _, severity := range severityOrder {
		metrics = append(metrics, Metric{
			Section: "incidents by severity", Name: severity, Value: float64(s.IncidentsBySeverity[severity]), Unit: "count",
		})
	}

	for _, status := range statusOrder {
		metrics = append(metrics, Metric{
			Section: "incidents by status", Name: status, Value: float64(s.IncidentsByStatus[status]), Unit: "count",
		})
	}

	metrics = append(metrics,
		Metric{Section: "users", Name: "monitored", Value: float64(s.MonitoredUsers), Unit: "count"},
		Metric{Section: "users", Name: "high risk", Value: float64(s.HighRiskUsers), Unit: "count"},
		Metric{Section: "users", Name: "mean risk score", Value: s.MeanUserRiskScore, Unit: "score"},
		Metric{Section: "risks", Name: "total", Value: float64(s.TotalRisks), Unit: "count"},
	)

	for _, category := range slices.SortedFunc(maps.Keys(s.RisksByCategory), compareFold) {
		metrics = append(metrics, Metric{
			Section: "risks by category", Name: category, Value: float64(s.RisksByCategory[category]), Unit: "count",
		})
	}

	if s.TopRisk != nil {
		metrics = append(metrics, Metric{Section: "risks", Name: "top: " + s.TopRisk.Title, Value: s.TopRisk.Score, Unit: "score"})
	}

	return metrics
}

// MetricColumns are the CSV columns of the summary export.
func MetricColumns() []export.Column[Metric] {
	return []export.Column[Metric]{
		{Header: "Section", Value: export.Text(func(m Metric) string { return m.Section })},
		{Header: "Metric", Value: export.Text(func(m Metric) string { return m.Name })},
		{Header: "Value", Value: export.Float(func(m Metric) float64 { return m.Value }, 2)},
		{Header: "Unit", Value: export.Text(func(m Metric) string { return m.Unit })},
	}
}

// Export serializes the summary as CSV.
func (s Summary) Export() (string, error) {
	return export.Serialize(s.Metrics(), MetricColumns())
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
