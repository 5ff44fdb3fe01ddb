// Package dataset provides the in-memory mock records the dashboard views are built on.
//
// Records are hand-authored YAML documents embedded in the binary (or read from an override
// directory) and are loaded once at startup. Loaded slices are treated as immutable: the
// query engine copies before sorting, so they can be shared by concurrent requests.
package dataset

import "time"

type (
	// Incident is one security incident in the incidents list.
	//
	// Fields:
	//   - ID: Stable identifier (e.g., "INC-2041"); derived from the title when omitted
	//   - Title: Short summary shown in the list
	//   - Description: Longer analyst notes, included in free-text search
	//   - Severity: "critical" | "high" | "medium" | "low"
	//   - Status: "open" | "investigating" | "contained" | "resolved"
	//   - Category: Incident class (e.g., "phishing", "malware", "data-exfiltration")
	//   - Assignee: Analyst handling the incident
	//   - Source: Detection source (e.g., "EDR", "SIEM", "user-report")
	//   - DetectedAt: When the incident was detected
	//   - ResolvedAt: When it was resolved (nil while unresolved)
	//   - AffectedAssets: Number of hosts/accounts involved
	Incident struct {
		ID             string     `json:"id"`
		Title          string     `json:"title"`
		Description    string     `json:"description"`
		Severity       string     `json:"severity"`
		Status         string     `json:"status"`
		Category       string     `json:"category"`
		Assignee       string     `json:"assignee"`
		Source         string     `json:"source"`
		DetectedAt     time.Time  `json:"detected_at"`           //nolint:tagliatelle
		ResolvedAt     *time.Time `json:"resolved_at,omitempty"` //nolint:tagliatelle
		AffectedAssets int        `json:"affected_assets"`       //nolint:tagliatelle
	}

	// User is one entry in the user-behaviour high-risk table.
	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Department   string    `json:"department"`
		RiskScore    float64   `json:"risk_score"` //nolint:tagliatelle
		RiskLevel    string    `json:"risk_level"` //nolint:tagliatelle
		Anomalies    int       `json:"anomalies"`
		Indicators   []string  `json:"indicators"`
		LastActivity time.Time `json:"last_activity"` //nolint:tagliatelle
	}

	// Risk is one entry in the risk-summary top-risks table.
	// Score is Likelihood × Impact on a 1-25 scale unless set explicitly.
	Risk struct {
		ID         string    `json:"id"`
		Title      string    `json:"title"`
		Category   string    `json:"category"`
		Severity   string    `json:"severity"`
		Status     string    `json:"status"`
		Owner      string    `json:"owner"`
		Likelihood int       `json:"likelihood"`
		Impact     int       `json:"impact"`
		Score      float64   `json:"score"`
		Trend      string    `json:"trend"`
		ReviewedAt time.Time `json:"reviewed_at"` //nolint:tagliatelle
	}

	// Catalog holds every dataset the dashboard serves.
	Catalog struct {
		Incidents []Incident
		Users     []User
		Risks     []Risk
		LoadedAt  time.Time
	}
)
