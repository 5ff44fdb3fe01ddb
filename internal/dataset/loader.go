package dataset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/correlator-io/secdash/internal/config"
)

const (
	incidentsFile = "incidents.yaml"
	usersFile     = "users.yaml"
	risksFile     = "risks.yaml"

	// DatasetDirEnvVar names the environment variable that points at an override directory.
	DatasetDirEnvVar = "SECDASH_DATASET_DIR"

	minScale = 1
	maxScale = 5
	hoursDay = 24
	daysWeek = 7
)

var (
	// ErrInvalidRecord indicates a dataset record failed validation.
	ErrInvalidRecord = errors.New("invalid dataset record")

	// ErrInvalidAge indicates a relative age such as "3d" could not be parsed.
	ErrInvalidAge = errors.New("invalid relative age")
)

//go:embed data/*.yaml
var embedded embed.FS

// idNamespace seeds deterministic ids for records authored without one.
//
//nolint:gochecknoglobals // derived constant
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://secdash.local/dataset"))

// Allowed enumerations. Values are normalised to lowercase before checking.
//
//nolint:gochecknoglobals // lookup tables
var (
	severities       = set("critical", "high", "medium", "low")
	incidentStatuses = set("open", "investigating", "contained", "resolved")
	riskStatuses     = set("open", "mitigating", "accepted")
	trends           = set("up", "down", "flat")
)

type (
	document[T any] struct {
		Records []T `yaml:"records"`
	}

	rawIncident struct {
		ID             string `yaml:"id"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		Severity       string `yaml:"severity"`
		Status         string `yaml:"status"`
		Category       string `yaml:"category"`
		Assignee       string `yaml:"assignee"`
		Source         string `yaml:"source"`
		DetectedAgo    string `yaml:"detected_ago"`
		ResolvedAfter  string `yaml:"resolved_after"`
		AffectedAssets int    `yaml:"affected_assets"`
	}

	rawUser struct {
		ID              string   `yaml:"id"`
		Name            string   `yaml:"name"`
		Email           string   `yaml:"email"`
		Department      string   `yaml:"department"`
		RiskScore       float64  `yaml:"risk_score"`
		RiskLevel       string   `yaml:"risk_level"`
		Anomalies       int      `yaml:"anomalies"`
		Indicators      []string `yaml:"indicators"`
		LastActivityAgo string   `yaml:"last_activity_ago"`
	}

	rawRisk struct {
		ID          string  `yaml:"id"`
		Title       string  `yaml:"title"`
		Category    string  `yaml:"category"`
		Severity    string  `yaml:"severity"`
		Status      string  `yaml:"status"`
		Owner       string  `yaml:"owner"`
		Likelihood  int     `yaml:"likelihood"`
		Impact      int     `yaml:"impact"`
		Score       float64 `yaml:"score"`
		Trend       string  `yaml:"trend"`
		ReviewedAgo string  `yaml:"reviewed_ago"`
	}
)

// Load parses the embedded mock datasets. Relative ages in the YAML ("detected_ago: 3h")
// are resolved against now, so time-window filters stay meaningful whenever the service runs.
func Load(now time.Time) (*Catalog, error) {
	data, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded datasets: %w", err)
	}

	return loadFS(data, nil, now)
}

// LoadDir parses datasets from dir. Files missing from dir fall back to the embedded copy,
// so an override directory only needs the datasets it replaces.
func LoadDir(dir string, now time.Time) (*Catalog, error) {
	fallback, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded datasets: %w", err)
	}

	return loadFS(os.DirFS(dir), fallback, now)
}

// LoadFromEnv loads from the directory named by SECDASH_DATASET_DIR, or the embedded datasets
// when the variable is unset.
func LoadFromEnv(now time.Time) (*Catalog, error) {
	dir := config.GetEnvStr(DatasetDirEnvVar, "")
	if dir == "" {
		return Load(now)
	}

	slog.Info("Loading datasets from override directory", slog.String("dir", dir))

	return LoadDir(dir, now)
}

func loadFS(fsys, fallback fs.FS, now time.Time) (*Catalog, error) {
	var (
		incidents []rawIncident
		users     []rawUser
		risks     []rawRisk
	)

	if err := readDocument(fsys, fallback, incidentsFile, &incidents); err != nil {
		return nil, err
	}

	if err := readDocument(fsys, fallback, usersFile, &users); err != nil {
		return nil, err
	}

	if err := readDocument(fsys, fallback, risksFile, &risks); err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Incidents: make([]Incident, 0, len(incidents)),
		Users:     make([]User, 0, len(users)),
		Risks:     make([]Risk, 0, len(risks)),
		LoadedAt:  now,
	}

	for i, raw := range incidents {
		incident, err := raw.toIncident(now)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", incidentsFile, i+1, err)
		}

		catalog.Incidents = append(catalog.Incidents, incident)
	}

	for i, raw := range users {
		user, err := raw.toUser(now)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", usersFile, i+1, err)
		}

		catalog.Users = append(catalog.Users, user)
	}

	for i, raw := range risks {
		risk, err := raw.toRisk(now)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", risksFile, i+1, err)
		}

		catalog.Risks = append(catalog.Risks, risk)
	}

	slog.Debug("Datasets loaded",
		slog.Int("incidents", len(catalog.Incidents)),
		slog.Int("users", len(catalog.Users)),
		slog.Int("risks", len(catalog.Risks)),
	)

	return catalog, nil
}

func readDocument[T any](fsys, fallback fs.FS, name string, out *[]T) error {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) && fallback != nil {
		slog.Debug("Dataset file not found in override directory, using embedded copy",
			slog.String("file", name))

		data, err = fs.ReadFile(fallback, name)
	}

	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	var doc document[T]
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	*out = doc.Records

	return nil
}

func (r rawIncident) toIncident(now time.Time) (Incident, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return Incident{}, fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}

	severity, err := enum("severity", r.Severity, severities)
	if err != nil {
		return Incident{}, err
	}

	status, err := enum("status", r.Status, incidentStatuses)
	if err != nil {
		return Incident{}, err
	}

	age, err := ParseAge(r.DetectedAgo)
	if err != nil {
		return Incident{}, fmt.Errorf("%w: detected_ago: %w", ErrInvalidRecord, err)
	}

	detectedAt := now.Add(-age)

	var resolvedAt *time.Time

	if r.ResolvedAfter != "" {
		after, err := ParseAge(r.ResolvedAfter)
		if err != nil {
			return Incident{}, fmt.Errorf("%w: resolved_after: %w", ErrInvalidRecord, err)
		}

		ts := detectedAt.Add(after)
		resolvedAt = &ts
	}

	if status == "resolved" && resolvedAt == nil {
		return Incident{}, fmt.Errorf("%w: resolved incident %q needs resolved_after", ErrInvalidRecord, title)
	}

	return Incident{
		ID:             idOrDerived(r.ID, "incident", title),
		Title:          title,
		Description:    strings.TrimSpace(r.Description),
		Severity:       severity,
		Status:         status,
		Category:       strings.ToLower(strings.TrimSpace(r.Category)),
		Assignee:       strings.TrimSpace(r.Assignee),
		Source:         strings.TrimSpace(r.Source),
		DetectedAt:     detectedAt,
		ResolvedAt:     resolvedAt,
		AffectedAssets: max(0, r.AffectedAssets),
	}, nil
}

func (r rawUser) toUser(now time.Time) (User, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}

	level, err := enum("risk_level", r.RiskLevel, severities)
	if err != nil {
		return User{}, err
	}

	if r.RiskScore < 0 || r.RiskScore > 100 {
		return User{}, fmt.Errorf("%w: risk_score %.1f outside 0-100", ErrInvalidRecord, r.RiskScore)
	}

	age, err := ParseAge(r.LastActivityAgo)
	if err != nil {
		return User{}, fmt.Errorf("%w: last_activity_ago: %w", ErrInvalidRecord, err)
	}

	indicators := r.Indicators
	if indicators == nil {
		indicators = []string{}
	}

	return User{
		ID:           idOrDerived(r.ID, "user", name),
		Name:         name,
		Email:        strings.TrimSpace(r.Email),
		Department:   strings.TrimSpace(r.Department),
		RiskScore:    r.RiskScore,
		RiskLevel:    level,
		Anomalies:    max(0, r.Anomalies),
		Indicators:   indicators,
		LastActivity: now.Add(-age),
	}, nil
}

func (r rawRisk) toRisk(now time.Time) (Risk, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return Risk{}, fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}

	severity, err := enum("severity", r.Severity, severities)
	if err != nil {
		return Risk{}, err
	}

	status, err := enum("status", r.Status, riskStatuses)
	if err != nil {
		return Risk{}, err
	}

	trend := "flat"
	if r.Trend != "" {
		if trend, err = enum("trend", r.Trend, trends); err != nil {
			return Risk{}, err
		}
	}

	if r.Likelihood < minScale || r.Likelihood > maxScale || r.Impact < minScale || r.Impact > maxScale {
		return Risk{}, fmt.Errorf("%w: likelihood and impact must be between %d and %d", ErrInvalidRecord, minScale, maxScale)
	}

	score := r.Score
	if score == 0 {
		score = float64(r.Likelihood * r.Impact)
	}

	age, err := ParseAge(r.ReviewedAgo)
	if err != nil {
		return Risk{}, fmt.Errorf("%w: reviewed_ago: %w", ErrInvalidRecord, err)
	}

	return Risk{
		ID:         idOrDerived(r.ID, "risk", title),
		Title:      title,
		Category:   strings.TrimSpace(r.Category),
		Severity:   severity,
		Status:     status,
		Owner:      strings.TrimSpace(r.Owner),
		Likelihood: r.Likelihood,
		Impact:     r.Impact,
		Score:      score,
		Trend:      trend,
		ReviewedAt: now.Add(-age),
	}, nil
}

// ParseAge parses a relative age. It accepts everything time.ParseDuration does plus day ("3d")
// and week ("2w") suffixes. An empty string is a zero age.
func ParseAge(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}

	unit := time.Duration(0)

	switch {
	case strings.HasSuffix(value, "d"):
		unit = hoursDay * time.Hour
	case strings.HasSuffix(value, "w"):
		unit = daysWeek * hoursDay * time.Hour
	}

	if unit != 0 {
		n, err := strconv.Atoi(strings.TrimSpace(value[:len(value)-1]))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAge, raw)
		}

		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAge, raw)
	}

	return d, nil
}

func enum(field, raw string, allowed map[string]struct{}) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := allowed[value]; !ok {
		return "", fmt.Errorf("%w: %s %q is not recognised", ErrInvalidRecord, field, raw)
	}

	return value, nil
}

// idOrDerived keeps an authored id or derives a stable one from the record kind and label.
func idOrDerived(id, kind, label string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}

	return uuid.NewSHA1(idNamespace, []byte(kind+":"+strings.ToLower(label))).String()
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}

	return out
}
