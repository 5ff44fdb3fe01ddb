package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestLoad_EmbeddedDatasets(t *testing.T) {
	catalog, err := Load(testNow)

	require.NoError(t, err)
	assert.NotEmpty(t, catalog.Incidents)
	assert.NotEmpty(t, catalog.Users)
	assert.NotEmpty(t, catalog.Risks)
	assert.Equal(t, testNow, catalog.LoadedAt)

	for _, incident := range catalog.Incidents {
		assert.NotEmpty(t, incident.ID)
		assert.False(t, incident.DetectedAt.After(testNow), "incident %s detected in the future", incident.ID)

		if incident.Status == "resolved" {
			require.NotNil(t, incident.ResolvedAt, "resolved incident %s has no resolution time", incident.ID)
			assert.False(t, incident.ResolvedAt.Before(incident.DetectedAt))
		}
	}

	for _, risk := range catalog.Risks {
		assert.Positive(t, risk.Score, "risk %s", risk.ID)
		assert.Contains(t, []string{"up", "down", "flat"}, risk.Trend)
	}
}

func TestLoad_RelativeAgesResolveAgainstNow(t *testing.T) {
	catalog, err := Load(testNow)
	require.NoError(t, err)

	first := catalog.Incidents[0]
	assert.Equal(t, "INC-2041", first.ID)
	assert.Equal(t, testNow.Add(-35*time.Minute), first.DetectedAt)
}

func TestLoad_RiskScoreDefaultsToLikelihoodTimesImpact(t *testing.T) {
	catalog, err := Load(testNow)
	require.NoError(t, err)

	for _, risk := range catalog.Risks {
		if risk.ID == "RSK-301" {
			assert.InDelta(t, 20.0, risk.Score, 0.0001)
		}

		if risk.ID == "RSK-310" {
			assert.InDelta(t, 6.5, risk.Score, 0.0001, "explicit score must be kept")
		}
	}
}

func TestLoadDir_OverrideWithEmbeddedFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, risksFile, `
records:
  - title: Custom risk
    category: Cloud
    severity: HIGH
    status: open
    owner: Platform
    likelihood: 2
    impact: 3
    reviewed_ago: 1w
`)

	catalog, err := LoadDir(dir, testNow)

	require.NoError(t, err)
	require.Len(t, catalog.Risks, 1)

	risk := catalog.Risks[0]
	assert.Equal(t, "high", risk.Severity)
	assert.Equal(t, "flat", risk.Trend)
	assert.InDelta(t, 6.0, risk.Score, 0.0001)
	assert.Equal(t, testNow.Add(-7*24*time.Hour), risk.ReviewedAt)
	assert.Len(t, risk.ID, 36, "missing ids are derived as UUIDs")

	embedded, err := Load(testNow)
	require.NoError(t, err)
	assert.Len(t, catalog.Incidents, len(embedded.Incidents), "incidents fall back to the embedded copy")
}

func TestLoadDir_DerivedIDsAreStable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, usersFile, `
records:
  - name: Sam Doe
    department: Legal
    risk_score: 40
    risk_level: low
    last_activity_ago: 2h
`)

	first, err := LoadDir(dir, testNow)
	require.NoError(t, err)

	second, err := LoadDir(dir, testNow.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.Users[0].ID, second.Users[0].ID)
	assert.NotNil(t, first.Users[0].Indicators)
}

func TestLoadDir_InvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "unknown severity",
			file: incidentsFile,
			content: `
records:
  - title: Bad
    severity: catastrophic
    status: open
    detected_ago: 1h
`,
		},
		{
			name: "resolved without resolution time",
			file: incidentsFile,
			content: `
records:
  - title: Bad
    severity: low
    status: resolved
    detected_ago: 1h
`,
		},
		{
			name: "risk score out of range",
			file: usersFile,
			content: `
records:
  - name: Bad
    risk_score: 140
    risk_level: high
`,
		},
		{
			name: "likelihood out of range",
			file: risksFile,
			content: `
records:
  - title: Bad
    severity: low
    status: open
    likelihood: 9
    impact: 1
`,
		},
		{
			name: "missing title",
			file: risksFile,
			content: `
records:
  - severity: low
    status: open
    likelihood: 1
    impact: 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)

			_, err := LoadDir(dir, testNow)

			require.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestLoadDir_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, incidentsFile, "records: [unterminated")

	_, err := LoadDir(dir, testNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse incidents.yaml")
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, risksFile, `
records:
  - title: Only risk
    severity: low
    status: accepted
    likelihood: 1
    impact: 1
`)
	t.Setenv(DatasetDirEnvVar, dir)

	catalog, err := LoadFromEnv(testNow)

	require.NoError(t, err)
	require.Len(t, catalog.Risks, 1)
	assert.Equal(t, "Only risk", catalog.Risks[0].Title)
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "35m", want: 35 * time.Minute},
		{raw: "1h30m", want: 90 * time.Minute},
		{raw: "3d", want: 72 * time.Hour},
		{raw: "2w", want: 14 * 24 * time.Hour},
		{raw: " 5h ", want: 5 * time.Hour},
		{raw: "xd", wantErr: true},
		{raw: "-1d", wantErr: true},
		{raw: "-5m", wantErr: true},
		{raw: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAge(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAge)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
