package main

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/views"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	color.NoColor = true

	var out, errOut bytes.Buffer

	cmd := newRootCmd(func() time.Time { return testNow })
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestRootCommandStructure(t *testing.T) {
	cmd := newRootCmd(time.Now)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, expected := range []string{"incidents", "high-risk-users", "top-risks", "summary"} {
		assert.True(t, names[expected], "Missing command: %s", expected)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("dataset-dir"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestViewCommandFlagsFollowDimensions(t *testing.T) {
	cmd := newRootCmd(time.Now)

	tests := []struct {
		command string
		flags   []string
	}{
		{command: "incidents", flags: []string{"severity", "status", "category"}},
		{command: "high-risk-users", flags: []string{"department", "risk-level"}},
		{command: "top-risks", flags: []string{"severity", "status", "category"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			for _, flag := range append(tt.flags, "window", "q", "sort", "dir", "all", "out", "print") {
				assert.NotNil(t, sub.Flags().Lookup(flag), "missing --%s", flag)
			}
		})
	}
}

func TestExportIncidents_Filtered(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "incidents", "--severity", "critical", "--sort", "title", "--out", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 records")

	rows := readCSV(t, filepath.Join(dir, "incidents-2026-03-14.csv"))
	require.Len(t, rows, 6)
	assert.Equal(t, "ID", rows[0][0])

	for _, row := range rows[1:] {
		assert.Equal(t, "critical", row[2])
	}
}

func TestExportIncidents_AllIgnoresFilters(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "inc", "--severity", "critical", "--all", "-o", dir)

	require.NoError(t, err)
	assert.Len(t, readCSV(t, filepath.Join(dir, "incidents-2026-03-14.csv")), 26)
}

func TestExportUsers_Alias(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "users", "--department", "Finance", "--out", dir)

	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, "high-risk-users-2026-03-14.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, "Amelia Chen", rows[1][1])
}

func TestExportSummary(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "summary", "--out", dir)

	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, "analytics-summary-2026-03-14.csv"))
	assert.Equal(t, []string{"Section", "Metric", "Value", "Unit"}, rows[0])
}

func TestPrintPreview(t *testing.T) {
	out, err := execute(t, "top-risks", "--print", "--rows", "3")

	require.NoError(t, err)
	assert.Contains(t, out, "TOP RISKS")
	assert.Contains(t, out, "RSK-301")
	assert.Contains(t, out, "Page 1 of 4 (10 matching, showing 3)")
}

func TestPrintPreview_AllIgnoresFilters(t *testing.T) {
	filtered, err := execute(t, "incidents", "--print", "--severity", "critical")
	require.NoError(t, err)
	assert.Contains(t, filtered, "Page 1 of 1 (5 matching, showing 5)")

	all, err := execute(t, "incidents", "--print", "--all", "--severity", "critical")
	require.NoError(t, err)
	assert.Contains(t, all, "Page 1 of 2 (25 matching, showing 20)")
}

func TestPrintPreview_HugeRowCount(t *testing.T) {
	out, err := execute(t, "top-risks", "--print", "--rows", strconv.Itoa(math.MaxInt))

	require.NoError(t, err)
	assert.Contains(t, out, "Page 1 of 1 (10 matching, showing 10)")
}

func TestFlagHelpFollowsEngine(t *testing.T) {
	cmd := newRootCmd(time.Now)

	sub, _, err := cmd.Find([]string{"incidents"})
	require.NoError(t, err)

	assert.Equal(t, "Time window: all, 1h, 24h, 7d, 30d, 90d", sub.Flags().Lookup("window").Usage)
	assert.Contains(t, sub.Flags().Lookup("sort").Usage, "severity (rank)")
	assert.Contains(t, sub.Flags().Lookup("sort").Usage, "detected_at (time)")
	assert.Contains(t, sub.Flags().Lookup("sort").Usage, "assets (number)")
}

func TestPrintPreview_NoMatches(t *testing.T) {
	out, err := execute(t, "incidents", "--print", "-q", "no-such-incident-anywhere")

	require.NoError(t, err)
	assert.Contains(t, out, "No matching records")
	assert.Contains(t, out, "Page 1 of 1 (0 matching, showing 0)")
}

func TestInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown sort column", args: []string{"incidents", "--sort", "colour"}},
		{name: "bad direction", args: []string{"incidents", "--dir", "up"}},
		{name: "unknown window", args: []string{"incidents", "--window", "2d"}},
		{name: "non-positive preview rows", args: []string{"incidents", "--print", "--rows", "0"}},
		{name: "positional argument", args: []string{"incidents", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--out", t.TempDir())...)

			require.Error(t, err)
		})
	}
}

func TestBuildState(t *testing.T) {
	severity, status := "high", "all"
	opts := &viewOptions{
		filters: map[string]*string{"severity": &severity, "status": &status},
		window:  "7D",
		search:  " dana ",
	}

	state, err := buildState(opts, views.IncidentsView(), testNow)

	require.NoError(t, err)
	assert.Equal(t, dataview.Filters{"severity": "high", "status": "all", "window": "7d", "q": "dana"}, state.Filters)
	assert.Equal(t, dataview.Sort{Column: "detected_at", Direction: dataview.Desc}, state.Sort)
	assert.Equal(t, testNow, state.Now)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Zoë", truncate("Zoë", 3))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("é", 50), maxCellWidth), "..."))
}
