package views

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/dataview"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func loadCatalog(t *testing.T) *dataset.Catalog {
	t.Helper()

	catalog, err := dataset.Load(testNow)
	require.NoError(t, err)

	return catalog
}

func TestIncidentsView_DefaultSortIsNewestFirst(t *testing.T) {
	catalog := loadCatalog(t)
	view := IncidentsView()

	result, err := view.Query(catalog.Incidents, dataview.State{Page: dataview.Page{Index: 1, Size: 100}, Now: testNow})

	require.NoError(t, err)
	require.Len(t, result.Items, len(catalog.Incidents))

	for i := 1; i < len(result.Items); i++ {
		assert.False(t, result.Items[i].DetectedAt.After(result.Items[i-1].DetectedAt))
	}
}

func TestIncidentsView_FilterSortPaginate(t *testing.T) {
	catalog := loadCatalog(t)
	view := IncidentsView()

	state := dataview.State{
		Filters: dataview.Filters{"severity": "Critical", "status": "all"},
		Sort:    dataview.Sort{Column: "title"},
		Page:    dataview.Page{Index: 1, Size: 2},
		Now:     testNow,
	}

	result, err := view.Query(catalog.Incidents, state)

	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Items, 2)

	for _, item := range result.Items {
		assert.Equal(t, "critical", item.Severity)
	}

	assert.Equal(t, "Credential phishing campaign targeting Finance", result.Items[0].Title)
}

func TestIncidentsView_WindowAndSearch(t *testing.T) {
	catalog := loadCatalog(t)
	view := IncidentsView()

	state := dataview.State{
		Filters: dataview.Filters{"window": "24h", "q": "DANA"},
		Page:    dataview.Page{Index: 1, Size: 20},
		Now:     testNow,
	}

	result, err := view.Query(catalog.Incidents, state)

	require.NoError(t, err)

	ids := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		ids = append(ids, item.ID)
	}

	assert.Equal(t, []string{"INC-2041", "INC-2038"}, ids)
}

func TestIncidentsView_StatusSortsByBusinessOrder(t *testing.T) {
	catalog := loadCatalog(t)
	view := IncidentsView()

	result, err := view.Query(catalog.Incidents, dataview.State{
		Sort: dataview.Sort{Column: "status", Direction: dataview.Desc},
		Page: dataview.Page{Index: 1, Size: 100},
		Now:  testNow,
	})
	require.NoError(t, err)

	for i := 1; i < len(result.Items); i++ {
		assert.GreaterOrEqual(t,
			dataview.RankOf(IncidentStatusRanks, result.Items[i-1].Status),
			dataview.RankOf(IncidentStatusRanks, result.Items[i].Status),
		)
	}

	assert.Equal(t, "open", result.Items[0].Status)
	assert.Equal(t, "resolved", result.Items[len(result.Items)-1].Status)
}

func TestIncidentsView_RowsCarryDerivedFields(t *testing.T) {
	catalog := loadCatalog(t)
	view := IncidentsView()

	rows := view.Rows(catalog.Incidents)
	require.Len(t, rows, len(catalog.Incidents))

	payload, err := json.Marshal(rows[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "INC-2041", decoded["id"])
	assert.InDelta(t, 4.0, decoded["severity_rank"], 0.0001)
	assert.NotContains(t, decoded, "resolution_hours", "open incidents have no resolution time")

	resolved := view.Rows([]dataset.Incident{catalog.Incidents[3]})[0].(IncidentRow) //nolint:forcetypeassert
	require.NotNil(t, resolved.ResolutionHours)
	assert.InDelta(t, 2.0, *resolved.ResolutionHours, 0.0001)

	assert.NotNil(t, view.Rows(nil))
}

func TestHighRiskUsersView_DefaultSortAndDepartmentFilter(t *testing.T) {
	catalog := loadCatalog(t)
	view := HighRiskUsersView()

	result, err := view.Query(catalog.Users, dataview.State{
		Filters: dataview.Filters{"department": "finance"},
		Page:    dataview.Page{Index: 1, Size: 10},
		Now:     testNow,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Amelia Chen", result.Items[0].Name)
	assert.Equal(t, "Hannah Müller", result.Items[1].Name)
}

func TestHighRiskUsersView_NameSortIsLocaleAware(t *testing.T) {
	catalog := loadCatalog(t)
	view := HighRiskUsersView()

	result, err := view.Query(catalog.Users, dataview.State{
		Sort: dataview.Sort{Column: "name", Direction: dataview.Asc},
		Page: dataview.Page{Index: 1, Size: 100},
		Now:  testNow,
	})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Items))
	for _, u := range result.Items {
		names = append(names, u.Name)
	}

	assert.Less(t, indexOf(names, "Zoë Laurent"), len(names))
	assert.Greater(t, indexOf(names, "Zoë Laurent"), indexOf(names, "Sofia Rossi"))
	assert.Equal(t, "Amelia Chen", names[0])
}

func TestTopRisksView_DefaultSortByScore(t *testing.T) {
	catalog := loadCatalog(t)
	view := TopRisksView()

	result, err := view.Query(catalog.Risks, dataview.State{Page: dataview.Page{Index: 1, Size: 3}, Now: testNow})

	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.InDelta(t, 20.0, result.Items[0].Score, 0.0001)
	assert.Equal(t, "RSK-301", result.Items[0].ID, "ties keep dataset order")
	assert.Equal(t, "RSK-302", result.Items[1].ID)
}

func TestView_ExportScopes(t *testing.T) {
	catalog := loadCatalog(t)
	view := TopRisksView()

	state := dataview.State{Filters: dataview.Filters{"status": "accepted"}, Now: testNow}

	filtered, err := view.Export(catalog.Risks, state, ScopeFiltered)
	require.NoError(t, err)

	all, err := view.Export(catalog.Risks, state, ScopeAll)
	require.NoError(t, err)

	filteredRows := parseCSV(t, filtered)
	allRows := parseCSV(t, all)

	assert.Len(t, filteredRows, 1+2)
	assert.Len(t, allRows, 1+len(catalog.Risks))
	assert.Equal(t, filteredRows[0], allRows[0])
	assert.Equal(t, "ID", filteredRows[0][0])

	_, err = view.Export(catalog.Risks, state, Scope("everything"))
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestApplyScope(t *testing.T) {
	state := dataview.State{
		Filters: dataview.Filters{"severity": "critical"},
		Sort:    dataview.Sort{Column: "title", Direction: dataview.Desc},
		Page:    dataview.Page{Index: 2, Size: 10},
		Now:     testNow,
	}

	filtered, err := ApplyScope(state, ScopeFiltered)
	require.NoError(t, err)
	assert.Equal(t, state, filtered)

	all, err := ApplyScope(state, ScopeAll)
	require.NoError(t, err)
	assert.Nil(t, all.Filters)
	assert.Equal(t, state.Sort, all.Sort)
	assert.Equal(t, state.Page, all.Page)

	_, err = ApplyScope(state, Scope("everything"))
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestView_ExportQuotesUserIndicators(t *testing.T) {
	catalog := loadCatalog(t)
	view := HighRiskUsersView()

	payload, err := view.Export(catalog.Users, dataview.State{
		Filters: dataview.Filters{"q": "jordan"},
		Now:     testNow,
	}, ScopeFiltered)
	require.NoError(t, err)

	rows := parseCSV(t, payload)
	require.Len(t, rows, 2)
	assert.Equal(t, "92.0", rows[1][4])
	assert.Equal(t, "mass repository clone; resignation submitted; off-hours access", rows[1][7])
}

func TestView_ResolveSort(t *testing.T) {
	view := IncidentsView()

	assert.Equal(t, view.DefaultSort(), view.ResolveSort(dataview.Sort{}))
	assert.Equal(t,
		dataview.Sort{Column: "title", Direction: dataview.Asc},
		view.ResolveSort(dataview.Sort{Column: "title"}),
	)
}

func TestViews_SortColumnsAreRegistered(t *testing.T) {
	incidents := IncidentsView()
	for _, column := range []string{"severity", "status", "title", "detected_at", "assets"} {
		assert.True(t, incidents.Schema().HasColumn(column), column)
	}

	users := HighRiskUsersView()
	for _, column := range []string{"risk_score", "name", "department", "anomalies", "risk_level", "last_activity"} {
		assert.True(t, users.Schema().HasColumn(column), column)
	}

	risks := TopRisksView()
	for _, column := range []string{"score", "likelihood", "impact", "severity", "title"} {
		assert.True(t, risks.Schema().HasColumn(column), column)
	}
}

func TestParseScope(t *testing.T) {
	for raw, want := range map[string]Scope{"": ScopeFiltered, "filtered": ScopeFiltered, "ALL": ScopeAll} {
		got, err := ParseScope(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseScope("some")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func parseCSV(t *testing.T, payload string) [][]string {
	t.Helper()

	rows, err := csv.NewReader(strings.NewReader(payload)).ReadAll()
	require.NoError(t, err)

	return rows
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}

	return len(values)
}
