// Package views binds the generic data-view engine to each dashboard page.
//
// A View owns everything page-specific: the schema that tells the engine how to read a record,
// the rank tables, the default ordering, the CSV columns and the JSON row shape. Filtering,
// sorting and pagination themselves always go through package dataview.
package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
)

// Scope selects which records an export covers.
type Scope string

const (
	// ScopeFiltered exports every record matching the current filters, in the current order.
	ScopeFiltered Scope = "filtered"
	// ScopeAll exports the whole dataset regardless of filters.
	ScopeAll Scope = "all"
)

// ErrInvalidScope indicates an export scope other than "filtered" or "all".
var ErrInvalidScope = errors.New("export scope must be filtered or all")

// Rank tables for enumerated columns. Higher ranks are more severe or more urgent.
//
//nolint:gochecknoglobals // lookup tables
var (
	SeverityRanks = map[string]int{"critical": 4, "high": 3, "medium": 2, "low": 1}

	IncidentStatusRanks = map[string]int{"open": 4, "investigating": 3, "contained": 2, "resolved": 1}

	RiskStatusRanks = map[string]int{"open": 3, "mitigating": 2, "accepted": 1}
)

type (
	// View is the adapter between one dashboard page and the engine.
	//
	// Fields:
	//   - name: Dataset label, used in routes and export filenames (e.g., "incidents")
	//   - title: Human-readable page title
	//   - schema: How the engine reads filter dimensions, search fields and sort columns
	//   - defaultSort: Ordering applied when the request names no sort column
	//   - columns: CSV export columns, in output order
	//   - row: Maps a record to its JSON response shape
	View[T any] struct {
		name        string
		title       string
		schema      dataview.Schema[T]
		defaultSort dataview.Sort
		columns     []export.Column[T]
		row         func(T) any
	}
)

// Name returns the dataset label.
func (v *View[T]) Name() string { return v.name }

// Title returns the page title.
func (v *View[T]) Title() string { return v.title }

// Schema returns the engine schema for this page.
func (v *View[T]) Schema() dataview.Schema[T] { return v.schema }

// DefaultSort returns the ordering used when a request does not name one.
func (v *View[T]) DefaultSort() dataview.Sort { return v.defaultSort }

// Columns returns the CSV export columns.
func (v *View[T]) Columns() []export.Column[T] { return v.columns }

// ResolveSort fills in the default ordering. A request that names a column but no direction
// sorts ascending.
func (v *View[T]) ResolveSort(sort dataview.Sort) dataview.Sort {
	if sort.Column == "" {
		return v.defaultSort
	}

	if sort.Direction == "" {
		sort.Direction = dataview.Asc
	}

	return sort
}

// Query runs one page of the engine over records with the default sort applied.
func (v *View[T]) Query(records []T, state dataview.State) (dataview.Result[T], error) {
	state.Sort = v.ResolveSort(state.Sort)

	return dataview.Query(records, v.schema, state)
}

// Rows maps records to their JSON response shape. The result is never nil.
func (v *View[T]) Rows(items []T) []any {
	rows := make([]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, v.row(item))
	}

	return rows
}

// Select returns the records an export covers. ScopeFiltered applies the filters; ScopeAll
// ignores them. Both use the resolved ordering so an export matches what the page shows.
func (v *View[T]) Select(records []T, state dataview.State, scope Scope) ([]T, error) {
	state, err := ApplyScope(state, scope)
	if err != nil {
		return nil, err
	}

	return dataview.Filtered(records, v.schema, state.Filters, v.ResolveSort(state.Sort), state.Now), nil
}

// ApplyScope returns state narrowed to what scope covers: ScopeAll drops every filter,
// ScopeFiltered (or an empty scope) keeps them. Sort and paging are untouched.
func ApplyScope(state dataview.State, scope Scope) (dataview.State, error) {
	switch scope {
	case ScopeFiltered, "":
		return state, nil
	case ScopeAll:
		state.Filters = nil

		return state, nil
	default:
		return dataview.State{}, fmt.Errorf("%w: got %q", ErrInvalidScope, scope)
	}
}

// Export serializes the records selected by scope to CSV.
func (v *View[T]) Export(records []T, state dataview.State, scope Scope) (string, error) {
	selected, err := v.Select(records, state, scope)
	if err != nil {
		return "", err
	}

	return export.Serialize(selected, v.columns)
}

// ParseScope parses an export scope; an empty value means ScopeFiltered.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeFiltered:
		return ScopeFiltered, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidScope, raw)
	}
}
