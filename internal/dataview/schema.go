// Package dataview provides the generic filter, sort and paginate engine shared by every
// dashboard table (incidents, high-risk users, top risks).
//
// The engine never inspects a record directly. Callers describe their record type once with a
// Schema (field accessors, rank tables and searchable fields) and the engine derives
// predicates, comparators and page slices from it.
package dataview

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ColumnKind identifies how a sortable column orders its values.
type ColumnKind int

const (
	// KindNumber orders by numeric value.
	KindNumber ColumnKind = iota + 1
	// KindText orders by locale-aware string collation.
	KindText
	// KindRank orders enumerated values by a caller-supplied rank table.
	KindRank
	// KindTime orders by instant.
	KindTime
)

// String returns the lowercase kind name, as shown in sort column help.
func (k ColumnKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindRank:
		return "rank"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

type (
	// Column describes one sortable field of a record type T.
	//
	// Only the accessor matching Kind is consulted:
	//   - KindNumber: Number
	//   - KindText: Text
	//   - KindRank: Text, looked up in Ranks (case-insensitive, unknown values rank 0)
	//   - KindTime: Time
	//
	// Use the NumberColumn, TextColumn, RankColumn and TimeColumn constructors rather than
	// filling the struct by hand.
	Column[T any] struct {
		Kind   ColumnKind
		Number func(T) float64
		Text   func(T) string
		Time   func(T) time.Time
		Ranks  map[string]int
	}

	// Schema is the accessor table a caller registers for record type T.
	//
	// Fields:
	//   - Dimensions: equality filter dimensions (e.g. "severity", "status") mapped to the
	//     field accessor they compare against
	//   - Searchable: fields scanned by the free-text search dimension
	//   - Timestamp: accessor used by the time-window dimension (nil disables the window)
	//   - Columns: sortable columns keyed by the column identifier clients send
	//   - Locale: collation locale for text columns (zero value collates with root rules)
	Schema[T any] struct {
		Dimensions map[string]func(T) string
		Searchable []func(T) string
		Timestamp  func(T) time.Time
		Columns    map[string]Column[T]
		Locale     language.Tag
	}
)

// NumberColumn returns a numeric sort column.
func NumberColumn[T any](fn func(T) float64) Column[T] {
	return Column[T]{Kind: KindNumber, Number: fn}
}

// TextColumn returns a string sort column ordered by locale-aware collation.
func TextColumn[T any](fn func(T) string) Column[T] {
	return Column[T]{Kind: KindText, Text: fn}
}

// RankColumn returns an enumerated sort column ordered by the given rank table.
// Keys are matched case-insensitively, so "Critical" and "critical" share a rank.
func RankColumn[T any](fn func(T) string, ranks map[string]int) Column[T] {
	normalized := make(map[string]int, len(ranks))
	for k, v := range ranks {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}

	return Column[T]{Kind: KindRank, Text: fn, Ranks: normalized}
}

// TimeColumn returns a sort column ordered by instant.
func TimeColumn[T any](fn func(T) time.Time) Column[T] {
	return Column[T]{Kind: KindTime, Time: fn}
}

// HasColumn reports whether a sort column with the given identifier is registered.
func (s Schema[T]) HasColumn(name string) bool {
	_, ok := s.Columns[name]

	return ok
}

// rank returns the rank of the value in the column's rank table, or 0 when unknown.
func (c Column[T]) rank(record T) int {
	return RankOf(c.Ranks, c.Text(record))
}

// RankOf returns the rank of value in ranks, matching case-insensitively and ignoring
// surrounding space. Keys of ranks must be lowercase; unknown values rank 0.
func RankOf(ranks map[string]int, value string) int {
	return ranks[strings.ToLower(strings.TrimSpace(value))]
}
