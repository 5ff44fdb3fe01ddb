package dataview

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Direction is the sort direction of a Sort.
type Direction string

const (
	// Asc sorts smallest first.
	Asc Direction = "asc"
	// Desc sorts largest first.
	Desc Direction = "desc"
)

// Well-known filter dimensions and the "no filter" sentinel.
const (
	// SentinelAll is the selection value meaning "dimension does not constrain the result".
	SentinelAll = "all"
	// DimSearch is the free-text search dimension.
	DimSearch = "q"
	// DimWindow is the time-window dimension (values from Windows).
	DimWindow = "window"
)

var (
	// ErrInvalidPageSize indicates a non-positive page size. It is a caller contract
	// violation and is never silently replaced by a default.
	ErrInvalidPageSize = errors.New("page size must be positive")

	// ErrUnknownSortColumn indicates a sort column that the schema did not register.
	ErrUnknownSortColumn = errors.New("unknown sort column")

	// ErrInvalidDirection indicates a sort direction other than "asc" or "desc".
	ErrInvalidDirection = errors.New("sort direction must be asc or desc")
)

// Windows maps the named time windows to their cutoffs.
// A record matches a window when now - timestamp <= cutoff.
//
//nolint:gochecknoglobals // fixed lookup table
var Windows = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// WindowNames returns the keys of Windows, shortest cutoff first.
func WindowNames() []string {
	return slices.SortedFunc(maps.Keys(Windows), func(a, b string) int {
		return cmp.Compare(Windows[a], Windows[b])
	})
}

type (
	// Filters maps a filter dimension name to its selected value.
	// An absent key, an empty value or SentinelAll leaves the dimension inactive.
	Filters map[string]string

	// Sort selects the column and direction used to order results.
	// An empty Column means "keep input order".
	Sort struct {
		Column    string
		Direction Direction
	}

	// Page selects a 1-based page of Size records.
	Page struct {
		Index int
		Size  int
	}

	// State is the complete query state a view holds between interactions.
	//
	// Now is the reference instant for time-window filters. A zero Now falls back to
	// time.Now(), which makes window-filtered queries depend on the wall clock; callers that
	// need repeatable results should always set it.
	State struct {
		Filters Filters
		Sort    Sort
		Page    Page
		Now     time.Time
	}

	// Result is one page of a query.
	//
	// Fields:
	//   - Items: the records on the served page, in sorted order (never nil)
	//   - TotalCount: number of records matching the filters before pagination
	//   - TotalPages: max(1, ceil(TotalCount / PageSize))
	//   - PageIndex: the 1-based page actually served after clamping
	//   - PageSize: the page size used
	Result[T any] struct {
		Items      []T
		TotalCount int
		TotalPages int
		PageIndex  int
		PageSize   int
	}
)

// Active returns the trimmed value of a dimension and whether it constrains results.
func (f Filters) Active(dimension string) (string, bool) {
	if f == nil {
		return "", false
	}

	value := strings.TrimSpace(f[dimension])
	if value == "" || strings.EqualFold(value, SentinelAll) {
		return "", false
	}

	return value, true
}

// With returns a copy of the filters with one dimension set. The receiver is not modified.
func (f Filters) With(dimension, value string) Filters {
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}

	out[dimension] = value

	return out
}

// ParseDirection parses a direction string. An empty string means ascending.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidDirection, raw)
	}
}

// ValidateSort rejects sort states that name an unregistered column or an invalid direction.
// BuildComparator itself treats unknown columns as a no-op; callers that prefer to fail loudly
// call ValidateSort first.
func ValidateSort[T any](sort Sort, schema Schema[T]) error {
	if sort.Direction != "" && sort.Direction != Asc && sort.Direction != Desc {
		return fmt.Errorf("%w: got %q", ErrInvalidDirection, sort.Direction)
	}

	if sort.Column != "" && !schema.HasColumn(sort.Column) {
		return fmt.Errorf("%w: %q", ErrUnknownSortColumn, sort.Column)
	}

	return nil
}
