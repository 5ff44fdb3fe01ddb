package dataview

import (
	"fmt"
	"slices"
	"time"
)

// Query filters, sorts and paginates records.
//
// Algorithm:
//  1. Filter records with BuildPredicate (single pass)
//  2. Stable-sort the filtered copy with BuildComparator
//  3. TotalCount = len(filtered), TotalPages = max(1, ceil(TotalCount / Page.Size))
//  4. Clamp Page.Index into [1, TotalPages]
//  5. Slice [(index-1)*size, index*size)
//
// The input slice is never modified and Query holds no state, so identical arguments yield
// identical results. An empty input (or a filter that matches nothing) returns an empty page
// with TotalPages = 1. A non-positive page size is rejected with ErrInvalidPageSize.
//
// Example:
//
//	result, err := dataview.Query(incidents, view.Schema(), dataview.State{
//	    Filters: dataview.Filters{"severity": "critical"},
//	    Sort:    dataview.Sort{Column: "detected_at", Direction: dataview.Desc},
//	    Page:    dataview.Page{Index: 1, Size: 20},
//	    Now:     time.Now(),
//	})
func Query[T any](records []T, schema Schema[T], state State) (Result[T], error) {
	size := state.Page.Size
	if size <= 0 {
		return Result[T]{}, fmt.Errorf("%w: got %d", ErrInvalidPageSize, size)
	}

	filtered := Filtered(records, schema, state.Filters, state.Sort, state.Now)

	total := len(filtered)
	totalPages := TotalPages(total, size)
	index := ClampPage(state.Page.Index, totalPages)

	start := (index - 1) * size
	end := start + min(size, total-start)

	items := make([]T, 0, end-start)
	items = append(items, filtered[start:end]...)

	return Result[T]{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		PageIndex:  index,
		PageSize:   size,
	}, nil
}

// Filtered returns the records matching filters, ordered by sort, without pagination.
// It backs "export the filtered view" and shares Query's predicate and comparator. The
// returned slice is freshly allocated; records is never modified.
func Filtered[T any](records []T, schema Schema[T], filters Filters, sort Sort, now time.Time) []T {
	if now.IsZero() {
		now = time.Now()
	}

	predicate := BuildPredicate(filters, schema, now)

	filtered := make([]T, 0, len(records))

	for _, record := range records {
		if predicate(record) {
			filtered = append(filtered, record)
		}
	}

	if sort.Column != "" {
		slices.SortStableFunc(filtered, BuildComparator(sort, schema))
	}

	return filtered
}

// TotalPages returns max(1, ceil(total / size)). size must be positive.
func TotalPages(total, size int) int {
	if total <= 0 {
		return 1
	}

	return 1 + (total-1)/size
}

// ClampPage clamps a 1-based page index into [1, max(1, totalPages)].
func ClampPage(index, totalPages int) int {
	return max(1, min(index, max(1, totalPages)))
}
