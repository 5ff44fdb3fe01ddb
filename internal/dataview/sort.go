package dataview

import (
	"cmp"

	"golang.org/x/text/collate"
)

// BuildComparator translates a sort state into an ordering function over two records.
//
// The comparator always returns exactly -1, 0 or 1. Desc negates the ascending result, so
// records that compare equal stay equal in both directions. An empty or unregistered column
// yields a comparator that returns 0 for every pair, which keeps input order under a stable
// sort.
//
// Text columns use a collator built for schema.Locale. Collators are not safe for concurrent
// use, so every call builds its own and the returned comparator must not be shared across
// goroutines.
func BuildComparator[T any](sort Sort, schema Schema[T]) func(a, b T) int {
	column, ok := schema.Columns[sort.Column]
	if !ok {
		return func(T, T) int { return 0 }
	}

	ascending := ascendingComparator(column, schema)
	if ascending == nil {
		return func(T, T) int { return 0 }
	}

	if sort.Direction == Desc {
		return func(a, b T) int {
			return -ascending(a, b)
		}
	}

	return ascending
}

// ascendingComparator returns nil when the column is missing the accessor its kind needs.
func ascendingComparator[T any](column Column[T], schema Schema[T]) func(a, b T) int {
	switch column.Kind {
	case KindNumber:
		if column.Number == nil {
			return nil
		}

		return func(a, b T) int {
			return cmp.Compare(column.Number(a), column.Number(b))
		}
	case KindText:
		if column.Text == nil {
			return nil
		}

		collator := collate.New(schema.Locale)

		return func(a, b T) int {
			return sign(collator.CompareString(column.Text(a), column.Text(b)))
		}
	case KindRank:
		if column.Text == nil {
			return nil
		}

		return func(a, b T) int {
			return cmp.Compare(column.rank(a), column.rank(b))
		}
	case KindTime:
		if column.Time == nil {
			return nil
		}

		return func(a, b T) int {
			return column.Time(a).Compare(column.Time(b))
		}
	default:
		return nil
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
