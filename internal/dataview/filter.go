package dataview

import (
	"strings"
	"time"
)

// BuildPredicate translates the active filter selections into a predicate over one record.
//
// Each active dimension contributes one check and the checks are ANDed together:
//   - equality dimensions registered in schema.Dimensions match case-insensitively
//   - DimSearch matches when any schema.Searchable field contains the query (case-insensitive)
//   - DimWindow matches when now - timestamp <= Windows[value]
//
// Dimensions the schema does not register, and window names missing from Windows, are
// inactive. An empty Filters yields the always-true predicate. The returned function has no
// side effects and may be called any number of times.
func BuildPredicate[T any](filters Filters, schema Schema[T], now time.Time) func(T) bool {
	checks := make([]func(T) bool, 0, len(filters))

	for dimension := range filters {
		value, ok := filters.Active(dimension)
		if !ok {
			continue
		}

		switch dimension {
		case DimSearch:
			if check := searchCheck(value, schema.Searchable); check != nil {
				checks = append(checks, check)
			}
		case DimWindow:
			if check := windowCheck(value, schema.Timestamp, now); check != nil {
				checks = append(checks, check)
			}
		default:
			accessor, registered := schema.Dimensions[dimension]
			if !registered || accessor == nil {
				continue
			}

			checks = append(checks, equalityCheck(value, accessor))
		}
	}

	if len(checks) == 0 {
		return func(T) bool { return true }
	}

	return func(record T) bool {
		for _, check := range checks {
			if !check(record) {
				return false
			}
		}

		return true
	}
}

func equalityCheck[T any](want string, accessor func(T) string) func(T) bool {
	return func(record T) bool {
		return strings.EqualFold(strings.TrimSpace(accessor(record)), want)
	}
}

// searchCheck returns nil when no searchable fields are registered.
func searchCheck[T any](query string, fields []func(T) string) func(T) bool {
	if len(fields) == 0 {
		return nil
	}

	needle := strings.ToLower(query)

	return func(record T) bool {
		for _, field := range fields {
			if field == nil {
				continue
			}

			if strings.Contains(strings.ToLower(field(record)), needle) {
				return true
			}
		}

		return false
	}
}

// windowCheck returns nil for unknown window names or schemas without a timestamp.
func windowCheck[T any](window string, timestamp func(T) time.Time, now time.Time) func(T) bool {
	cutoff, known := Windows[strings.ToLower(window)]
	if !known || timestamp == nil {
		return nil
	}

	return func(record T) bool {
		return now.Sub(timestamp(record)) <= cutoff
	}
}
