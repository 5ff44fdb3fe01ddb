// Package export serializes dashboard records to CSV and delivers the payload as a download
// or a file on disk.
//
// Serialization is a pure string-building step. Delivery (HTTP attachment, file save) is a
// separate side-effecting layer in download.go so the CSV content can be tested without a
// transport.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoColumns indicates an export was requested without any columns.
	ErrNoColumns = errors.New("export requires at least one column")

	// ErrColumnValue indicates a column accessor failed for a record.
	ErrColumnValue = errors.New("failed to read column value")
)

type (
	// ValueFunc extracts one CSV field from a record.
	ValueFunc[T any] func(T) (string, error)

	// Column is one CSV column: its header and the accessor that renders its field.
	Column[T any] struct {
		Header string
		Value  ValueFunc[T]
	}
)

// Text adapts an infallible string accessor to a ValueFunc.
func Text[T any](fn func(T) string) ValueFunc[T] {
	return func(record T) (string, error) {
		return fn(record), nil
	}
}

// Int adapts an integer accessor to a ValueFunc.
func Int[T any](fn func(T) int) ValueFunc[T] {
	return func(record T) (string, error) {
		return strconv.Itoa(fn(record)), nil
	}
}

// Float adapts a float accessor to a ValueFunc with the given number of decimals.
func Float[T any](fn func(T) float64, decimals int) ValueFunc[T] {
	return func(record T) (string, error) {
		return strconv.FormatFloat(fn(record), 'f', decimals, 64), nil
	}
}

// Timestamp adapts a time accessor to a ValueFunc rendering RFC 3339 in UTC.
// Zero times render as an empty field.
func Timestamp[T any](fn func(T) time.Time) ValueFunc[T] {
	return func(record T) (string, error) {
		ts := fn(record)
		if ts.IsZero() {
			return "", nil
		}

		return ts.UTC().Format(time.RFC3339), nil
	}
}

// Table renders records into string cells without any CSV encoding: the header row and one
// row of cells per record. It is the shared rendering step behind Serialize and the terminal
// table printer, and fails with ErrColumnValue exactly when Serialize would.
func Table[T any](records []T, columns []Column[T]) ([]string, [][]string, error) {
	if len(columns) == 0 {
		return nil, nil, ErrNoColumns
	}

	header := make([]string, 0, len(columns))
	for _, column := range columns {
		header = append(header, column.Header)
	}

	rows := make([][]string, 0, len(records))

	for i, record := range records {
		row := make([]string, len(columns))

		for j, column := range columns {
			if column.Value == nil {
				return nil, nil, fmt.Errorf("%w: column %q has no accessor", ErrColumnValue, column.Header)
			}

			value, err := column.Value(record)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: row %d column %q: %w", ErrColumnValue, i+1, column.Header, err)
			}

			row[j] = value
		}

		rows = append(rows, row)
	}

	return header, rows, nil
}

// Serialize renders records as CSV: a header row followed by one row per record.
//
// Fields are comma-separated and rows end with "\n". Any field containing a comma, a double
// quote or a line break is wrapped in double quotes with inner quotes doubled, so
// `He said "hi", then left` becomes `"He said ""hi"", then left"`.
//
// Serialization is all-or-nothing: if any accessor fails, Serialize returns an error wrapping
// ErrColumnValue and no partial payload.
func Serialize[T any](records []T, columns []Column[T]) (string, error) {
	header, rows, err := Table(records, columns)
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	if err := writer.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write csv rows: %w", err)
	}

	return buf.String(), nil
}
