package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/correlator-io/secdash/internal/dataview"
)

const (
	maxCellWidth = 40
	columnGap    = "  "
)

// CLI output formatters
//
//nolint:gochecknoglobals // shared colour palette
var (
	successColor = color.New(color.FgGreen, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)

	// levelColors highlights severity and risk-level cells.
	levelColors = map[string]*color.Color{
		"critical": color.New(color.FgRed, color.Bold),
		"high":     color.New(color.FgRed),
		"medium":   color.New(color.FgYellow),
		"low":      color.New(color.FgGreen),
	}
)

// renderTable prints rows under header as aligned columns. Cells longer than maxCellWidth are
// truncated; padding is computed before colouring so escape codes never skew alignment.
func renderTable(w io.Writer, title string, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(row))

		for i, cell := range row {
			cell = truncate(strings.ReplaceAll(cell, "\n", " "), maxCellWidth)
			cells[r][i] = cell

			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	total := 0
	for _, width := range widths {
		total += width + len(columnGap)
	}

	headerColor.Fprintln(w, strings.ToUpper(title))
	headerColor.Fprintln(w, strings.Repeat("=", total))

	for i, h := range header {
		headerColor.Fprint(w, pad(h, widths[i])+columnGap)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", total))

	if len(cells) == 0 {
		mutedColor.Fprintln(w, "No matching records")
	}

	for _, row := range cells {
		for i, cell := range row {
			padded := pad(cell, widths[min(i, len(widths)-1)]) + columnGap

			if c, ok := levelColors[strings.ToLower(cell)]; ok {
				c.Fprint(w, padded)

				continue
			}

			fmt.Fprint(w, padded)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", total))
}

// renderFooter prints the pagination line under a preview table.
func renderFooter[T any](w io.Writer, result dataview.Result[T]) {
	mutedColor.Fprintf(w, "Page %d of %d (%d matching, showing %d)\n",
		result.PageIndex, result.TotalPages, result.TotalCount, len(result.Items))
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}

	return s
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit-3]) + "..."
}
