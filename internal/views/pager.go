package views

import "github.com/correlator-io/secdash/internal/dataview"

// DefaultPagerWindow is the number of page links shown when no window is configured.
const DefaultPagerWindow = 5

// Pager is the pagination footer for one result page.
//
// Fields:
//   - Page: The 1-based page actually served (already clamped by the engine)
//   - TotalPages: Always at least 1
//   - HasPrev: False on the first page
//   - HasNext: False on the last page
//   - Pages: Up to window consecutive page numbers around Page, ascending
type Pager struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"` //nolint:tagliatelle
	HasPrev    bool  `json:"has_prev"`    //nolint:tagliatelle
	HasNext    bool  `json:"has_next"`    //nolint:tagliatelle
	Pages      []int `json:"pages"`
}

// NewPager builds the footer for result. The window of page numbers is centred on the current
// page and shifted to stay inside 1..TotalPages, so it always holds min(window, TotalPages)
// entries.
//
// Example:
//
//	NewPager(result /* page 9 of 10 */, 5).Pages // → [6 7 8 9 10]
func NewPager[T any](result dataview.Result[T], window int) Pager {
	if window <= 0 {
		window = DefaultPagerWindow
	}

	total := max(1, result.TotalPages)
	page := dataview.ClampPage(result.PageIndex, total)
	size := min(window, total)

	start := page - window/2
	start = max(1, min(start, total-size+1))

	pages := make([]int, 0, size)
	for p := start; p < start+size; p++ {
		pages = append(pages, p)
	}

	return Pager{
		Page:       page,
		TotalPages: total,
		HasPrev:    page > 1,
		HasNext:    page < total,
		Pages:      pages,
	}
}
