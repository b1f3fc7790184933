// Package pager holds the 1-based page math shared by every list view.
package pager

// DefaultPageSize matches the card grid: 4 per row, 2 rows.
const DefaultPageSize = 8

type Page struct {
	Current    int
	Size       int
	TotalCount int
	TotalPages int
}

// New clamps current into [1, totalPages] and derives the page count as
// ceil(totalCount/size). An empty result set still reports one page so the
// controls have something to anchor to.
func New(current, size, totalCount int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	if totalCount < 0 {
		totalCount = 0
	}
	totalPages := (totalCount + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}
	return Page{Current: current, Size: size, TotalCount: totalCount, TotalPages: totalPages}
}

// HasPrev reports whether the Previous control is enabled.
func (p Page) HasPrev() bool { return p.Current > 1 }

// HasNext reports whether the Next control is enabled.
func (p Page) HasNext() bool { return p.Current < p.TotalPages }

func (p Page) Prev() int {
	if !p.HasPrev() {
		return p.Current
	}
	return p.Current - 1
}

func (p Page) Next() int {
	if !p.HasNext() {
		return p.Current
	}
	return p.Current + 1
}
