package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// PageMeta is the wire shape of Pagination.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

const (
	// MaxPerPage caps page sizes requested by clients.
	MaxPerPage = 100
	// MaxPage caps page numbers so offsets stay far from overflow.
	MaxPage = 1_000_000
)

// NormalizePage clamps page/perPage into usable values.
func NormalizePage(page, perPage, defaultPerPage int) (int, int) {
	if defaultPerPage <= 0 {
		defaultPerPage = 20
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return clampPage(page), perPage
}

func clampPage(page int) int {
	switch {
	case page <= 0:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	page = clampPage(page)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the number of rows preceding the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Meta renders the pagination for JSON responses. last_page never drops below 1.
func (p Pagination) Meta() PageMeta {
	last := p.TotalPages
	if last < 1 {
		last = 1
	}
	return PageMeta{CurrentPage: p.Page, LastPage: last, PerPage: p.PerPage, Total: p.Total}
}
