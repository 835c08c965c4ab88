// Package repository provides the data access layer for the portfolio tracker.
package repository

// Page size bounds for the listing endpoints.
const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Pagination is the LIMIT/OFFSET window of one page.
type Pagination struct {
	Limit  int
	Offset int
}

// PageToPagination clamps API page parameters into a query window.
// Pages start at 1.
func PageToPagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return Pagination{Limit: perPage, Offset: (page - 1) * perPage}
}

// PaginatedResult is one page of a listing.
type PaginatedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NewPaginatedResult wraps the rows of page p. Items is never nil.
func NewPaginatedResult[T any](items []T, total int64, p Pagination) PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	perPage := max(p.Limit, 1)
	return PaginatedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Offset/perPage + 1,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
		HasMore:    int64(p.Offset+len(items)) < total,
	}
}
