package models

// Pagination describes list metadata returned alongside collections.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the derived page count.
func NewPagination(page, size, total int) *Pagination {
	if size <= 0 {
		size = 20
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return &Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages}
}
