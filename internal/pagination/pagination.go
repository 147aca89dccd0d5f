// Package pagination pages list endpoints, either in SQL through a GORM scope
// or in memory over a ledger sequence.
package pagination

import (
	"iter"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest holds pagination parameters parsed from query strings.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Defaults fills in page 1 and the default size, and caps oversized pages for
// callers that skip query binding.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = defaultPageSize
	case p.PageSize > maxPageSize:
		p.PageSize = maxPageSize
	}
}

// Offset is the number of items before the current page.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageResponse is one page of T with its position in the full result.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse builds a page. A nil data slice is encoded as [].
func NewPageResponse[T any](data []T, page, pageSize int, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	var totalPages int
	if pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Paginate is a GORM scope applying the request's OFFSET and LIMIT.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}

// Collect drains seq and keeps the requested page of it. The sequence is
// consumed to the end so TotalItems is exact.
func Collect[T any](seq iter.Seq2[T, error], req PageRequest) (*PageResponse[T], error) {
	req.Defaults()
	first := int64(req.Offset())

	var data []T
	var total int64
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		if total >= first && len(data) < req.PageSize {
			data = append(data, item)
		}
		total++
	}

	resp := NewPageResponse(data, req.Page, req.PageSize, total)
	return &resp, nil
}
