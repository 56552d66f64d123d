package dto

// Page is the envelope for every list endpoint.
type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage creates a paginated response
func NewPage[T any](data []T, total int64, page, pageSize int) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize != 0 {
			totalPages++
		}
	}
	return Page[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

// Pagination is bound from ?page=&page_size=.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps the values, falling back to defaultSize.
func (p Pagination) Normalize(defaultSize int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = defaultSize
	}
	return p
}
