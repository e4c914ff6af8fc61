package store

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
	// MaxPage keeps the computed offset far inside int range.
	MaxPage = 100_000
)

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	HasNextPage bool  `json:"hasNextPage"`
}

// NewPagination reports a next page iff the items before and on this page
// do not yet cover total.
func NewPagination(page, limit, returned int, total int64) Pagination {
	seen := int64((page-1)*limit + returned)
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		HasNextPage: seen < total,
	}
}

func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func offset(page, limit int) int {
	return (page - 1) * limit
}
