package domain

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the current page (0-based).
// Formula: (Page - 1) * PageSize.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Window returns the [start, end) slice bounds of the page within total rows.
func (p PaginationParams) Window(total int) (start, end int) {
	start = p.Offset()
	if start > total {
		start = total
	}
	end = total
	if p.PageSize > 0 && start+p.PageSize < total {
		end = start + p.PageSize
	}
	return start, end
}
