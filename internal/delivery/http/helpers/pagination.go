package helpers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"campusfest/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads page and page_size from the query string.
// Missing, malformed or non-positive values fall back to the defaults; page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveInt(q.Get("page"), DefaultPage),
		PageSize: min(positiveInt(q.Get("page_size"), DefaultPageSize), MaxPageSize),
	}
}

func positiveInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// ParseRegistrationFilter reads the optional status query parameter. Unknown statuses are an error.
func ParseRegistrationFilter(r *http.Request) (domain.RegistrationFilter, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	if status != "" && !status.Valid() {
		return domain.RegistrationFilter{}, fmt.Errorf("invalid status filter %q", status)
	}
	return domain.RegistrationFilter{Status: status}, nil
}

// PaginationMeta accompanies every paginated list response.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPaginationMeta(page, pageSize, total int) PaginationMeta {
	meta := PaginationMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	return meta
}
