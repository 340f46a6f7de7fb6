package common

import (
	"net/http"
	"strconv"
)

const (
	maxPerPage = 100
	// maxPage keeps (page-1)*perPage inside an int32 SQL offset.
	maxPage = 100_000
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items,omitempty"`
}

// QueryInt reads a positive integer query parameter, returning def when it is
// missing, malformed or not positive.
func QueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// ParsePagination extracts page and limit query parameters. limit is capped at 100
// and page at 100000.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = min(QueryInt(r, "page", 1), maxPage)
	perPage = min(QueryInt(r, "limit", defaultPerPage), maxPerPage)
	return page, perPage
}

// Offset converts page and perPage into a SQL offset. Both are clamped to the
// ranges ParsePagination produces.
func Offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	return (min(page, maxPage) - 1) * min(perPage, maxPerPage)
}
