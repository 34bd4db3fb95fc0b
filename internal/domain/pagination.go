package domain

import (
	"fmt"
	"strconv"
)

// Sort fields accepted by set listings.
const (
	SortByTitle     = "title"
	SortByCreatedAt = "createdAt"
)

// Listing defaults and limits.
const (
	DefaultPageLimit = 8
	MaxPageLimit     = 100
)

// ListOptions controls ordering and paging of set listings.
type ListOptions struct {
	SortBy  string
	OrderBy int // 1 ascending, -1 descending
	Limit   int
	Page    int
	Query   string
}

// DefaultListOptions returns the defaults used when no query parameters are given.
func DefaultListOptions() ListOptions {
	return ListOptions{SortBy: SortByTitle, OrderBy: 1, Limit: DefaultPageLimit, Page: 1}
}

// Validate checks the options are in range.
func (o ListOptions) Validate() error {
	if o.SortBy != SortByTitle && o.SortBy != SortByCreatedAt {
		return NewValidationError("sortBy", "must be title or createdAt", nil)
	}
	if o.OrderBy != 1 && o.OrderBy != -1 {
		return NewValidationError("orderBy", "must be 1 or -1", nil)
	}
	if o.Limit < 1 || o.Limit > MaxPageLimit {
		return NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxPageLimit), nil)
	}
	if o.Page < 1 {
		return NewValidationError("page", "must be at least 1", nil)
	}
	return nil
}

// Offset returns the number of rows skipped before the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// CacheVariant encodes the options that change a listing's result.
func (o ListOptions) CacheVariant() string {
	return o.SortBy + ":" + strconv.Itoa(o.OrderBy) + ":" + strconv.Itoa(o.Limit) + ":" + strconv.Itoa(o.Page)
}

// SetPage is one page of a set listing.
type SetPage struct {
	Sets        []SetSummary `json:"sets"`
	SetsCount   int          `json:"sets_count"`
	HasNextPage bool         `json:"has_next_page"`
}

// NewSetPage builds a page, computing HasNextPage from the total count.
func NewSetPage(sets []SetSummary, total int, opts ListOptions) *SetPage {
	if sets == nil {
		sets = []SetSummary{}
	}
	totalPages := total / opts.Limit
	if total%opts.Limit != 0 {
		totalPages++
	}
	return &SetPage{
		Sets:        sets,
		SetsCount:   total,
		HasNextPage: opts.Page < totalPages,
	}
}
