package models

import "time"

// Sort keys accepted by the derivation pipeline.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortNameAsc  = "name_asc"
	SortNameDesc = "name_desc"
	SortRating   = "rating"
	SortStudents = "students"
	SortRevenue  = "revenue"
)

// ValidSortKey reports whether the key is part of the fixed comparator set.
func ValidSortKey(key string) bool {
	switch key {
	case SortNewest, SortOldest, SortNameAsc, SortNameDesc, SortRating, SortStudents, SortRevenue:
		return true
	}
	return false
}

// ViewParameters captures the user-controlled query knobs of one console.
// Page is always >= 1 and is clamped to the derived total after filter edits.
type ViewParameters struct {
	Search       string     `json:"search"`
	StatusFilter string     `json:"status_filter"`
	SortKey      string     `json:"sort_key"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
	CreatedFrom  *time.Time `json:"created_from,omitempty"`
	CreatedTo    *time.Time `json:"created_to,omitempty"`
}

// Normalize fills zero values with the provided defaults.
func (p ViewParameters) Normalize(defaultPageSize, maxPageSize int) ViewParameters {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if maxPageSize > 0 && p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	if p.StatusFilter == "" {
		p.StatusFilter = StatusFilterAll
	}
	if p.SortKey == "" {
		p.SortKey = SortNewest
	}
	return p
}

// DerivedView is the result of running the derivation pipeline.
type DerivedView struct {
	Slice         []Record `json:"slice"`
	TotalMatching int      `json:"total_matching"`
	TotalPages    int      `json:"total_pages"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}
