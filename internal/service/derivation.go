package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

// Derive runs the search → status filter → date filter → sort → paginate
// pipeline over a record set. It is a pure function: the stage order is part
// of the contract, the sort is stable, and a page past the end yields an
// empty slice rather than an error. Callers decide whether they derive over
// an already-fetched snapshot or re-query the platform; the two strategies
// must never be mixed for one render.
func Derive(records []models.Record, params models.ViewParameters, desc models.KindDescriptor) models.DerivedView {
	matched := make([]models.Record, 0, len(records))

	search := strings.ToLower(strings.TrimSpace(params.Search))
	for _, r := range records {
		if search != "" && !matchesSearch(r, search, desc) {
			continue
		}
		if params.StatusFilter != "" && params.StatusFilter != models.StatusFilterAll && string(r.Status) != params.StatusFilter {
			continue
		}
		if params.CreatedFrom != nil && r.CreatedAt.Before(*params.CreatedFrom) {
			continue
		}
		if params.CreatedTo != nil && r.CreatedAt.After(*params.CreatedTo) {
			continue
		}
		matched = append(matched, r)
	}

	sortRecords(matched, params.SortKey)

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	totalMatching := len(matched)
	totalPages := (totalMatching + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= totalMatching {
		return models.DerivedView{Slice: []models.Record{}, TotalMatching: totalMatching, TotalPages: totalPages}
	}
	end := start + pageSize
	if end > totalMatching {
		end = totalMatching
	}

	slice := make([]models.Record, end-start)
	copy(slice, matched[start:end])
	return models.DerivedView{Slice: slice, TotalMatching: totalMatching, TotalPages: totalPages}
}

// ClampPage folds a page number back into [1, totalPages]; filter edits that
// shrink the result set must not leave a console pointing past the end.
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages >= 1 && page > totalPages {
		return totalPages
	}
	return page
}

func matchesSearch(r models.Record, loweredSearch string, desc models.KindDescriptor) bool {
	for _, value := range desc.SearchableText(r) {
		if strings.Contains(strings.ToLower(value), loweredSearch) {
			return true
		}
	}
	return false
}

func sortRecords(records []models.Record, key string) {
	switch key {
	case models.SortOldest:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
	case models.SortNameAsc:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
		})
	case models.SortNameDesc:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].Name) > strings.ToLower(records[j].Name)
		})
	case models.SortRating:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Rating > records[j].Rating
		})
	case models.SortStudents:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].EnrolledCount > records[j].EnrolledCount
		})
	case models.SortRevenue:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Revenue > records[j].Revenue
		})
	default: // newest
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
	}
}
