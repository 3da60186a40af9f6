package search

import "github.com/architeacher/smartsearch/pkg/search/sorting"

// ResultList is one page of results with its paging metadata.
type ResultList[T any] struct {
	Page         int               `json:"page"`
	ItemsPerPage int               `json:"itemsPerPage"`
	Count        int               `json:"count"`
	Pages        int               `json:"pages"`
	Skipped      int               `json:"skipped"`
	Taken        int               `json:"taken"`
	Sortings     []sorting.Sorting `json:"sortings"`
	Items        []T               `json:"items"`
}

func newResultList[T any](page, itemsPerPage, skipped, count int, sortings []sorting.Sorting, items []T) *ResultList[T] {
	if items == nil {
		items = []T{}
	}

	if sortings == nil {
		sortings = []sorting.Sorting{}
	}

	pages := 0
	if itemsPerPage > 0 && count > 0 {
		pages = (count + itemsPerPage - 1) / itemsPerPage
	}

	return &ResultList[T]{
		Page:         page,
		ItemsPerPage: itemsPerPage,
		Count:        count,
		Pages:        pages,
		Skipped:      skipped,
		Taken:        len(items),
		Sortings:     sortings,
		Items:        items,
	}
}

// MapResultList converts the items of r and keeps its metadata.
func MapResultList[T, U any](r *ResultList[T], fn func(T) U) *ResultList[U] {
	items := make([]U, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, fn(item))
	}

	return &ResultList[U]{
		Page:         r.Page,
		ItemsPerPage: r.ItemsPerPage,
		Count:        r.Count,
		Pages:        r.Pages,
		Skipped:      r.Skipped,
		Taken:        r.Taken,
		Sortings:     r.Sortings,
		Items:        items,
	}
}
