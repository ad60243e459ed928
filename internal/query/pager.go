package query

import (
	"context"
	"fmt"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 1000
)

// PageRequest is a validated 1-based page window.
type PageRequest struct {
	Page    int
	PerPage int
}

// DefaultPageRequest returns the first page with the default size.
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, PerPage: DefaultPerPage}
}

// Offset returns the index of the first row of the page. Callers check the page
// against the listing's total pages first.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PerPage
}

// Page is one window of a listing plus the totals of the whole listing.
type Page struct {
	Rows         []Row
	Page         int
	PerPage      int
	TotalPages   int
	TotalResults int64
}

// TotalPages returns ceil(total/perPage). An empty listing has zero pages.
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Paginate counts the plan's rows and fetches one page of them. The count runs
// over the same joins, filters and grouping as the page, so totals agree with
// the rows a caller can reach by walking every page. The two statements do not
// share a transaction.
func Paginate(ctx context.Context, exec Executor, plan Plan, req PageRequest) (Page, error) {
	page := Page{Page: req.Page, PerPage: req.PerPage, Rows: []Row{}}

	total, err := exec.Count(ctx, plan.Unpaged())
	if err != nil {
		return Page{}, fmt.Errorf("count rows: %w", err)
	}
	page.TotalResults = total
	page.TotalPages = TotalPages(total, req.PerPage)

	// Compare page numbers, not offsets: (page-1)*per_page overflows for huge pages.
	if req.Page < 1 || int64(req.Page-1) >= int64(page.TotalPages) {
		return page, nil
	}

	rows, err := exec.Query(ctx, plan.WithPage(req.PerPage, req.Offset()))
	if err != nil {
		return Page{}, fmt.Errorf("query page: %w", err)
	}
	if rows != nil {
		page.Rows = rows
	}
	return page, nil
}
