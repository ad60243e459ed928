package query

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

type fakeExecutor struct {
	rows     []Row
	countErr error
	queries  []Plan
	counted  []Plan
}

func (f *fakeExecutor) Query(ctx context.Context, plan Plan) ([]Row, error) {
	f.queries = append(f.queries, plan)
	start := plan.Offset
	if start > len(f.rows) {
		start = len(f.rows)
	}
	end := len(f.rows)
	if plan.Limit > 0 && start+plan.Limit < end {
		end = start + plan.Limit
	}
	return f.rows[start:end], nil
}

func (f *fakeExecutor) Count(ctx context.Context, plan Plan) (int64, error) {
	f.counted = append(f.counted, plan)
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.rows)), nil
}

func testPlan(t *testing.T) Plan {
	t.Helper()
	plan, err := ComposeUserListing()
	if err != nil {
		t.Fatalf("ComposeUserListing returned error: %v", err)
	}
	return plan
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {25, 5, 5},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.perPage); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.perPage, got, tc.want)
		}
	}
}

func TestPaginate_DisjointAndComplete(t *testing.T) {
	exec := &fakeExecutor{}
	for i := 1; i <= 7; i++ {
		exec.rows = append(exec.rows, Row{LabelID: int64(i)})
	}
	plan := testPlan(t)

	seen := make(map[int64]bool)
	for page := 1; page <= 3; page++ {
		result, err := Paginate(context.Background(), exec, plan, PageRequest{Page: page, PerPage: 3})
		if err != nil {
			t.Fatalf("Paginate returned error: %v", err)
		}
		if result.TotalResults != 7 || result.TotalPages != 3 {
			t.Fatalf("unexpected totals %d/%d", result.TotalResults, result.TotalPages)
		}
		for _, row := range result.Rows {
			id := row[LabelID].(int64)
			if seen[id] {
				t.Fatalf("row %d returned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != 7 {
		t.Fatalf("expected all 7 rows across pages, got %d", len(seen))
	}
	for _, counted := range exec.counted {
		if counted.Limit != 0 || counted.Offset != 0 || len(counted.OrderBy) != 0 {
			t.Fatalf("count must run unpaged, got %+v", counted)
		}
	}
}

func TestPaginate_PastEnd(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{{LabelID: int64(1)}}}
	result, err := Paginate(context.Background(), exec, testPlan(t), PageRequest{Page: 5, PerPage: 10})
	if err != nil {
		t.Fatalf("Paginate returned error: %v", err)
	}
	if len(result.Rows) != 0 || result.Rows == nil {
		t.Fatalf("expected empty non-nil rows, got %#v", result.Rows)
	}
	if result.TotalResults != 1 || result.TotalPages != 1 {
		t.Fatalf("unexpected totals %d/%d", result.TotalResults, result.TotalPages)
	}
	if len(exec.queries) != 0 {
		t.Fatalf("page past the end must not query rows")
	}
}

func TestPaginate_MaxIntPage(t *testing.T) {
	exec := &fakeExecutor{}
	for i := 1; i <= 3; i++ {
		exec.rows = append(exec.rows, Row{LabelID: int64(i)})
	}
	req, err := ParsePage(strconv.Itoa(math.MaxInt), "10")
	if err != nil {
		t.Fatalf("ParsePage returned error: %v", err)
	}
	result, err := Paginate(context.Background(), exec, testPlan(t), req)
	if err != nil {
		t.Fatalf("Paginate returned error: %v", err)
	}
	if len(result.Rows) != 0 || result.Rows == nil {
		t.Fatalf("expected empty page, got %#v", result.Rows)
	}
	if result.Page != math.MaxInt || result.TotalResults != 3 || result.TotalPages != 1 {
		t.Fatalf("unexpected envelope %+v", result)
	}
	if len(exec.queries) != 0 {
		t.Fatalf("page past the end must not query rows, got %+v", exec.queries)
	}
}

func TestPaginate_PropagatesCountError(t *testing.T) {
	storeErr := domain.UpstreamFailure("count", errors.New("connection refused"))
	exec := &fakeExecutor{countErr: storeErr}
	_, err := Paginate(context.Background(), exec, testPlan(t), DefaultPageRequest())
	if !domain.IsUpstreamFailure(err) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
}
