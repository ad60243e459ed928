package query

import (
	"testing"
	"time"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

func TestComposeResourceUsage(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plan, err := ComposeResourceUsage(ResourceUsageFilter{
		ComponentType: "gpu",
		Window:        TimeWindow{Start: &start, End: &end},
	})
	if err != nil {
		t.Fatalf("ComposeResourceUsage returned error: %v", err)
	}
	if plan.Table != domain.TableComponents {
		t.Fatalf("expected component grain, got %s", plan.Table)
	}
	wantJoins := []domain.Table{domain.TableSlivers, domain.TableSlices, domain.TableProjects, domain.TableUsers}
	if len(plan.Joins) != len(wantJoins) {
		t.Fatalf("expected joins %v, got %+v", wantJoins, plan.Joins)
	}
	for i, table := range wantJoins {
		if plan.Joins[i].Table != table || plan.Joins[i].Kind != LeftJoin {
			t.Fatalf("join %d: expected left join to %s, got %+v", i, table, plan.Joins[i])
		}
	}
	if plan.Where[0].Op != OpEqFold {
		t.Fatalf("component type must compare case-insensitively, got %s", plan.Where[0].Op)
	}
	for _, cond := range plan.Where[1:] {
		if cond.Column.Alias != "s" {
			t.Fatalf("time window must apply to the slice lease, got %s", cond.Column)
		}
	}
	if len(plan.GroupBy) != 4 {
		t.Fatalf("expected grouping by 4 owner columns, got %+v", plan.GroupBy)
	}
	if plan.OrderBy[0] != (Order{Label: LabelCount, Desc: true}) {
		t.Fatalf("expected count desc first, got %+v", plan.OrderBy)
	}
}

func TestComposeVMUsage_WindowOnSlice(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	plan, err := ComposeVMUsage(TimeWindow{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("ComposeVMUsage returned error: %v", err)
	}
	if len(plan.Where) != 2 {
		t.Fatalf("expected two overlap conditions, got %+v", plan.Where)
	}
	for _, cond := range plan.Where {
		if cond.Column.Alias != "s" {
			t.Fatalf("expected slice lease condition, got %s", cond.Column)
		}
	}
	if len(plan.Aggregates) != 1 || !plan.Aggregates[0].Distinct || plan.Aggregates[0].As != LabelVMsInUse {
		t.Fatalf("unexpected aggregate %+v", plan.Aggregates)
	}
}

func TestComposeActiveSlicesPerSite_CountsDistinctSlices(t *testing.T) {
	plan, err := ComposeActiveSlicesPerSite()
	if err != nil {
		t.Fatalf("ComposeActiveSlicesPerSite returned error: %v", err)
	}
	agg := plan.Aggregates[0]
	if !agg.Distinct || agg.Column != (ColumnRef{Alias: "s", Column: "id"}) {
		t.Fatalf("expected count distinct slice id, got %+v", agg)
	}
	cond := plan.Where[0]
	if cond.Op != OpIn || cond.Value.([]int64)[0] != domain.SliceStateActive {
		t.Fatalf("expected active state filter, got %+v", cond)
	}
}

func TestComposeSliceFailures(t *testing.T) {
	plan, err := ComposeSliceFailures()
	if err != nil {
		t.Fatalf("ComposeSliceFailures returned error: %v", err)
	}
	cond := plan.Where[0]
	if cond.Op != OpGTE || cond.Value.(int64) != domain.FailureStateThreshold {
		t.Fatalf("unexpected failure condition %+v", cond)
	}
	if plan.Labels()[0] != LabelErrorType || plan.Labels()[1] != LabelFailureCount {
		t.Fatalf("unexpected labels %v", plan.Labels())
	}
	want := []Order{{Label: LabelFailureCount, Desc: true}, {Label: LabelErrorType}}
	if len(plan.OrderBy) != 2 || plan.OrderBy[0] != want[0] || plan.OrderBy[1] != want[1] {
		t.Fatalf("expected failure_count desc then state, got %+v", plan.OrderBy)
	}
}

func TestComposeSlicesByProject_OpenWindow(t *testing.T) {
	plan, err := ComposeSlicesByProject("p-1", TimeWindow{})
	if err != nil {
		t.Fatalf("ComposeSlicesByProject returned error: %v", err)
	}
	if len(plan.Where) != 1 {
		t.Fatalf("expected only the project condition, got %+v", plan.Where)
	}
}
