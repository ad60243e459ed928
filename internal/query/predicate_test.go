package query

import (
	"testing"
	"time"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

func catalogAlias(table domain.Table) string {
	info, _ := domain.LookupTable(table)
	return info.Alias
}

func TestTimeOverlap_Conditions(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	leaseStart := domain.Attr(domain.TableSlices, "lease_start")
	leaseEnd := domain.Attr(domain.TableSlices, "lease_end")

	if p := NewTimeOverlap(leaseStart, leaseEnd, TimeWindow{}); p != nil {
		t.Fatalf("expected absent predicate for an open window, got %+v", p)
	}

	conds := NewTimeOverlap(leaseStart, leaseEnd, TimeWindow{Start: &start, End: &end}).Conditions(catalogAlias)
	if len(conds) != 2 {
		t.Fatalf("expected two conditions, got %+v", conds)
	}
	if conds[0].Column.Column != "lease_start" || conds[0].Op != OpLTE || !conds[0].Value.(time.Time).Equal(end) {
		t.Fatalf("expected lease_start <= end, got %+v", conds[0])
	}
	if conds[1].Column.Column != "lease_end" || conds[1].Op != OpGTE || !conds[1].Value.(time.Time).Equal(start) {
		t.Fatalf("expected lease_end >= start, got %+v", conds[1])
	}

	conds = NewTimeOverlap(leaseStart, leaseEnd, TimeWindow{Start: &start}).Conditions(catalogAlias)
	if len(conds) != 1 || conds[0].Column.Column != "lease_end" {
		t.Fatalf("start-only window must compare lease_end only, got %+v", conds)
	}
	conds = NewTimeOverlap(leaseStart, leaseEnd, TimeWindow{End: &end}).Conditions(catalogAlias)
	if len(conds) != 1 || conds[0].Column.Column != "lease_start" {
		t.Fatalf("end-only window must compare lease_start only, got %+v", conds)
	}
}

func TestMultiState(t *testing.T) {
	attr := domain.Attr(domain.TableSlices, "state")
	if p := NewMultiState(attr, nil); p != nil {
		t.Fatalf("expected absent predicate for empty set")
	}
	conds := NewMultiState(attr, []int64{6, 1, 6}).Conditions(catalogAlias)
	values := conds[0].Value.([]int64)
	if len(values) != 2 || values[0] != 1 || values[1] != 6 {
		t.Fatalf("unexpected values %v", values)
	}
}

func TestEqualsFold(t *testing.T) {
	attr := domain.Attr(domain.TableComponents, "type")
	if p := NewEqualsFold(attr, ""); p != nil {
		t.Fatalf("expected absent predicate for empty value")
	}
	conds := NewEqualsFold(attr, "GPU").Conditions(catalogAlias)
	if conds[0].Op != OpEqFold || conds[0].Column.Alias != "c" {
		t.Fatalf("unexpected condition %+v", conds[0])
	}
}

func TestPredicatesTouches(t *testing.T) {
	var preds Predicates
	preds.Add(nil)
	preds.Add(NewEquals(domain.Attr(domain.TableSites, "name"), "RENC"))
	if len(preds) != 1 {
		t.Fatalf("expected nil predicates to be skipped, got %d", len(preds))
	}
	if !preds.Touches(domain.TableSites) || preds.Touches(domain.TableComponents) {
		t.Fatalf("unexpected Touches result")
	}
}
