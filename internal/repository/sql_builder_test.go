package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/rpattn/testbed-analytics/internal/query"
)

func TestCompileQuery_SliceListing(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	plan, err := query.ComposeSliceListing(query.SliceFilter{
		Window:        query.TimeWindow{Start: &start},
		States:        []int64{1, 4},
		ComponentType: "GPU",
	}, query.ListingOptions{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	stmt, err := CompileQuery(plan.WithPage(10, 20))
	if err != nil {
		t.Fatalf("CompileQuery returned error: %v", err)
	}

	for _, fragment := range []string{
		"FROM slices s",
		"INNER JOIN projects p ON p.id = s.project_id",
		"INNER JOIN users u ON u.id = s.user_id",
		"LEFT JOIN slivers sv ON sv.slice_id = s.id",
		"LEFT JOIN sites st ON st.id = sv.site_id",
		"LEFT JOIN components c ON c.sliver_id = sv.id",
		"WHERE s.lease_end >= $1 AND s.state = ANY($2::bigint[]) AND lower(c.type) = lower($3)",
		"GROUP BY s.id, s.slice_guid",
		`ORDER BY "id" ASC NULLS LAST, "site_name" ASC NULLS LAST`,
		"LIMIT $4 OFFSET $5",
	} {
		if !strings.Contains(stmt.SQL, fragment) {
			t.Fatalf("expected SQL to contain %q\n%s", fragment, stmt.SQL)
		}
	}
	if strings.Contains(stmt.SQL, "sv.project_id") || strings.Contains(stmt.SQL, "sv.user_id") {
		t.Fatalf("sliver ownership columns must not appear:\n%s", stmt.SQL)
	}
	if len(stmt.Args) != 5 {
		t.Fatalf("expected 5 args, got %d: %v", len(stmt.Args), stmt.Args)
	}
	if stmt.Args[3] != 10 || stmt.Args[4] != 20 {
		t.Fatalf("unexpected paging args %v", stmt.Args[3:])
	}
}

func TestCompileCount_WrapsGroupedQuery(t *testing.T) {
	plan, err := query.ComposeSliceListing(query.SliceFilter{ProjectUUID: "p"}, query.ListingOptions{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	stmt, err := CompileCount(plan.WithPage(10, 0))
	if err != nil {
		t.Fatalf("CompileCount returned error: %v", err)
	}
	if !strings.HasPrefix(stmt.SQL, "SELECT COUNT(*) FROM (SELECT ") || !strings.HasSuffix(stmt.SQL, ") AS page_source") {
		t.Fatalf("unexpected count SQL %s", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "ORDER BY") || strings.Contains(stmt.SQL, "LIMIT") {
		t.Fatalf("count must not order or page: %s", stmt.SQL)
	}
	if len(stmt.Args) != 1 || stmt.Args[0] != "p" {
		t.Fatalf("unexpected args %v", stmt.Args)
	}
}

func TestCompileQuery_Aggregate(t *testing.T) {
	plan, err := query.ComposeActiveSlicesPerSite()
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	stmt, err := CompileQuery(plan)
	if err != nil {
		t.Fatalf("CompileQuery returned error: %v", err)
	}
	want := `SELECT st.name AS "site", COUNT(DISTINCT s.id) AS "active_slices" ` +
		`FROM slices s INNER JOIN slivers sv ON sv.slice_id = s.id INNER JOIN sites st ON st.id = sv.site_id ` +
		`WHERE s.state = ANY($1::bigint[]) GROUP BY st.name ` +
		`ORDER BY "active_slices" DESC NULLS LAST, "site" ASC NULLS LAST`
	if stmt.SQL != want {
		t.Fatalf("unexpected SQL\nwant: %s\ngot:  %s", want, stmt.SQL)
	}
}

func TestCompileQuery_RejectsInvalidPlan(t *testing.T) {
	plan := query.Plan{Table: "widgets", Alias: "w"}
	if _, err := CompileQuery(plan); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}
