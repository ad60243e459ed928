package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/testbed-analytics/internal/analytics"
	"github.com/rpattn/testbed-analytics/internal/domain"
	"github.com/rpattn/testbed-analytics/internal/memstore"
	"github.com/rpattn/testbed-analytics/internal/query"
)

const fixture = `
sites:
  - {id: 1, name: RENC}
  - {id: 2, name: UKY}
projects:
  - {id: 1, project_uuid: 11111111-1111-1111-1111-111111111111, project_name: alpha}
users:
  - {id: 1, user_uuid: 22222222-2222-2222-2222-222222222222}
slices:
  - id: 1
    project_id: 1
    user_id: 1
    slice_guid: s-1
    slice_name: first
    state: 1
    lease_start: 2024-01-01T00:00:00Z
    lease_end: 2024-06-01T00:00:00Z
  - {id: 2, project_id: 1, user_id: 1, slice_guid: s-2, slice_name: second, state: 4}
slivers:
  - {id: 10, slice_id: 1, site_id: 1, sliver_guid: v-10, state: 4, sliver_type: VM}
  - {id: 12, slice_id: 1, site_id: 2, sliver_guid: v-12, state: 4, sliver_type: VM}
`

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	ds, err := memstore.LoadDataset(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("LoadDataset returned error: %v", err)
	}
	return memstore.New(ds)
}

func TestWriteSlices_WritesEveryPage(t *testing.T) {
	service := NewService(newStore(t), nil, WithPageSize(1))
	plan, err := service.PrepareSlices(analytics.SliceListRequest{PerPage: "1", GroupSites: "true"})
	if err != nil {
		t.Fatalf("PrepareSlices returned error: %v", err)
	}

	var buf bytes.Buffer
	written, err := service.WriteSlices(context.Background(), plan, &buf)
	if err != nil {
		t.Fatalf("WriteSlices returned error: %v", err)
	}
	if written != 3 {
		t.Fatalf("expected 3 rows, got %d", written)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader returned error: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(sliceHeaders, ",") {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "s-1" || rows[1][4] != "2024-01-01T00:00:00Z" || rows[1][8] != "RENC" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][8] != "UKY" {
		t.Fatalf("expected second site row, got %v", rows[2])
	}
	if rows[3][1] != "s-2" {
		t.Fatalf("expected slice s-2 last, got %v", rows[3])
	}
}

func TestPrepareSlices_RejectsBadTimestamp(t *testing.T) {
	service := NewService(newStore(t), nil)
	_, err := service.PrepareSlices(analytics.SliceListRequest{StartTime: "not-a-date"})
	if !domain.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

type failingExecutor struct{}

func (failingExecutor) Query(context.Context, query.Plan) ([]query.Row, error) {
	return nil, errors.New("connection refused")
}

func (failingExecutor) Count(context.Context, query.Plan) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestWriteSlices_StoreFailure(t *testing.T) {
	service := NewService(failingExecutor{}, nil)
	plan, err := service.PrepareSlices(analytics.SliceListRequest{})
	if err != nil {
		t.Fatalf("PrepareSlices returned error: %v", err)
	}
	var buf bytes.Buffer
	_, err = service.WriteSlices(context.Background(), plan, &buf)
	if !domain.IsUpstreamFailure(err) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written on failure")
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))
	if got != "slices-20240304T050607Z.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}
