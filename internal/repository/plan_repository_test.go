package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/testbed-analytics/internal/query"
)

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

// fakeRows serves fixed records the way a pgx result set does.
type fakeRows struct {
	fields  []string
	records [][]any
	pos     int
	closed  bool
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, name := range r.fields {
		out[i] = pgconn.FieldDescription{Name: name}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.records[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if scanner, ok := dest[0].(pgx.RowScanner); ok {
			return scanner.ScanRow(r)
		}
	}
	return errors.New("fakeRows only supports row scanners")
}

type fakeDB struct {
	lastSQL  string
	lastArgs []any
	row      fakeRow
	rows     *fakeRows
	queryErr error
	execErr  error
	execs    int
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	f.execs++
	return pgconn.CommandTag{}, f.execErr
}

func TestPlanRepository_Count(t *testing.T) {
	db := &fakeDB{row: fakeRow{value: 42}}
	repo := NewPlanRepository(db)
	plan, err := query.ComposeSliceListing(query.SliceFilter{States: []int64{1}}, query.ListingOptions{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	total, err := repo.Count(context.Background(), plan.WithPage(10, 0))
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 42 {
		t.Fatalf("expected 42, got %d", total)
	}
	if !strings.HasPrefix(db.lastSQL, "SELECT COUNT(*) FROM (") || strings.Contains(db.lastSQL, "LIMIT") {
		t.Fatalf("unexpected count SQL %s", db.lastSQL)
	}
	if len(db.lastArgs) != 1 {
		t.Fatalf("expected only the state argument, got %v", db.lastArgs)
	}
}

func TestPlanRepository_QueryCollectsRowsByLabel(t *testing.T) {
	rows := &fakeRows{
		fields: []string{"guid", "type", "model", "bdfs", "sliver_id"},
		records: [][]any{
			{"c-1", "GPU", "RTX6000", []any{"0000:25:00.0", "0000:81:00.0"}, int32(10)},
			{"c-2", "SmartNIC", "ConnectX-6", []any{}, int32(11)},
		},
	}
	db := &fakeDB{rows: rows}
	repo := NewPlanRepository(db)
	plan, err := query.ComposeComponentListing()
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	got, err := repo.Query(context.Background(), plan)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0]["guid"] != "c-1" || got[0]["sliver_id"] != int32(10) {
		t.Fatalf("unexpected first row %+v", got[0])
	}
	if bdfs, ok := got[0]["bdfs"].([]any); !ok || len(bdfs) != 2 {
		t.Fatalf("expected decoded bdfs, got %#v", got[0]["bdfs"])
	}
	if !rows.closed {
		t.Fatalf("expected rows to be closed after collection")
	}
	if !strings.HasPrefix(db.lastSQL, "SELECT ") {
		t.Fatalf("unexpected SQL %s", db.lastSQL)
	}
}

func TestPlanRepository_QueryEmptyResult(t *testing.T) {
	repo := NewPlanRepository(&fakeDB{})
	plan, err := query.ComposeUserListing()
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	got, err := repo.Query(context.Background(), plan)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", got)
	}
}

func TestPlanRepository_WrapsErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")
	db := &fakeDB{row: fakeRow{err: cause}, queryErr: cause}
	repo := NewPlanRepository(db)
	plan, err := query.ComposeUserListing()
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if _, err := repo.Query(context.Background(), plan); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause from Query, got %v", err)
	}
	if _, err := repo.Count(context.Background(), plan); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause from Count, got %v", err)
	}
}

func TestPlanRepository_PingFallsBackToSelect(t *testing.T) {
	db := &fakeDB{}
	repo := NewPlanRepository(db)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if db.execs != 1 || db.lastSQL != "SELECT 1" {
		t.Fatalf("expected SELECT 1 ping, got %q", db.lastSQL)
	}

	db.execErr = errors.New("no route to host")
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
}
