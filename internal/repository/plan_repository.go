package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rpattn/testbed-analytics/internal/query"
)

const tracerName = "github.com/rpattn/testbed-analytics/internal/repository"

// DBTX is the subset of pgxpool.Pool used by the plan repository.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Pinger reports store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PlanRepository executes query plans against PostgreSQL. It never retries;
// a failed round-trip is returned to the caller as is.
type PlanRepository struct {
	db     DBTX
	pinger Pinger
	tracer trace.Tracer
}

// NewPlanRepository creates a plan executor over db. When db also implements
// Pinger (as *pgxpool.Pool does) it is used for health checks.
func NewPlanRepository(db DBTX) *PlanRepository {
	repo := &PlanRepository{db: db, tracer: otel.Tracer(tracerName)}
	if pinger, ok := db.(Pinger); ok {
		repo.pinger = pinger
	}
	return repo
}

// Query runs the plan and returns one row per result record keyed by label.
func (r *PlanRepository) Query(ctx context.Context, plan query.Plan) ([]query.Row, error) {
	stmt, err := CompileQuery(plan)
	if err != nil {
		return nil, err
	}
	ctx, span := r.startSpan(ctx, "repository.Query", plan, stmt)
	defer span.End()

	rows, err := r.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("execute plan query: %w", err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("collect plan rows: %w", err)
	}

	result := make([]query.Row, 0, len(maps))
	for _, m := range maps {
		result = append(result, query.Row(m))
	}
	span.SetAttributes(attribute.Int("db.rows", len(result)))
	return result, nil
}

// Count returns the number of rows the plan yields without paging.
func (r *PlanRepository) Count(ctx context.Context, plan query.Plan) (int64, error) {
	stmt, err := CompileCount(plan)
	if err != nil {
		return 0, err
	}
	ctx, span := r.startSpan(ctx, "repository.Count", plan, stmt)
	defer span.End()

	var total int64
	if err := r.db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&total); err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("count plan rows: %w", err)
	}
	return total, nil
}

// Ping checks that the database answers.
func (r *PlanRepository) Ping(ctx context.Context) error {
	if r.pinger != nil {
		if err := r.pinger.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		return nil
	}
	if _, err := r.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *PlanRepository) startSpan(ctx context.Context, name string, plan query.Plan, stmt Statement) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", string(plan.Table)),
		attribute.String("db.statement", stmt.SQL),
		attribute.Int("db.joins", len(plan.Joins)),
	))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
