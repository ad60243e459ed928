package repository

import (
	"fmt"
	"strings"

	"github.com/rpattn/testbed-analytics/internal/query"
)

// Statement is a compiled SQL text and its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

// CompileQuery renders a plan as a PostgreSQL SELECT statement.
func CompileQuery(plan query.Plan) (Statement, error) {
	if err := plan.Validate(); err != nil {
		return Statement{}, fmt.Errorf("compile plan: %w", err)
	}
	builder := newSQLBuilder()
	body, err := buildBody(plan, builder)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString(buildSelectClause(plan))
	sb.WriteString(" ")
	sb.WriteString(body)
	if order := buildOrderClause(plan.OrderBy); order != "" {
		sb.WriteString(" ")
		sb.WriteString(order)
	}
	if plan.Limit > 0 {
		limitIdx := builder.addArg(plan.Limit)
		sb.WriteString(" LIMIT ")
		sb.WriteString(builder.placeholder(limitIdx))
	}
	if plan.Offset > 0 {
		offsetIdx := builder.addArg(plan.Offset)
		sb.WriteString(" OFFSET ")
		sb.WriteString(builder.placeholder(offsetIdx))
	}
	return Statement{SQL: sb.String(), Args: builder.args}, nil
}

// CompileCount renders a statement counting the rows the unpaged plan yields.
// The plan is wrapped as a subquery so grouping is counted, not joined rows.
func CompileCount(plan query.Plan) (Statement, error) {
	inner, err := CompileQuery(plan.Unpaged())
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  "SELECT COUNT(*) FROM (" + inner.SQL + ") AS page_source",
		Args: inner.Args,
	}, nil
}

func buildSelectClause(plan query.Plan) string {
	columns := make([]string, 0, len(plan.Select)+len(plan.Aggregates))
	for _, proj := range plan.Select {
		columns = append(columns, fmt.Sprintf("%s AS %s", proj.Column, quoteIdent(proj.As)))
	}
	for _, agg := range plan.Aggregates {
		expr := agg.Column.String()
		if agg.Distinct {
			expr = "DISTINCT " + expr
		}
		columns = append(columns, fmt.Sprintf("COUNT(%s) AS %s", expr, quoteIdent(agg.As)))
	}
	return "SELECT " + strings.Join(columns, ", ")
}

func buildBody(plan query.Plan, builder *sqlBuilder) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FROM %s %s", plan.Table, plan.Alias))
	for _, join := range plan.Joins {
		sb.WriteString(fmt.Sprintf(" %s JOIN %s %s ON %s = %s", join.Kind, join.Table, join.Alias, join.Left, join.Right))
	}

	whereClauses := make([]string, 0, len(plan.Where))
	for _, cond := range plan.Where {
		clause, err := buildCondition(cond, builder)
		if err != nil {
			return "", err
		}
		whereClauses = append(whereClauses, clause)
	}
	if len(whereClauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(whereClauses, " AND "))
	}

	if len(plan.GroupBy) > 0 {
		refs := make([]string, 0, len(plan.GroupBy))
		for _, ref := range plan.GroupBy {
			refs = append(refs, ref.String())
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(refs, ", "))
	}
	return sb.String(), nil
}

func buildCondition(cond query.Condition, builder *sqlBuilder) (string, error) {
	column := cond.Column.String()
	switch cond.Op {
	case query.OpEq:
		return fmt.Sprintf("%s = %s", column, builder.placeholder(builder.addArg(cond.Value))), nil
	case query.OpEqFold:
		return fmt.Sprintf("lower(%s) = lower(%s)", column, builder.placeholder(builder.addArg(cond.Value))), nil
	case query.OpIn:
		values, ok := cond.Value.([]int64)
		if !ok {
			return "", fmt.Errorf("condition on %s: expected []int64, got %T", column, cond.Value)
		}
		return fmt.Sprintf("%s = ANY(%s::bigint[])", column, builder.placeholder(builder.addArg(values))), nil
	case query.OpGTE:
		return fmt.Sprintf("%s >= %s", column, builder.placeholder(builder.addArg(cond.Value))), nil
	case query.OpLTE:
		return fmt.Sprintf("%s <= %s", column, builder.placeholder(builder.addArg(cond.Value))), nil
	}
	return "", fmt.Errorf("condition on %s: unsupported operator %q", column, cond.Op)
}

func buildOrderClause(orders []query.Order) string {
	if len(orders) == 0 {
		return ""
	}
	orderings := make([]string, 0, len(orders))
	for _, order := range orders {
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		orderings = append(orderings, fmt.Sprintf("%s %s NULLS LAST", quoteIdent(order.Label), direction))
	}
	return "ORDER BY " + strings.Join(orderings, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
