// Package query turns request filters into explicit query plans. A Plan is a
// plain value describing joins, conditions, grouping, ordering and paging over
// the catalog in internal/domain; executors compile or evaluate it.
package query

import (
	"context"
	"fmt"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

// ColumnRef names a column of an aliased table in a plan.
type ColumnRef struct {
	Alias  string
	Column string
}

func (c ColumnRef) String() string {
	return c.Alias + "." + c.Column
}

// JoinKind selects inner or left outer join semantics.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
)

// Join attaches Table (as Alias) with the equality Left = Right, where Left
// belongs to the joined table and Right to a table already in the plan.
type Join struct {
	Kind  JoinKind
	Table domain.Table
	Alias string
	Left  ColumnRef
	Right ColumnRef
}

// Op is a comparison operator.
type Op string

const (
	OpEq     Op = "eq"
	OpEqFold Op = "eq_fold"
	OpIn     Op = "in"
	OpGTE    Op = "gte"
	OpLTE    Op = "lte"
)

// Condition compares a column with a parameter value. A NULL column never
// satisfies a condition.
type Condition struct {
	Column ColumnRef
	Op     Op
	Value  any
}

// Projection selects a column under an output label.
type Projection struct {
	Column ColumnRef
	As     string
}

// Aggregate counts a column under an output label. Count skips NULLs.
type Aggregate struct {
	Column   ColumnRef
	Distinct bool
	As       string
}

// Order sorts by an output label.
type Order struct {
	Label string
	Desc  bool
}

// Plan describes one read query. Rows are one per distinct GroupBy key when
// GroupBy is set, otherwise one per joined row. Nulls sort last in both
// directions.
type Plan struct {
	Table      domain.Table
	Alias      string
	Joins      []Join
	Where      []Condition
	Select     []Projection
	Aggregates []Aggregate
	GroupBy    []ColumnRef
	OrderBy    []Order
	Limit      int
	Offset     int
}

// Row is one result row keyed by output label.
type Row map[string]any

// Executor runs plans against a store. Implementations must not retry.
type Executor interface {
	Query(ctx context.Context, plan Plan) ([]Row, error)
	Count(ctx context.Context, plan Plan) (int64, error)
}

// WithPage returns a copy of the plan restricted to one window of rows.
func (p Plan) WithPage(limit, offset int) Plan {
	clone := p.clone()
	clone.Limit = limit
	clone.Offset = offset
	return clone
}

// Unpaged returns a copy of the plan without limit, offset or ordering, the
// form counted by the pager.
func (p Plan) Unpaged() Plan {
	clone := p.clone()
	clone.Limit = 0
	clone.Offset = 0
	clone.OrderBy = nil
	return clone
}

// Labels returns the output labels in select order.
func (p Plan) Labels() []string {
	labels := make([]string, 0, len(p.Select)+len(p.Aggregates))
	for _, proj := range p.Select {
		labels = append(labels, proj.As)
	}
	for _, agg := range p.Aggregates {
		labels = append(labels, agg.As)
	}
	return labels
}

// TableFor returns the table bound to alias.
func (p Plan) TableFor(alias string) (domain.Table, bool) {
	if alias == p.Alias {
		return p.Table, true
	}
	for _, join := range p.Joins {
		if join.Alias == alias {
			return join.Table, true
		}
	}
	return "", false
}

// Validate checks that every column reference resolves against the catalog
// and every ordering names an output label.
func (p Plan) Validate() error {
	if _, ok := domain.LookupTable(p.Table); !ok {
		return fmt.Errorf("unknown table %q", p.Table)
	}
	check := func(ref ColumnRef) error {
		table, ok := p.TableFor(ref.Alias)
		if !ok {
			return fmt.Errorf("unknown alias %q", ref.Alias)
		}
		if _, ok := domain.LookupAttribute(domain.Attr(table, ref.Column)); !ok {
			return fmt.Errorf("unknown column %s.%s", table, ref.Column)
		}
		return nil
	}
	seen := map[string]struct{}{p.Alias: {}}
	for _, join := range p.Joins {
		if _, dup := seen[join.Alias]; dup {
			return fmt.Errorf("duplicate alias %q", join.Alias)
		}
		seen[join.Alias] = struct{}{}
		if err := check(join.Left); err != nil {
			return fmt.Errorf("join %s: %w", join.Table, err)
		}
		if err := check(join.Right); err != nil {
			return fmt.Errorf("join %s: %w", join.Table, err)
		}
	}
	for _, cond := range p.Where {
		if err := check(cond.Column); err != nil {
			return fmt.Errorf("condition: %w", err)
		}
	}
	labels := make(map[string]struct{})
	for _, proj := range p.Select {
		if err := check(proj.Column); err != nil {
			return fmt.Errorf("projection: %w", err)
		}
		labels[proj.As] = struct{}{}
	}
	for _, agg := range p.Aggregates {
		if err := check(agg.Column); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		labels[agg.As] = struct{}{}
	}
	grouped := make(map[ColumnRef]struct{}, len(p.GroupBy))
	for _, ref := range p.GroupBy {
		if err := check(ref); err != nil {
			return fmt.Errorf("group by: %w", err)
		}
		grouped[ref] = struct{}{}
	}
	if len(p.GroupBy) > 0 || len(p.Aggregates) > 0 {
		for _, proj := range p.Select {
			if _, ok := grouped[proj.Column]; !ok {
				return fmt.Errorf("projection %s is not grouped", proj.Column)
			}
		}
	}
	for _, order := range p.OrderBy {
		if _, ok := labels[order.Label]; !ok {
			return fmt.Errorf("order by unknown label %q", order.Label)
		}
	}
	return nil
}

func (p Plan) clone() Plan {
	clone := p
	clone.Joins = append([]Join(nil), p.Joins...)
	clone.Where = append([]Condition(nil), p.Where...)
	clone.Select = append([]Projection(nil), p.Select...)
	clone.Aggregates = append([]Aggregate(nil), p.Aggregates...)
	clone.GroupBy = append([]ColumnRef(nil), p.GroupBy...)
	clone.OrderBy = append([]Order(nil), p.OrderBy...)
	return clone
}
