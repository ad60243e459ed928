// Package memstore evaluates query plans over an in-memory dataset. It backs
// the "memory" store driver and the engine level tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/testbed-analytics/internal/query"
)

// Store is a read-only query.Executor over a Dataset.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]record
}

// New builds a store from a dataset.
func New(ds Dataset) *Store {
	s := &Store{tables: make(map[string][]record)}
	for table, rows := range ds.tables() {
		s.tables[string(table)] = rows
	}
	return s
}

// Ping reports whether the store can serve queries.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Query evaluates the plan and returns its rows.
func (s *Store) Query(ctx context.Context, plan query.Plan) ([]query.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate plan: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	joined := s.join(plan)
	filtered := joined[:0:0]
	for _, rec := range joined {
		if matchesAll(rec, plan.Where) {
			filtered = append(filtered, rec)
		}
	}

	var rows []query.Row
	if len(plan.GroupBy) > 0 || len(plan.Aggregates) > 0 {
		rows = aggregate(plan, filtered)
	} else {
		rows = make([]query.Row, 0, len(filtered))
		for _, rec := range filtered {
			rows = append(rows, project(plan, rec))
		}
	}

	sortRows(rows, plan.OrderBy)
	return paginate(rows, plan.Limit, plan.Offset), nil
}

// Count returns the number of rows the plan yields without paging.
func (s *Store) Count(ctx context.Context, plan query.Plan) (int64, error) {
	rows, err := s.Query(ctx, plan.Unpaged())
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// joinedRecord maps plan aliases to table rows. A nil row is a left join miss.
type joinedRecord map[string]record

func (r joinedRecord) value(ref query.ColumnRef) any {
	row := r[ref.Alias]
	if row == nil {
		return nil
	}
	return row[ref.Column]
}

func (r joinedRecord) with(alias string, row record) joinedRecord {
	out := make(joinedRecord, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[alias] = row
	return out
}

func (s *Store) join(plan query.Plan) []joinedRecord {
	base := s.tables[string(plan.Table)]
	records := make([]joinedRecord, 0, len(base))
	for _, row := range base {
		records = append(records, joinedRecord{plan.Alias: row})
	}

	for _, join := range plan.Joins {
		index := make(map[string][]record)
		for _, row := range s.tables[string(join.Table)] {
			v := row[join.Left.Column]
			if v == nil {
				continue
			}
			key := keyOf(v)
			index[key] = append(index[key], row)
		}

		next := make([]joinedRecord, 0, len(records))
		for _, rec := range records {
			var matches []record
			if v := rec.value(join.Right); v != nil {
				matches = index[keyOf(v)]
			}
			if len(matches) == 0 {
				if join.Kind == query.LeftJoin {
					next = append(next, rec.with(join.Alias, nil))
				}
				continue
			}
			for _, match := range matches {
				next = append(next, rec.with(join.Alias, match))
			}
		}
		records = next
	}
	return records
}

func matchesAll(rec joinedRecord, conds []query.Condition) bool {
	for _, cond := range conds {
		if !matches(rec.value(cond.Column), cond) {
			return false
		}
	}
	return true
}

func matches(v any, cond query.Condition) bool {
	if v == nil {
		return false
	}
	switch cond.Op {
	case query.OpEq:
		cmp, ok := compare(v, cond.Value)
		return ok && cmp == 0
	case query.OpEqFold:
		left, lok := v.(string)
		right, rok := cond.Value.(string)
		return lok && rok && strings.EqualFold(left, right)
	case query.OpIn:
		values, ok := cond.Value.([]int64)
		if !ok {
			return false
		}
		for _, candidate := range values {
			if cmp, ok := compare(v, candidate); ok && cmp == 0 {
				return true
			}
		}
		return false
	case query.OpGTE:
		cmp, ok := compare(v, cond.Value)
		return ok && cmp >= 0
	case query.OpLTE:
		cmp, ok := compare(v, cond.Value)
		return ok && cmp <= 0
	}
	return false
}

func project(plan query.Plan, rec joinedRecord) query.Row {
	row := make(query.Row, len(plan.Select))
	for _, proj := range plan.Select {
		row[proj.As] = rec.value(proj.Column)
	}
	return row
}

type group struct {
	first    joinedRecord
	distinct []map[string]struct{}
	counts   []int64
}

func aggregate(plan query.Plan, records []joinedRecord) []query.Row {
	var order []string
	groups := make(map[string]*group)
	newGroup := func(first joinedRecord) *group {
		g := &group{
			first:    first,
			distinct: make([]map[string]struct{}, len(plan.Aggregates)),
			counts:   make([]int64, len(plan.Aggregates)),
		}
		for i := range g.distinct {
			g.distinct[i] = make(map[string]struct{})
		}
		return g
	}

	for _, rec := range records {
		parts := make([]string, 0, len(plan.GroupBy))
		for _, ref := range plan.GroupBy {
			parts = append(parts, keyOf(rec.value(ref)))
		}
		key := strings.Join(parts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = newGroup(rec)
			groups[key] = g
			order = append(order, key)
		}
		for i, agg := range plan.Aggregates {
			v := rec.value(agg.Column)
			if v == nil {
				continue
			}
			if agg.Distinct {
				g.distinct[i][keyOf(v)] = struct{}{}
				continue
			}
			g.counts[i]++
		}
	}

	// An ungrouped aggregate always yields one row.
	if len(plan.GroupBy) == 0 && len(order) == 0 {
		groups[""] = newGroup(joinedRecord{})
		order = append(order, "")
	}

	rows := make([]query.Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := project(plan, g.first)
		for i, agg := range plan.Aggregates {
			if agg.Distinct {
				row[agg.As] = int64(len(g.distinct[i]))
			} else {
				row[agg.As] = g.counts[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// sortRows orders rows by the given labels. Nulls sort last in both
// directions, matching NULLS LAST in the SQL executor.
func sortRows(rows []query.Row, orders []query.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, order := range orders {
			a, b := rows[i][order.Label], rows[j][order.Label]
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return false
			case b == nil:
				return true
			}
			cmp, ok := compare(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func paginate(rows []query.Row, limit, offset int) []query.Row {
	if offset < 0 {
		offset = 0
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// compare orders two non-null values of the same kind.
func compare(a, b any) (int, bool) {
	if x, ok := toInt64(a); ok {
		y, ok := toInt64(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

func keyOf(v any) string {
	if v == nil {
		return "\x00"
	}
	if n, ok := toInt64(v); ok {
		return fmt.Sprintf("i:%d", n)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
