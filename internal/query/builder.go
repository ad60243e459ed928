package query

import (
	"fmt"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

// builder assembles a Plan using catalog relations only, so every join in
// every plan follows an edge declared in domain.Relations. Each table appears
// at most once and always under its catalog alias.
type builder struct {
	plan   Plan
	joined map[domain.Table]string
	err    error
}

func newBuilder(grain domain.Table) *builder {
	b := &builder{joined: make(map[domain.Table]string)}
	info, ok := domain.LookupTable(grain)
	if !ok {
		b.err = fmt.Errorf("unknown grain table %q", grain)
		return b
	}
	b.plan.Table = grain
	b.plan.Alias = info.Alias
	b.joined[grain] = info.Alias
	return b
}

func (b *builder) has(table domain.Table) bool {
	_, ok := b.joined[table]
	return ok
}

// alias returns the alias of a joined table. Unjoined tables fall back to the
// catalog alias so that Plan.Validate reports the missing join.
func (b *builder) alias(table domain.Table) string {
	if alias, ok := b.joined[table]; ok {
		return alias
	}
	info, _ := domain.LookupTable(table)
	return info.Alias
}

func (b *builder) col(table domain.Table, column string) ColumnRef {
	return ColumnRef{Alias: b.alias(table), Column: column}
}

// joinParent follows a many-to-one edge from an already joined child. It
// never changes the row count for inner joins over non-null keys.
func (b *builder) joinParent(child, parent domain.Table, kind JoinKind) *builder {
	if b.err != nil || b.has(parent) {
		return b
	}
	if !b.has(child) {
		b.err = fmt.Errorf("join %s: %s is not part of the plan", parent, child)
		return b
	}
	rel, ok := domain.RelationBetween(child, parent)
	if !ok {
		b.err = fmt.Errorf("no relation from %s to %s", child, parent)
		return b
	}
	info, _ := domain.LookupTable(parent)
	b.plan.Joins = append(b.plan.Joins, Join{
		Kind:  kind,
		Table: parent,
		Alias: info.Alias,
		Left:  ColumnRef{Alias: info.Alias, Column: rel.ParentColumn},
		Right: ColumnRef{Alias: b.joined[child], Column: rel.ChildColumn},
	})
	b.joined[parent] = info.Alias
	return b
}

// joinChild follows a one-to-many edge from an already joined parent. This is
// a fan-out join; callers must group at the grain they report.
func (b *builder) joinChild(parent, child domain.Table, kind JoinKind) *builder {
	if b.err != nil || b.has(child) {
		return b
	}
	if !b.has(parent) {
		b.err = fmt.Errorf("join %s: %s is not part of the plan", child, parent)
		return b
	}
	rel, ok := domain.RelationBetween(child, parent)
	if !ok {
		b.err = fmt.Errorf("no relation from %s to %s", child, parent)
		return b
	}
	info, _ := domain.LookupTable(child)
	b.plan.Joins = append(b.plan.Joins, Join{
		Kind:  kind,
		Table: child,
		Alias: info.Alias,
		Left:  ColumnRef{Alias: info.Alias, Column: rel.ChildColumn},
		Right: ColumnRef{Alias: b.joined[parent], Column: rel.ParentColumn},
	})
	b.joined[child] = info.Alias
	return b
}

// joinOwnership attaches projects and users through slices. It is the only
// way a plan reaches ownership; slivers.project_id and slivers.user_id are
// not catalog relations.
func (b *builder) joinOwnership(kind JoinKind) *builder {
	return b.joinParent(domain.TableSlices, domain.TableProjects, kind).
		joinParent(domain.TableSlices, domain.TableUsers, kind)
}

func (b *builder) where(preds Predicates) *builder {
	for _, p := range preds {
		for _, attr := range p.Attributes() {
			if !b.has(attr.Table) && b.err == nil {
				b.err = fmt.Errorf("predicate on %s requires a join to %s", attr, attr.Table)
			}
		}
		b.plan.Where = append(b.plan.Where, p.Conditions(b.alias)...)
	}
	return b
}

func (b *builder) project(table domain.Table, column, as string) *builder {
	b.plan.Select = append(b.plan.Select, Projection{Column: b.col(table, column), As: as})
	return b
}

func (b *builder) count(table domain.Table, column string, distinct bool, as string) *builder {
	b.plan.Aggregates = append(b.plan.Aggregates, Aggregate{Column: b.col(table, column), Distinct: distinct, As: as})
	return b
}

// groupBySelection groups by every projected column, collapsing the joined
// rows to one row per distinct projection.
func (b *builder) groupBySelection() *builder {
	b.plan.GroupBy = b.plan.GroupBy[:0]
	for _, proj := range b.plan.Select {
		b.plan.GroupBy = append(b.plan.GroupBy, proj.Column)
	}
	return b
}

func (b *builder) orderBy(label string, desc bool) *builder {
	for _, existing := range b.plan.OrderBy {
		if existing.Label == label {
			return b
		}
	}
	b.plan.OrderBy = append(b.plan.OrderBy, Order{Label: label, Desc: desc})
	return b
}

func (b *builder) build() (Plan, error) {
	if b.err != nil {
		return Plan{}, b.err
	}
	if err := b.plan.Validate(); err != nil {
		return Plan{}, fmt.Errorf("invalid plan: %w", err)
	}
	return b.plan.clone(), nil
}
