package query

import (
	"sort"
	"time"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

// TimeWindow is a request supplied interval. Either bound may be open.
type TimeWindow struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether neither bound is set.
func (w TimeWindow) IsZero() bool {
	return w.Start == nil && w.End == nil
}

// Predicate is one filter bound to entity attributes. Predicates combine with
// AND only.
type Predicate interface {
	// Attributes lists the entity attributes the predicate reads.
	Attributes() []domain.Attribute
	// Conditions renders the predicate against the aliases of a plan.
	Conditions(alias func(domain.Table) string) []Condition
}

// TimeOverlap keeps records whose lease interval intersects the window. An
// open window bound drops the matching comparison; a NULL lease bound never
// matches a comparison that is present.
type TimeOverlap struct {
	LeaseStart domain.Attribute
	LeaseEnd   domain.Attribute
	Window     TimeWindow
}

// NewTimeOverlap returns nil when the window has no bounds.
func NewTimeOverlap(leaseStart, leaseEnd domain.Attribute, window TimeWindow) Predicate {
	if window.IsZero() {
		return nil
	}
	return TimeOverlap{LeaseStart: leaseStart, LeaseEnd: leaseEnd, Window: window}
}

func (t TimeOverlap) Attributes() []domain.Attribute {
	return []domain.Attribute{t.LeaseStart, t.LeaseEnd}
}

func (t TimeOverlap) Conditions(alias func(domain.Table) string) []Condition {
	var conds []Condition
	if t.Window.End != nil {
		conds = append(conds, Condition{
			Column: ColumnRef{Alias: alias(t.LeaseStart.Table), Column: t.LeaseStart.Column},
			Op:     OpLTE,
			Value:  *t.Window.End,
		})
	}
	if t.Window.Start != nil {
		conds = append(conds, Condition{
			Column: ColumnRef{Alias: alias(t.LeaseEnd.Table), Column: t.LeaseEnd.Column},
			Op:     OpGTE,
			Value:  *t.Window.Start,
		})
	}
	return conds
}

// MultiState keeps records whose state is one of Values.
type MultiState struct {
	Attr   domain.Attribute
	Values []int64
}

// NewMultiState returns nil for an empty set. Values are deduplicated and
// sorted so equal sets render equal plans.
func NewMultiState(attr domain.Attribute, values []int64) Predicate {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(values))
	unique := make([]int64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return MultiState{Attr: attr, Values: unique}
}

func (m MultiState) Attributes() []domain.Attribute {
	return []domain.Attribute{m.Attr}
}

func (m MultiState) Conditions(alias func(domain.Table) string) []Condition {
	return []Condition{{
		Column: ColumnRef{Alias: alias(m.Attr.Table), Column: m.Attr.Column},
		Op:     OpIn,
		Value:  append([]int64(nil), m.Values...),
	}}
}

// Equals keeps records whose attribute matches Value exactly, or ignoring
// case when FoldCase is set.
type Equals struct {
	Attr     domain.Attribute
	Value    string
	FoldCase bool
}

// NewEquals returns nil for an empty value.
func NewEquals(attr domain.Attribute, value string) Predicate {
	if value == "" {
		return nil
	}
	return Equals{Attr: attr, Value: value}
}

// NewEqualsFold is NewEquals with case-insensitive comparison.
func NewEqualsFold(attr domain.Attribute, value string) Predicate {
	if value == "" {
		return nil
	}
	return Equals{Attr: attr, Value: value, FoldCase: true}
}

func (e Equals) Attributes() []domain.Attribute {
	return []domain.Attribute{e.Attr}
}

func (e Equals) Conditions(alias func(domain.Table) string) []Condition {
	op := OpEq
	if e.FoldCase {
		op = OpEqFold
	}
	return []Condition{{
		Column: ColumnRef{Alias: alias(e.Attr.Table), Column: e.Attr.Column},
		Op:     op,
		Value:  e.Value,
	}}
}

// AtLeast keeps records whose integer attribute is >= Min. It backs the
// failure-state convention rather than a request parameter.
type AtLeast struct {
	Attr domain.Attribute
	Min  int64
}

func (a AtLeast) Attributes() []domain.Attribute {
	return []domain.Attribute{a.Attr}
}

func (a AtLeast) Conditions(alias func(domain.Table) string) []Condition {
	return []Condition{{
		Column: ColumnRef{Alias: alias(a.Attr.Table), Column: a.Attr.Column},
		Op:     OpGTE,
		Value:  a.Min,
	}}
}

// Predicates is a conjunction. Add ignores absent (nil) predicates.
type Predicates []Predicate

// Add appends p when it is present.
func (ps *Predicates) Add(p Predicate) {
	if p == nil {
		return
	}
	*ps = append(*ps, p)
}

// Touches reports whether any predicate reads an attribute of table.
func (ps Predicates) Touches(table domain.Table) bool {
	for _, p := range ps {
		for _, attr := range p.Attributes() {
			if attr.Table == table {
				return true
			}
		}
	}
	return false
}
