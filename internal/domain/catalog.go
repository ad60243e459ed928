package domain

import "fmt"

// Table names a relation in the testbed inventory schema.
type Table string

const (
	TableSites      Table = "sites"
	TableHosts      Table = "hosts"
	TableProjects   Table = "projects"
	TableUsers      Table = "users"
	TableSlices     Table = "slices"
	TableSlivers    Table = "slivers"
	TableComponents Table = "components"
	TableInterfaces Table = "interfaces"
)

// ColumnKind describes the storage type of a column.
type ColumnKind string

const (
	KindInteger   ColumnKind = "integer"
	KindText      ColumnKind = "text"
	KindTimestamp ColumnKind = "timestamptz"
	KindJSON      ColumnKind = "jsonb"
)

// Column describes one column of a table.
type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
}

// TableInfo describes one table: its identity columns, columns and the alias
// used for it in composed queries.
type TableInfo struct {
	Name        Table
	Alias       string
	Description string
	Key         []string
	Columns     []Column
}

// Column looks up a column by name.
func (t TableInfo) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Relation is a many-to-one edge: every Child row references at most one
// Parent row through ChildColumn = ParentColumn. Read from the parent side it
// is one-to-many and therefore a fan-out join.
type Relation struct {
	Child        Table
	ChildColumn  string
	Parent       Table
	ParentColumn string
}

// Attribute addresses one column of one table.
type Attribute struct {
	Table  Table
	Column string
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s.%s", a.Table, a.Column)
}

// Attr is shorthand for building an Attribute.
func Attr(table Table, column string) Attribute {
	return Attribute{Table: table, Column: column}
}

var tables = []TableInfo{
	{
		Name:        TableSites,
		Alias:       "st",
		Description: "Racks. Created by the inventory process, never mutated by the engine.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "name", Kind: KindText},
		},
	},
	{
		Name:        TableHosts,
		Alias:       "h",
		Description: "Worker nodes. hosts.site_id = sites.id.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "site_id", Kind: KindInteger, Nullable: true},
			{Name: "name", Kind: KindText},
		},
	},
	{
		Name:        TableProjects,
		Alias:       "p",
		Description: "Projects. project_uuid is the external identity.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "project_uuid", Kind: KindText},
			{Name: "project_name", Kind: KindText, Nullable: true},
		},
	},
	{
		Name:        TableUsers,
		Alias:       "u",
		Description: "Users. user_uuid is the external identity.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "user_uuid", Kind: KindText},
			{Name: "user_email", Kind: KindText, Nullable: true},
		},
	},
	{
		Name:        TableSlices,
		Alias:       "s",
		Description: "Slices. Ownership (project_id, user_id) is authoritative here.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "project_id", Kind: KindInteger, Nullable: true},
			{Name: "user_id", Kind: KindInteger, Nullable: true},
			{Name: "slice_guid", Kind: KindText},
			{Name: "slice_name", Kind: KindText},
			{Name: "state", Kind: KindInteger},
			{Name: "lease_start", Kind: KindTimestamp, Nullable: true},
			{Name: "lease_end", Kind: KindTimestamp, Nullable: true},
		},
	},
	{
		Name:        TableSlivers,
		Alias:       "sv",
		Description: "Slivers. project_id and user_id are denormalized copies and are never used as join paths.",
		Key:         []string{"id"},
		Columns: []Column{
			{Name: "id", Kind: KindInteger},
			{Name: "project_id", Kind: KindInteger, Nullable: true},
			{Name: "slice_id", Kind: KindInteger, Nullable: true},
			{Name: "user_id", Kind: KindInteger, Nullable: true},
			{Name: "host_id", Kind: KindInteger, Nullable: true},
			{Name: "site_id", Kind: KindInteger, Nullable: true},
			{Name: "sliver_guid", Kind: KindText},
			{Name: "state", Kind: KindInteger},
			{Name: "sliver_type", Kind: KindText},
			{Name: "ip_subnet", Kind: KindText, Nullable: true},
			{Name: "image", Kind: KindText, Nullable: true},
			{Name: "core", Kind: KindInteger, Nullable: true},
			{Name: "ram", Kind: KindInteger, Nullable: true},
			{Name: "disk", Kind: KindInteger, Nullable: true},
			{Name: "bandwidth", Kind: KindInteger, Nullable: true},
			{Name: "lease_start", Kind: KindTimestamp, Nullable: true},
			{Name: "lease_end", Kind: KindTimestamp, Nullable: true},
		},
	},
	{
		Name:        TableComponents,
		Alias:       "c",
		Description: "Components. Identity is (sliver_id, component_guid).",
		Key:         []string{"sliver_id", "component_guid"},
		Columns: []Column{
			{Name: "sliver_id", Kind: KindInteger},
			{Name: "component_guid", Kind: KindText},
			{Name: "type", Kind: KindText},
			{Name: "model", Kind: KindText},
			{Name: "bdfs", Kind: KindJSON, Nullable: true},
		},
	},
	{
		Name:        TableInterfaces,
		Alias:       "i",
		Description: "Interfaces. Identity is (sliver_id, interface_guid).",
		Key:         []string{"sliver_id", "interface_guid"},
		Columns: []Column{
			{Name: "sliver_id", Kind: KindInteger},
			{Name: "interface_guid", Kind: KindText},
			{Name: "port", Kind: KindText},
			{Name: "vlan", Kind: KindText, Nullable: true},
			{Name: "bdf", Kind: KindText, Nullable: true},
		},
	},
}

// Sliver ownership columns are deliberately absent: project and user are
// reached through slices.
var relations = []Relation{
	{Child: TableHosts, ChildColumn: "site_id", Parent: TableSites, ParentColumn: "id"},
	{Child: TableSlices, ChildColumn: "project_id", Parent: TableProjects, ParentColumn: "id"},
	{Child: TableSlices, ChildColumn: "user_id", Parent: TableUsers, ParentColumn: "id"},
	{Child: TableSlivers, ChildColumn: "slice_id", Parent: TableSlices, ParentColumn: "id"},
	{Child: TableSlivers, ChildColumn: "site_id", Parent: TableSites, ParentColumn: "id"},
	{Child: TableSlivers, ChildColumn: "host_id", Parent: TableHosts, ParentColumn: "id"},
	{Child: TableComponents, ChildColumn: "sliver_id", Parent: TableSlivers, ParentColumn: "id"},
	{Child: TableInterfaces, ChildColumn: "sliver_id", Parent: TableSlivers, ParentColumn: "id"},
}

var tableIndex = func() map[Table]TableInfo {
	index := make(map[Table]TableInfo, len(tables))
	for _, t := range tables {
		index[t.Name] = t
	}
	return index
}()

// Tables returns every table of the catalog in declaration order.
func Tables() []TableInfo {
	return append([]TableInfo(nil), tables...)
}

// LookupTable returns the description of a table.
func LookupTable(name Table) (TableInfo, bool) {
	info, ok := tableIndex[name]
	return info, ok
}

// LookupAttribute reports whether the attribute exists and returns its column.
func LookupAttribute(attr Attribute) (Column, bool) {
	info, ok := tableIndex[attr.Table]
	if !ok {
		return Column{}, false
	}
	return info.Column(attr.Column)
}

// RelationBetween returns the many-to-one relation from child to parent.
func RelationBetween(child, parent Table) (Relation, bool) {
	for _, rel := range relations {
		if rel.Child == child && rel.Parent == parent {
			return rel, true
		}
	}
	return Relation{}, false
}
