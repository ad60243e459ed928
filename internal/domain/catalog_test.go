package domain

import "testing"

func TestRelationsReferenceCatalogColumns(t *testing.T) {
	for _, rel := range relations {
		child, ok := LookupTable(rel.Child)
		if !ok {
			t.Fatalf("relation child %s is not a catalog table", rel.Child)
		}
		if _, ok := child.Column(rel.ChildColumn); !ok {
			t.Fatalf("%s.%s is not a catalog column", rel.Child, rel.ChildColumn)
		}
		parent, ok := LookupTable(rel.Parent)
		if !ok {
			t.Fatalf("relation parent %s is not a catalog table", rel.Parent)
		}
		if _, ok := parent.Column(rel.ParentColumn); !ok {
			t.Fatalf("%s.%s is not a catalog column", rel.Parent, rel.ParentColumn)
		}
	}
}

func TestRelationBetween_OwnershipGoesThroughSlices(t *testing.T) {
	if _, ok := RelationBetween(TableSlivers, TableSlices); !ok {
		t.Fatalf("expected slivers -> slices relation")
	}
	if _, ok := RelationBetween(TableSlivers, TableProjects); ok {
		t.Fatalf("slivers must not join projects directly")
	}
	if _, ok := RelationBetween(TableSlivers, TableUsers); ok {
		t.Fatalf("slivers must not join users directly")
	}
}
