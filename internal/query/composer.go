package query

import (
	"github.com/rpattn/testbed-analytics/internal/domain"
)

// Output labels of the slice listing.
const (
	LabelID          = "id"
	LabelGUID        = "guid"
	LabelName        = "name"
	LabelState       = "state"
	LabelLeaseStart  = "lease_start"
	LabelLeaseEnd    = "lease_end"
	LabelProjectUUID = "project_uuid"
	LabelUserUUID    = "user_uuid"
	LabelSiteName    = "site_name"
	LabelSliceID     = "slice_id"
)

// SliceFilter is the validated filter set of a slice listing. Zero values
// mean "not filtered".
type SliceFilter struct {
	Window         TimeWindow
	States         []int64
	ProjectUUID    string
	UserUUID       string
	ComponentModel string
	ComponentType  string
	SiteName       string
}

// Predicates binds every active filter to its attribute.
func (f SliceFilter) Predicates() Predicates {
	var preds Predicates
	preds.Add(NewTimeOverlap(
		domain.Attr(domain.TableSlices, "lease_start"),
		domain.Attr(domain.TableSlices, "lease_end"),
		f.Window,
	))
	preds.Add(NewMultiState(domain.Attr(domain.TableSlices, "state"), f.States))
	preds.Add(NewEquals(domain.Attr(domain.TableProjects, "project_uuid"), f.ProjectUUID))
	preds.Add(NewEquals(domain.Attr(domain.TableUsers, "user_uuid"), f.UserUUID))
	preds.Add(NewEquals(domain.Attr(domain.TableComponents, "model"), f.ComponentModel))
	preds.Add(NewEqualsFold(domain.Attr(domain.TableComponents, "type"), f.ComponentType))
	preds.Add(NewEquals(domain.Attr(domain.TableSites, "name"), f.SiteName))
	return preds
}

// ListingOptions shapes a slice listing beyond its filters.
type ListingOptions struct {
	// Sort is the caller visible ordering. The slice id (and site name when
	// projected) always follow as tie-breaks.
	Sort *domain.SliceSort
	// GroupSites collapses the listing to one row per slice and drops the
	// site_name column. Site names are then loaded separately.
	GroupSites bool
}

var sortLabels = map[domain.SliceSortField]string{
	domain.SliceSortFieldID:         LabelID,
	domain.SliceSortFieldName:       LabelName,
	domain.SliceSortFieldState:      LabelState,
	domain.SliceSortFieldLeaseStart: LabelLeaseStart,
	domain.SliceSortFieldLeaseEnd:   LabelLeaseEnd,
}

// ComposeSliceListing builds the slice listing plan.
//
// Slices are inner joined to their project and user. Slivers, sites and
// components are left joined only when projected or filtered; a filter on
// them then requires a matching descendant. Rows are grouped by
// (slice columns, site name), so a slice appears once per distinct site it
// touches and never once per sliver or component.
func ComposeSliceListing(filter SliceFilter, opts ListingOptions) (Plan, error) {
	preds := filter.Predicates()

	b := newBuilder(domain.TableSlices).joinOwnership(InnerJoin)

	projectSites := !opts.GroupSites
	needSites := projectSites || preds.Touches(domain.TableSites)
	needComponents := preds.Touches(domain.TableComponents)
	if needSites || needComponents || preds.Touches(domain.TableSlivers) {
		b.joinChild(domain.TableSlices, domain.TableSlivers, LeftJoin)
	}
	if needSites {
		b.joinParent(domain.TableSlivers, domain.TableSites, LeftJoin)
	}
	if needComponents {
		b.joinChild(domain.TableSlivers, domain.TableComponents, LeftJoin)
	}

	b.where(preds)

	b.project(domain.TableSlices, "id", LabelID).
		project(domain.TableSlices, "slice_guid", LabelGUID).
		project(domain.TableSlices, "slice_name", LabelName).
		project(domain.TableSlices, "state", LabelState).
		project(domain.TableSlices, "lease_start", LabelLeaseStart).
		project(domain.TableSlices, "lease_end", LabelLeaseEnd).
		project(domain.TableProjects, "project_uuid", LabelProjectUUID).
		project(domain.TableUsers, "user_uuid", LabelUserUUID)
	if projectSites {
		b.project(domain.TableSites, "name", LabelSiteName)
	}
	b.groupBySelection()

	if opts.Sort != nil {
		if label, ok := sortLabels[opts.Sort.Field]; ok {
			b.orderBy(label, opts.Sort.Direction == domain.SortDirectionDesc)
		}
	}
	b.orderBy(LabelID, false)
	if projectSites {
		b.orderBy(LabelSiteName, false)
	}

	return b.build()
}

// ComposeSliceSites lists the distinct site names touched by each of the given
// slices, through their slivers.
func ComposeSliceSites(sliceIDs []int64) (Plan, error) {
	var preds Predicates
	preds.Add(NewMultiState(domain.Attr(domain.TableSlivers, "slice_id"), sliceIDs))

	b := newBuilder(domain.TableSlivers).
		joinParent(domain.TableSlivers, domain.TableSites, InnerJoin).
		where(preds).
		project(domain.TableSlivers, "slice_id", LabelSliceID).
		project(domain.TableSites, "name", LabelSiteName).
		groupBySelection().
		orderBy(LabelSliceID, false).
		orderBy(LabelSiteName, false)
	return b.build()
}

// SliverFilter restricts the sliver listing by ownership. Ownership is
// resolved through the owning slice.
type SliverFilter struct {
	ProjectUUID string
	UserUUID    string
	SliceGUID   string
}

// Predicates binds the active sliver filters.
func (f SliverFilter) Predicates() Predicates {
	var preds Predicates
	preds.Add(NewEquals(domain.Attr(domain.TableProjects, "project_uuid"), f.ProjectUUID))
	preds.Add(NewEquals(domain.Attr(domain.TableUsers, "user_uuid"), f.UserUUID))
	preds.Add(NewEquals(domain.Attr(domain.TableSlices, "slice_guid"), f.SliceGUID))
	return preds
}

// ComposeSliverListing lists slivers, optionally restricted by the owning
// slice, project or user. Every join is many-to-one so no grouping is needed.
func ComposeSliverListing(filter SliverFilter) (Plan, error) {
	preds := filter.Predicates()

	b := newBuilder(domain.TableSlivers)
	if len(preds) > 0 {
		b.joinParent(domain.TableSlivers, domain.TableSlices, InnerJoin)
	}
	if preds.Touches(domain.TableProjects) {
		b.joinParent(domain.TableSlices, domain.TableProjects, InnerJoin)
	}
	if preds.Touches(domain.TableUsers) {
		b.joinParent(domain.TableSlices, domain.TableUsers, InnerJoin)
	}
	b.where(preds)

	b.project(domain.TableSlivers, "id", LabelID).
		project(domain.TableSlivers, "sliver_guid", LabelGUID).
		project(domain.TableSlivers, "state", LabelState).
		project(domain.TableSlivers, "sliver_type", "type").
		project(domain.TableSlivers, "ip_subnet", "ip_subnet").
		project(domain.TableSlivers, "lease_start", LabelLeaseStart).
		project(domain.TableSlivers, "lease_end", LabelLeaseEnd).
		orderBy(LabelID, false)
	return b.build()
}
