package query

import "github.com/rpattn/testbed-analytics/internal/domain"

// Output labels of the summary plans.
const (
	LabelSlicesCreated = "slices_created"
	LabelVMsCreated    = "vms_created"
	LabelVMsInUse      = "vms_in_use"
	LabelCount         = "count"
	LabelProjectName   = "project_name"
	LabelUserEmail     = "user_email"
	LabelSite          = "site"
	LabelActiveSlices  = "active_slices"
	LabelActiveUsers   = "active_users"
	LabelErrorType     = "error_type"
	LabelFailureCount  = "failure_count"
)

// All summaries share two rules. Project and user attribution always goes
// through the owning slice, never through the sliver's own copies of those
// ids. Time windows are matched against the slice lease.

func sliceLeaseOverlap(window TimeWindow) Predicate {
	return NewTimeOverlap(
		domain.Attr(domain.TableSlices, "lease_start"),
		domain.Attr(domain.TableSlices, "lease_end"),
		window,
	)
}

// ComposeSlicesByProject counts the slices of a project whose lease overlaps
// the window.
func ComposeSlicesByProject(projectUUID string, window TimeWindow) (Plan, error) {
	var preds Predicates
	preds.Add(NewEquals(domain.Attr(domain.TableProjects, "project_uuid"), projectUUID))
	preds.Add(sliceLeaseOverlap(window))

	return newBuilder(domain.TableSlices).
		joinParent(domain.TableSlices, domain.TableProjects, InnerJoin).
		where(preds).
		count(domain.TableSlices, "id", true, LabelSlicesCreated).
		build()
}

// ComposeVMsByProject counts the slivers belonging to slices of a project.
func ComposeVMsByProject(projectUUID string) (Plan, error) {
	var preds Predicates
	preds.Add(NewEquals(domain.Attr(domain.TableProjects, "project_uuid"), projectUUID))

	return newBuilder(domain.TableSlivers).
		joinParent(domain.TableSlivers, domain.TableSlices, InnerJoin).
		joinParent(domain.TableSlices, domain.TableProjects, InnerJoin).
		where(preds).
		count(domain.TableSlivers, "id", true, LabelVMsCreated).
		build()
}

// ComposeVMUsage counts slivers whose slice lease overlaps the window.
func ComposeVMUsage(window TimeWindow) (Plan, error) {
	var preds Predicates
	preds.Add(sliceLeaseOverlap(window))

	return newBuilder(domain.TableSlivers).
		joinParent(domain.TableSlivers, domain.TableSlices, InnerJoin).
		where(preds).
		count(domain.TableSlivers, "id", true, LabelVMsInUse).
		build()
}

// ResourceUsageFilter is the validated filter set of the resource usage
// summary. ComponentType is required.
type ResourceUsageFilter struct {
	ComponentType string
	Window        TimeWindow
	ProjectUUID   string
	UserUUID      string
}

// ComposeResourceUsage counts components of one type per (project, user).
//
// Components reach their owners through sliver and slice with left joins, so
// components whose slice lacks an owner are reported under a null group
// unless an owner filter is active.
func ComposeResourceUsage(filter ResourceUsageFilter) (Plan, error) {
	var preds Predicates
	preds.Add(NewEqualsFold(domain.Attr(domain.TableComponents, "type"), filter.ComponentType))
	preds.Add(sliceLeaseOverlap(filter.Window))
	preds.Add(NewEquals(domain.Attr(domain.TableProjects, "project_uuid"), filter.ProjectUUID))
	preds.Add(NewEquals(domain.Attr(domain.TableUsers, "user_uuid"), filter.UserUUID))

	return newBuilder(domain.TableComponents).
		joinParent(domain.TableComponents, domain.TableSlivers, LeftJoin).
		joinParent(domain.TableSlivers, domain.TableSlices, LeftJoin).
		joinOwnership(LeftJoin).
		where(preds).
		project(domain.TableProjects, "project_uuid", LabelProjectUUID).
		project(domain.TableProjects, "project_name", LabelProjectName).
		project(domain.TableUsers, "user_uuid", LabelUserUUID).
		project(domain.TableUsers, "user_email", LabelUserEmail).
		groupBySelection().
		count(domain.TableComponents, "component_guid", false, LabelCount).
		orderBy(LabelCount, true).
		orderBy(LabelProjectUUID, false).
		orderBy(LabelUserUUID, false).
		orderBy(LabelProjectName, false).
		orderBy(LabelUserEmail, false).
		build()
}

// ComposeUserSlices counts the slices created by a user.
func ComposeUserSlices(userUUID string) (Plan, error) {
	var preds Predicates
	preds.Add(NewEquals(domain.Attr(domain.TableUsers, "user_uuid"), userUUID))

	return newBuilder(domain.TableSlices).
		joinParent(domain.TableSlices, domain.TableUsers, InnerJoin).
		where(preds).
		count(domain.TableSlices, "id", true, LabelSlicesCreated).
		build()
}

// ComposeActiveSlicesPerSite counts distinct active slices per site. A slice
// with several slivers at one site counts once for that site.
func ComposeActiveSlicesPerSite() (Plan, error) {
	var preds Predicates
	preds.Add(NewMultiState(domain.Attr(domain.TableSlices, "state"), []int64{domain.SliceStateActive}))

	return newBuilder(domain.TableSlices).
		joinChild(domain.TableSlices, domain.TableSlivers, InnerJoin).
		joinParent(domain.TableSlivers, domain.TableSites, InnerJoin).
		where(preds).
		project(domain.TableSites, "name", LabelSite).
		groupBySelection().
		count(domain.TableSlices, "id", true, LabelActiveSlices).
		orderBy(LabelActiveSlices, true).
		orderBy(LabelSite, false).
		build()
}

// ComposeActiveUsers counts distinct users owning a slice whose lease overlaps
// the window.
func ComposeActiveUsers(window TimeWindow) (Plan, error) {
	var preds Predicates
	preds.Add(sliceLeaseOverlap(window))

	return newBuilder(domain.TableSlices).
		joinParent(domain.TableSlices, domain.TableUsers, InnerJoin).
		where(preds).
		count(domain.TableUsers, "id", true, LabelActiveUsers).
		build()
}

// ComposeSliceFailures counts slices per failure state.
func ComposeSliceFailures() (Plan, error) {
	var preds Predicates
	preds.Add(AtLeast{Attr: domain.Attr(domain.TableSlices, "state"), Min: domain.FailureStateThreshold})

	return newBuilder(domain.TableSlices).
		where(preds).
		project(domain.TableSlices, "state", LabelErrorType).
		groupBySelection().
		count(domain.TableSlices, "id", true, LabelFailureCount).
		orderBy(LabelFailureCount, true).
		orderBy(LabelErrorType, false).
		build()
}
