package query

import "github.com/rpattn/testbed-analytics/internal/domain"

// ComposeUserListing lists every user ordered by id.
func ComposeUserListing() (Plan, error) {
	return newBuilder(domain.TableUsers).
		project(domain.TableUsers, "id", LabelID).
		project(domain.TableUsers, "user_uuid", "user_uuid").
		project(domain.TableUsers, "user_email", "user_email").
		orderBy(LabelID, false).
		build()
}

// ComposeProjectListing lists every project ordered by id.
func ComposeProjectListing() (Plan, error) {
	return newBuilder(domain.TableProjects).
		project(domain.TableProjects, "id", LabelID).
		project(domain.TableProjects, "project_uuid", "project_uuid").
		project(domain.TableProjects, "project_name", "project_name").
		orderBy(LabelID, false).
		build()
}

// ComposeComponentListing lists every component ordered by its identity.
func ComposeComponentListing() (Plan, error) {
	return newBuilder(domain.TableComponents).
		project(domain.TableComponents, "sliver_id", "sliver_id").
		project(domain.TableComponents, "component_guid", LabelGUID).
		project(domain.TableComponents, "type", "type").
		project(domain.TableComponents, "model", "model").
		project(domain.TableComponents, "bdfs", "bdfs").
		orderBy("sliver_id", false).
		orderBy(LabelGUID, false).
		build()
}

// ComposeInterfaceListing lists every interface ordered by its identity.
func ComposeInterfaceListing() (Plan, error) {
	return newBuilder(domain.TableInterfaces).
		project(domain.TableInterfaces, "sliver_id", "sliver_id").
		project(domain.TableInterfaces, "interface_guid", LabelGUID).
		project(domain.TableInterfaces, "port", "port").
		project(domain.TableInterfaces, "vlan", "vlan").
		project(domain.TableInterfaces, "bdf", "bdf").
		orderBy("sliver_id", false).
		orderBy(LabelGUID, false).
		build()
}
