package analytics

import (
	"encoding/json"
	"time"

	"github.com/rpattn/testbed-analytics/internal/query"
)

// SliceFields are the slice columns every listing row carries.
type SliceFields struct {
	ID          int64   `json:"id"`
	GUID        string  `json:"guid"`
	Name        string  `json:"name"`
	State       int64   `json:"state"`
	LeaseStart  *string `json:"lease_start"`
	LeaseEnd    *string `json:"lease_end"`
	ProjectUUID string  `json:"project_uuid"`
	UserUUID    string  `json:"user_uuid"`
}

// SliceView is one (slice, site) row of the default listing.
type SliceView struct {
	SliceFields
	SiteName *string `json:"site_name"`
}

// SiteGroupedSliceView is one slice row of the group_sites listing.
type SiteGroupedSliceView struct {
	SliceFields
	SiteNames []string `json:"site_names"`
}

// SliceListing is the paged slice listing envelope. Slices holds either
// []SliceView or []SiteGroupedSliceView.
type SliceListing struct {
	Page         int   `json:"page"`
	PerPage      int   `json:"per_page"`
	TotalPages   int   `json:"total_pages"`
	TotalResults int64 `json:"total_results"`
	Slices       any   `json:"slices"`
}

type UserView struct {
	ID        int64   `json:"id"`
	UserUUID  string  `json:"user_uuid"`
	UserEmail *string `json:"user_email"`
}

type ProjectView struct {
	ID          int64   `json:"id"`
	ProjectUUID string  `json:"project_uuid"`
	ProjectName *string `json:"project_name"`
}

type SliverView struct {
	ID         int64   `json:"id"`
	GUID       string  `json:"guid"`
	State      int64   `json:"state"`
	Type       string  `json:"type"`
	IPSubnet   *string `json:"ip_subnet"`
	LeaseStart *string `json:"lease_start"`
	LeaseEnd   *string `json:"lease_end"`
}

type ComponentView struct {
	GUID  string   `json:"guid"`
	Type  string   `json:"type"`
	Model string   `json:"model"`
	BDFs  []string `json:"bdfs"`
}

type InterfaceView struct {
	GUID string  `json:"guid"`
	Port string  `json:"port"`
	VLAN *string `json:"vlan"`
	BDF  *string `json:"bdf"`
}

type SlicesByProject struct {
	ProjectUUID   string `json:"project_uuid"`
	SlicesCreated int64  `json:"slices_created"`
}

type VMsByProject struct {
	ProjectUUID string `json:"project_uuid"`
	VMsCreated  int64  `json:"vms_created"`
}

type VMUsage struct {
	VMsInUse int64 `json:"vms_in_use"`
}

type ResourceUsageView struct {
	ProjectUUID *string `json:"project_uuid"`
	ProjectName *string `json:"project_name"`
	UserUUID    *string `json:"user_uuid"`
	UserEmail   *string `json:"user_email"`
	Count       int64   `json:"count"`
}

// NoData is returned in place of an empty resource usage list.
type NoData struct {
	Message string `json:"message"`
}

// NoDataFound is the resource usage empty marker.
var NoDataFound = NoData{Message: "No data found"}

type UserSlices struct {
	UserUUID      string `json:"user_uuid"`
	SlicesCreated int64  `json:"slices_created"`
}

type ActiveSlicesView struct {
	Site         string `json:"site"`
	ActiveSlices int64  `json:"active_slices"`
}

type ActiveUsers struct {
	ActiveUsers int64 `json:"active_users"`
}

type SliceFailureView struct {
	ErrorType    int64 `json:"error_type"`
	FailureCount int64 `json:"failure_count"`
}

// FormatTimestamp renders t as RFC 3339 in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sliceFields(row query.Row) SliceFields {
	return SliceFields{
		ID:          int64Of(row[query.LabelID]),
		GUID:        stringOf(row[query.LabelGUID]),
		Name:        stringOf(row[query.LabelName]),
		State:       int64Of(row[query.LabelState]),
		LeaseStart:  timestampOf(row[query.LabelLeaseStart]),
		LeaseEnd:    timestampOf(row[query.LabelLeaseEnd]),
		ProjectUUID: stringOf(row[query.LabelProjectUUID]),
		UserUUID:    stringOf(row[query.LabelUserUUID]),
	}
}

// ProjectSlices renders per-site listing rows.
func ProjectSlices(rows []query.Row) []SliceView {
	out := make([]SliceView, 0, len(rows))
	for _, row := range rows {
		out = append(out, SliceView{
			SliceFields: sliceFields(row),
			SiteName:    nullableString(row[query.LabelSiteName]),
		})
	}
	return out
}

func projectUsers(rows []query.Row) []UserView {
	out := make([]UserView, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserView{
			ID:        int64Of(row[query.LabelID]),
			UserUUID:  stringOf(row["user_uuid"]),
			UserEmail: nullableString(row["user_email"]),
		})
	}
	return out
}

func projectProjects(rows []query.Row) []ProjectView {
	out := make([]ProjectView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ProjectView{
			ID:          int64Of(row[query.LabelID]),
			ProjectUUID: stringOf(row["project_uuid"]),
			ProjectName: nullableString(row["project_name"]),
		})
	}
	return out
}

func projectSlivers(rows []query.Row) []SliverView {
	out := make([]SliverView, 0, len(rows))
	for _, row := range rows {
		out = append(out, SliverView{
			ID:         int64Of(row[query.LabelID]),
			GUID:       stringOf(row[query.LabelGUID]),
			State:      int64Of(row[query.LabelState]),
			Type:       stringOf(row["type"]),
			IPSubnet:   nullableString(row["ip_subnet"]),
			LeaseStart: timestampOf(row[query.LabelLeaseStart]),
			LeaseEnd:   timestampOf(row[query.LabelLeaseEnd]),
		})
	}
	return out
}

// sliver_id is used for ordering only and is not emitted.
func projectComponents(rows []query.Row) []ComponentView {
	out := make([]ComponentView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ComponentView{
			GUID:  stringOf(row[query.LabelGUID]),
			Type:  stringOf(row["type"]),
			Model: stringOf(row["model"]),
			BDFs:  stringsOf(row["bdfs"]),
		})
	}
	return out
}

func projectInterfaces(rows []query.Row) []InterfaceView {
	out := make([]InterfaceView, 0, len(rows))
	for _, row := range rows {
		out = append(out, InterfaceView{
			GUID: stringOf(row[query.LabelGUID]),
			Port: stringOf(row["port"]),
			VLAN: nullableString(row["vlan"]),
			BDF:  nullableString(row["bdf"]),
		})
	}
	return out
}

func projectResourceUsage(rows []query.Row) []ResourceUsageView {
	out := make([]ResourceUsageView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ResourceUsageView{
			ProjectUUID: nullableString(row[query.LabelProjectUUID]),
			ProjectName: nullableString(row[query.LabelProjectName]),
			UserUUID:    nullableString(row[query.LabelUserUUID]),
			UserEmail:   nullableString(row[query.LabelUserEmail]),
			Count:       int64Of(row[query.LabelCount]),
		})
	}
	return out
}

func projectActiveSlices(rows []query.Row) []ActiveSlicesView {
	out := make([]ActiveSlicesView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActiveSlicesView{
			Site:         stringOf(row[query.LabelSite]),
			ActiveSlices: int64Of(row[query.LabelActiveSlices]),
		})
	}
	return out
}

func projectSliceFailures(rows []query.Row) []SliceFailureView {
	out := make([]SliceFailureView, 0, len(rows))
	for _, row := range rows {
		out = append(out, SliceFailureView{
			ErrorType:    int64Of(row[query.LabelErrorType]),
			FailureCount: int64Of(row[query.LabelFailureCount]),
		})
	}
	return out
}

// scalarCount reads the single count row of an ungrouped aggregate.
func scalarCount(rows []query.Row, label string) int64 {
	if len(rows) == 0 {
		return 0
	}
	return int64Of(rows[0][label])
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case int16:
		return int64(n)
	}
	return 0
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func nullableString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func timestampOf(v any) *string {
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	s := FormatTimestamp(t)
	return &s
}

// stringsOf accepts the []string of the memory store and the decoded JSON
// values of the SQL store. Missing values render as an empty list.
func stringsOf(v any) []string {
	switch list := v.(type) {
	case []string:
		return append(make([]string, 0, len(list)), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []byte:
		var out []string
		if err := json.Unmarshal(list, &out); err == nil && out != nil {
			return out
		}
	case string:
		var out []string
		if err := json.Unmarshal([]byte(list), &out); err == nil && out != nil {
			return out
		}
	}
	return []string{}
}
