// Package analytics answers the testbed allocation queries: it validates
// request parameters, composes query plans, runs them on the configured store
// and projects the rows into response shapes.
package analytics

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/domain"
	"github.com/rpattn/testbed-analytics/internal/entityloader"
	"github.com/rpattn/testbed-analytics/internal/query"
)

// Store is the read-only backend a Service queries.
type Store interface {
	query.Executor
	Ping(ctx context.Context) error
}

// Service implements every analytics operation. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Executor exposes the store to request-scoped helpers such as loaders.
func (s *Service) Executor() query.Executor {
	return s.store
}

// SliceListRequest carries the raw /slices parameters.
type SliceListRequest struct {
	StartTime      string   `form:"start_time"`
	EndTime        string   `form:"end_time"`
	State          []string `form:"state"`
	ProjectUUID    string   `form:"project_uuid"`
	UserUUID       string   `form:"user_uuid"`
	ComponentModel string   `form:"component_model"`
	ComponentType  string   `form:"component_type"`
	SiteName       string   `form:"site_name"`
	Page           string   `form:"page"`
	PerPage        string   `form:"per_page"`
	SortBy         string   `form:"sort_by"`
	SortDir        string   `form:"sort_dir"`
	GroupSites     string   `form:"group_sites"`
}

// ParsedSliceListing is a validated slice listing request.
type ParsedSliceListing struct {
	Filter  query.SliceFilter
	Options query.ListingOptions
	Page    query.PageRequest
}

// ParseSliceListing validates every /slices parameter. It runs before any
// plan is composed.
func ParseSliceListing(req SliceListRequest) (ParsedSliceListing, error) {
	var parsed ParsedSliceListing
	window, err := query.ParseTimeWindow(req.StartTime, req.EndTime, false)
	if err != nil {
		return parsed, err
	}
	states, err := query.ParseStates(req.State)
	if err != nil {
		return parsed, err
	}
	projectUUID, err := query.ParseUUID("project_uuid", req.ProjectUUID, false)
	if err != nil {
		return parsed, err
	}
	userUUID, err := query.ParseUUID("user_uuid", req.UserUUID, false)
	if err != nil {
		return parsed, err
	}
	page, err := query.ParsePage(req.Page, req.PerPage)
	if err != nil {
		return parsed, err
	}
	sort, err := query.ParseSort(req.SortBy, req.SortDir)
	if err != nil {
		return parsed, err
	}
	groupSites, err := parseFlag("group_sites", req.GroupSites)
	if err != nil {
		return parsed, err
	}

	parsed.Filter = query.SliceFilter{
		Window:         window,
		States:         states,
		ProjectUUID:    projectUUID,
		UserUUID:       userUUID,
		ComponentModel: strings.TrimSpace(req.ComponentModel),
		ComponentType:  strings.TrimSpace(req.ComponentType),
		SiteName:       strings.TrimSpace(req.SiteName),
	}
	parsed.Options = query.ListingOptions{Sort: sort, GroupSites: groupSites}
	parsed.Page = page
	return parsed, nil
}

// ListSlices returns one page of the filtered slice listing.
func (s *Service) ListSlices(ctx context.Context, req SliceListRequest) (SliceListing, error) {
	parsed, err := ParseSliceListing(req)
	if err != nil {
		return SliceListing{}, err
	}
	plan, err := query.ComposeSliceListing(parsed.Filter, parsed.Options)
	if err != nil {
		return SliceListing{}, err
	}
	page, err := query.Paginate(ctx, s.store, plan, parsed.Page)
	if err != nil {
		return SliceListing{}, s.upstream("list slices", err)
	}

	listing := SliceListing{
		Page:         page.Page,
		PerPage:      page.PerPage,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
	}
	if !parsed.Options.GroupSites {
		listing.Slices = ProjectSlices(page.Rows)
		return listing, nil
	}

	grouped, err := s.withSiteNames(ctx, page.Rows)
	if err != nil {
		return SliceListing{}, s.upstream("list slice sites", err)
	}
	listing.Slices = grouped
	return listing, nil
}

func (s *Service) withSiteNames(ctx context.Context, rows []query.Row) ([]SiteGroupedSliceView, error) {
	out := make([]SiteGroupedSliceView, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		fields := sliceFields(row)
		ids = append(ids, fields.ID)
		out = append(out, SiteGroupedSliceView{SliceFields: fields, SiteNames: []string{}})
	}
	if len(ids) == 0 {
		return out, nil
	}

	loader := entityloader.SiteLoaderFromContext(ctx)
	if loader == nil {
		loader = entityloader.NewSiteLoader(s.store)
	}
	names, err := loader.LoadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if names[i] != nil {
			out[i].SiteNames = names[i]
		}
	}
	return out, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	rows, err := s.run(ctx, "list users", query.ComposeUserListing)
	if err != nil {
		return nil, err
	}
	return projectUsers(rows), nil
}

func (s *Service) ListProjects(ctx context.Context) ([]ProjectView, error) {
	rows, err := s.run(ctx, "list projects", query.ComposeProjectListing)
	if err != nil {
		return nil, err
	}
	return projectProjects(rows), nil
}

// SliverListRequest carries the raw /slivers parameters.
type SliverListRequest struct {
	ProjectUUID string `form:"project_uuid"`
	UserUUID    string `form:"user_uuid"`
	SliceGUID   string `form:"slice_guid"`
}

// ListSlivers lists slivers, optionally restricted by the owning slice,
// project or user.
func (s *Service) ListSlivers(ctx context.Context, req SliverListRequest) ([]SliverView, error) {
	projectUUID, err := query.ParseUUID("project_uuid", req.ProjectUUID, false)
	if err != nil {
		return nil, err
	}
	userUUID, err := query.ParseUUID("user_uuid", req.UserUUID, false)
	if err != nil {
		return nil, err
	}
	filter := query.SliverFilter{
		ProjectUUID: projectUUID,
		UserUUID:    userUUID,
		SliceGUID:   strings.TrimSpace(req.SliceGUID),
	}
	rows, err := s.run(ctx, "list slivers", func() (query.Plan, error) {
		return query.ComposeSliverListing(filter)
	})
	if err != nil {
		return nil, err
	}
	return projectSlivers(rows), nil
}

func (s *Service) ListComponents(ctx context.Context) ([]ComponentView, error) {
	rows, err := s.run(ctx, "list components", query.ComposeComponentListing)
	if err != nil {
		return nil, err
	}
	return projectComponents(rows), nil
}

func (s *Service) ListInterfaces(ctx context.Context) ([]InterfaceView, error) {
	rows, err := s.run(ctx, "list interfaces", query.ComposeInterfaceListing)
	if err != nil {
		return nil, err
	}
	return projectInterfaces(rows), nil
}

// TimeRangeRequest carries an optional or required start_time/end_time pair.
type TimeRangeRequest struct {
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
}

type SlicesByProjectRequest struct {
	ProjectUUID string `form:"project_uuid"`
	StartTime   string `form:"start_time"`
	EndTime     string `form:"end_time"`
}

func (s *Service) SlicesByProject(ctx context.Context, req SlicesByProjectRequest) (SlicesByProject, error) {
	projectUUID, err := query.ParseUUID("project_uuid", req.ProjectUUID, true)
	if err != nil {
		return SlicesByProject{}, err
	}
	window, err := query.ParseTimeWindow(req.StartTime, req.EndTime, false)
	if err != nil {
		return SlicesByProject{}, err
	}
	rows, err := s.run(ctx, "count slices by project", func() (query.Plan, error) {
		return query.ComposeSlicesByProject(projectUUID, window)
	})
	if err != nil {
		return SlicesByProject{}, err
	}
	return SlicesByProject{ProjectUUID: projectUUID, SlicesCreated: scalarCount(rows, query.LabelSlicesCreated)}, nil
}

type ProjectRequest struct {
	ProjectUUID string `form:"project_uuid"`
}

func (s *Service) VMsByProject(ctx context.Context, req ProjectRequest) (VMsByProject, error) {
	projectUUID, err := query.ParseUUID("project_uuid", req.ProjectUUID, true)
	if err != nil {
		return VMsByProject{}, err
	}
	rows, err := s.run(ctx, "count vms by project", func() (query.Plan, error) {
		return query.ComposeVMsByProject(projectUUID)
	})
	if err != nil {
		return VMsByProject{}, err
	}
	return VMsByProject{ProjectUUID: projectUUID, VMsCreated: scalarCount(rows, query.LabelVMsCreated)}, nil
}

// VMUsage counts slivers of slices whose lease overlaps a required window.
func (s *Service) VMUsage(ctx context.Context, req TimeRangeRequest) (VMUsage, error) {
	window, err := query.ParseTimeWindow(req.StartTime, req.EndTime, true)
	if err != nil {
		return VMUsage{}, err
	}
	rows, err := s.run(ctx, "count vm usage", func() (query.Plan, error) {
		return query.ComposeVMUsage(window)
	})
	if err != nil {
		return VMUsage{}, err
	}
	return VMUsage{VMsInUse: scalarCount(rows, query.LabelVMsInUse)}, nil
}

type ResourceUsageRequest struct {
	ComponentType string `form:"component_type"`
	StartTime     string `form:"start_time"`
	EndTime       string `form:"end_time"`
	ProjectUUID   string `form:"project_uuid"`
	UserUUID      string `form:"user_uuid"`
}

// ResourceUsage returns []ResourceUsageView, or NoDataFound when nothing
// matches.
func (s *Service) ResourceUsage(ctx context.Context, req ResourceUsageRequest) (any, error) {
	componentType := strings.TrimSpace(req.ComponentType)
	if componentType == "" {
		return nil, domain.InvalidArgument("component_type is required")
	}
	window, err := query.ParseTimeWindow(req.StartTime, req.EndTime, false)
	if err != nil {
		return nil, err
	}
	projectUUID, err := query.ParseUUID("project_uuid", req.ProjectUUID, false)
	if err != nil {
		return nil, err
	}
	userUUID, err := query.ParseUUID("user_uuid", req.UserUUID, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.run(ctx, "summarize resource usage", func() (query.Plan, error) {
		return query.ComposeResourceUsage(query.ResourceUsageFilter{
			ComponentType: componentType,
			Window:        window,
			ProjectUUID:   projectUUID,
			UserUUID:      userUUID,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return NoDataFound, nil
	}
	return projectResourceUsage(rows), nil
}

type UserRequest struct {
	UserUUID string `form:"user_uuid"`
}

func (s *Service) UserSlices(ctx context.Context, req UserRequest) (UserSlices, error) {
	userUUID, err := query.ParseUUID("user_uuid", req.UserUUID, true)
	if err != nil {
		return UserSlices{}, err
	}
	rows, err := s.run(ctx, "count user slices", func() (query.Plan, error) {
		return query.ComposeUserSlices(userUUID)
	})
	if err != nil {
		return UserSlices{}, err
	}
	return UserSlices{UserUUID: userUUID, SlicesCreated: scalarCount(rows, query.LabelSlicesCreated)}, nil
}

func (s *Service) ActiveSlicesPerSite(ctx context.Context) ([]ActiveSlicesView, error) {
	rows, err := s.run(ctx, "count active slices per site", query.ComposeActiveSlicesPerSite)
	if err != nil {
		return nil, err
	}
	return projectActiveSlices(rows), nil
}

func (s *Service) ActiveUsers(ctx context.Context, req TimeRangeRequest) (ActiveUsers, error) {
	window, err := query.ParseTimeWindow(req.StartTime, req.EndTime, true)
	if err != nil {
		return ActiveUsers{}, err
	}
	rows, err := s.run(ctx, "count active users", func() (query.Plan, error) {
		return query.ComposeActiveUsers(window)
	})
	if err != nil {
		return ActiveUsers{}, err
	}
	return ActiveUsers{ActiveUsers: scalarCount(rows, query.LabelActiveUsers)}, nil
}

func (s *Service) SliceFailures(ctx context.Context) ([]SliceFailureView, error) {
	rows, err := s.run(ctx, "count slice failures", query.ComposeSliceFailures)
	if err != nil {
		return nil, err
	}
	return projectSliceFailures(rows), nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return s.upstream("ping store", err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, op string, compose func() (query.Plan, error)) ([]query.Row, error) {
	plan, err := compose()
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx, plan)
	if err != nil {
		return nil, s.upstream(op, err)
	}
	return rows, nil
}

// upstream logs the store error and hides it behind an UpstreamFailure.
func (s *Service) upstream(op string, err error) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) {
		s.logger.Warn("store call cancelled", zap.String("op", op))
	} else {
		s.logger.Error("store call failed", zap.String("op", op), zap.Error(err))
	}
	return domain.UpstreamFailure(op, err)
}

func parseFlag(name, raw string) (bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return false, nil
	}
	flag, err := strconv.ParseBool(value)
	if err != nil {
		return false, domain.InvalidArgument("%s must be a boolean", name)
	}
	return flag, nil
}
