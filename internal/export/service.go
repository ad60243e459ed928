package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/analytics"
	"github.com/rpattn/testbed-analytics/internal/domain"
	"github.com/rpattn/testbed-analytics/internal/query"
)

const (
	defaultPageSize = 1000
	sheetName       = "slices"
)

var sliceHeaders = []string{
	"id", "guid", "name", "state", "lease_start", "lease_end", "project_uuid", "user_uuid", "site_name",
}

// Service writes the slice listing as an XLSX workbook.
type Service struct {
	exec     query.Executor
	logger   *zap.Logger
	pageSize int
}

type Option func(*Service)

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func NewService(exec query.Executor, logger *zap.Logger, opts ...Option) *Service {
	service := &Service{exec: exec, logger: logger, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(service)
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service
}

// PrepareSlices validates the request and returns the listing plan the export
// walks. page, per_page and group_sites are ignored: the export always holds
// every per-site row.
func (s *Service) PrepareSlices(req analytics.SliceListRequest) (query.Plan, error) {
	req.Page, req.PerPage, req.GroupSites = "", "", ""
	parsed, err := analytics.ParseSliceListing(req)
	if err != nil {
		return query.Plan{}, err
	}
	return query.ComposeSliceListing(parsed.Filter, parsed.Options)
}

// WriteSlices streams every row of the plan into an XLSX workbook written to w.
// It returns the number of data rows written.
func (s *Service) WriteSlices(ctx context.Context, plan query.Plan, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(sliceHeaders))
	for i, h := range sliceHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	offset := 0
	for {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		rows, err := s.exec.Query(ctx, plan.WithPage(s.pageSize, offset))
		if err != nil {
			s.logger.Error("export page failed", zap.Int("offset", offset), zap.Error(err))
			return written, domain.UpstreamFailure("export slices", err)
		}
		for _, view := range analytics.ProjectSlices(rows) {
			cell, err := excelize.CoordinatesToCellName(1, written+2)
			if err != nil {
				return written, fmt.Errorf("cell name: %w", err)
			}
			if err := sw.SetRow(cell, sliceRow(view)); err != nil {
				return written, fmt.Errorf("write row %d: %w", written+1, err)
			}
			written++
		}
		if len(rows) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	if err := sw.Flush(); err != nil {
		return written, fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return written, fmt.Errorf("write workbook: %w", err)
	}
	return written, nil
}

func sliceRow(view analytics.SliceView) []any {
	return []any{
		view.ID,
		view.GUID,
		view.Name,
		view.State,
		formatValue(view.LeaseStart),
		formatValue(view.LeaseEnd),
		view.ProjectUUID,
		view.UserUUID,
		formatValue(view.SiteName),
	}
}

func formatValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// Filename builds the attachment name for an export taken at now.
func Filename(now time.Time) string {
	return "slices-" + now.UTC().Format("20060102T150405Z") + ".xlsx"
}
