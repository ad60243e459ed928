package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/testbed-analytics/internal/domain"
)

// Accepted timestamp layouts, tried in order. Values without an offset are
// read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a request timestamp.
func ParseTimestamp(name, raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, domain.InvalidArgument("%s: invalid timestamp %q", name, raw)
}

// ParseTimeWindow parses the start_time/end_time pair. Empty values leave the
// bound open unless required is set.
func ParseTimeWindow(start, end string, required bool) (TimeWindow, error) {
	var window TimeWindow
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if required && (start == "" || end == "") {
		return TimeWindow{}, domain.InvalidArgument("start_time and end_time are required")
	}
	if start != "" {
		ts, err := ParseTimestamp("start_time", start)
		if err != nil {
			return TimeWindow{}, err
		}
		window.Start = &ts
	}
	if end != "" {
		ts, err := ParseTimestamp("end_time", end)
		if err != nil {
			return TimeWindow{}, err
		}
		window.End = &ts
	}
	if window.Start != nil && window.End != nil && window.Start.After(*window.End) {
		return TimeWindow{}, domain.InvalidArgument("start_time must not be after end_time")
	}
	return window, nil
}

// ParseStates parses repeated and comma separated state values.
func ParseStates(raw []string) ([]int64, error) {
	var states []int64
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			value, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, domain.InvalidArgument("state: invalid integer %q", part)
			}
			states = append(states, value)
		}
	}
	return states, nil
}

// ParsePage parses page and per_page, applying defaults for empty values.
func ParsePage(page, perPage string) (PageRequest, error) {
	req := DefaultPageRequest()
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return PageRequest{}, domain.InvalidArgument("page must be a positive integer")
		}
		req.Page = n
	}
	if v := strings.TrimSpace(perPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return PageRequest{}, domain.InvalidArgument("per_page must be a positive integer")
		}
		if n > MaxPerPage {
			return PageRequest{}, domain.InvalidArgument("per_page must not exceed %d", MaxPerPage)
		}
		req.PerPage = n
	}
	return req, nil
}

// ParseUUID validates an external identifier. The value is returned as given
// so it matches the stored text exactly.
func ParseUUID(name, raw string, required bool) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		if required {
			return "", domain.InvalidArgument("%s is required", name)
		}
		return "", nil
	}
	if err := uuid.Validate(value); err != nil {
		return "", domain.InvalidArgument("%s: invalid uuid %q", name, raw)
	}
	return value, nil
}

// ParseSort parses sort_by/sort_dir. No sort_by means no caller ordering;
// the direction defaults to ascending.
func ParseSort(sortBy, sortDir string) (*domain.SliceSort, error) {
	if strings.TrimSpace(sortBy) == "" {
		if strings.TrimSpace(sortDir) != "" {
			if _, ok := domain.ParseSortDirection(sortDir); !ok {
				return nil, domain.InvalidArgument("sort_dir: unknown direction %q", sortDir)
			}
		}
		return nil, nil
	}
	field, ok := domain.ParseSliceSortField(sortBy)
	if !ok {
		return nil, domain.InvalidArgument("sort_by: unknown field %q", sortBy)
	}
	dir := domain.SortDirectionAsc
	if strings.TrimSpace(sortDir) != "" {
		if dir, ok = domain.ParseSortDirection(sortDir); !ok {
			return nil, domain.InvalidArgument("sort_dir: unknown direction %q", sortDir)
		}
	}
	return &domain.SliceSort{Field: field, Direction: dir}, nil
}
