package domain

import "strings"

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SliceSortField enumerates fields that can be sorted when listing slices.
type SliceSortField string

const (
	SliceSortFieldID         SliceSortField = "id"
	SliceSortFieldName       SliceSortField = "name"
	SliceSortFieldState      SliceSortField = "state"
	SliceSortFieldLeaseStart SliceSortField = "lease_start"
	SliceSortFieldLeaseEnd   SliceSortField = "lease_end"
)

// SliceSort captures caller ordering preferences for slice listings.
type SliceSort struct {
	Field     SliceSortField
	Direction SortDirection
}

// ParseSliceSortField normalizes a user supplied sort field.
func ParseSliceSortField(raw string) (SliceSortField, bool) {
	switch SliceSortField(strings.ToLower(strings.TrimSpace(raw))) {
	case SliceSortFieldID:
		return SliceSortFieldID, true
	case SliceSortFieldName:
		return SliceSortFieldName, true
	case SliceSortFieldState:
		return SliceSortFieldState, true
	case SliceSortFieldLeaseStart:
		return SliceSortFieldLeaseStart, true
	case SliceSortFieldLeaseEnd:
		return SliceSortFieldLeaseEnd, true
	}
	return "", false
}

// ParseSortDirection normalizes a user supplied direction.
func ParseSortDirection(raw string) (SortDirection, bool) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case SortDirectionAsc:
		return SortDirectionAsc, true
	case SortDirectionDesc:
		return SortDirectionDesc, true
	}
	return "", false
}
