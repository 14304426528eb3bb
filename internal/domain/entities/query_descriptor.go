package entities

import (
	"net/url"
	"strconv"
	"strings"
)

// ViewMode selects how the result set is presented
type ViewMode string

const (
	ViewModeSwipe ViewMode = "swipe"
	ViewModeGrid  ViewMode = "grid"
	ViewModeMap   ViewMode = "map"
)

// ParseViewMode maps user input onto a ViewMode
func ParseViewMode(s string) (ViewMode, bool) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewModeSwipe:
		return ViewModeSwipe, true
	case ViewModeGrid:
		return ViewModeGrid, true
	case ViewModeMap:
		return ViewModeMap, true
	}
	return "", false
}

// FetchesAll reports whether the mode needs the full matching set client-side
func (m ViewMode) FetchesAll() bool {
	return m == ViewModeSwipe || m == ViewModeMap
}

// QueryDescriptor is the canonical request for one catalog search
type QueryDescriptor struct {
	Filters  FilterSet
	Page     int
	PageSize int
	Mode     ViewMode

	// ClientPaged is set when the server returns the full set and any paging
	// happens locally.
	ClientPaged bool
}

// Key returns the canonical serialization used for caching and de-duplication.
// Empty fields are omitted; url.Values encodes keys in sorted order.
func (d QueryDescriptor) Key() string {
	return d.Values().Encode()
}

// Values returns the descriptor as catalog query parameters
func (d QueryDescriptor) Values() url.Values {
	f := d.Filters.Normalize()
	v := url.Values{}
	if f.FreeTextQuery != "" {
		v.Set("q", f.FreeTextQuery)
	}
	if len(f.Specializations) > 0 {
		v["specialization"] = f.Specializations
	}
	if len(f.Languages) > 0 {
		v["language"] = f.Languages
	}
	if f.MinRating > 0 {
		v.Set("min_rating", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	if len(f.AvailabilityTags) > 0 {
		v["availability"] = f.AvailabilityTags
	}
	if f.LocationQuery != "" {
		v.Set("location", f.LocationQuery)
	}
	if d.Page > 1 {
		v.Set("page", strconv.Itoa(d.Page))
	}
	v.Set("page_size", strconv.Itoa(d.PageSize))
	return v
}
