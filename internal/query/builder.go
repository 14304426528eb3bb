package query

import (
	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// DefaultFetchAllPageSize caps "fetch all matching" requests
const DefaultFetchAllPageSize = 500

// Builder turns filter sets into canonical query descriptors. It holds no state
// beyond its configuration and is safe for concurrent use.
type Builder struct {
	fetchAllPageSize int
}

// NewBuilder creates a builder; fetchAllPageSize <= 0 selects the default cap
func NewBuilder(fetchAllPageSize int) *Builder {
	if fetchAllPageSize <= 0 {
		fetchAllPageSize = DefaultFetchAllPageSize
	}
	return &Builder{fetchAllPageSize: fetchAllPageSize}
}

// FetchAllPageSize returns the cap used for swipe and map requests
func (b *Builder) FetchAllPageSize() int {
	return b.fetchAllPageSize
}

// Build validates filters and returns the descriptor for the given view.
//
// Swipe and map need the whole matching set client-side, so they always ask for
// page 1 with the fetch-all size. Grid pages server-side unless favorites
// narrowing is active, which can only be applied locally.
func (b *Builder) Build(filters entities.FilterSet, page, pageSize int, mode entities.ViewMode) (entities.QueryDescriptor, error) {
	if err := filters.Validate(); err != nil {
		return entities.QueryDescriptor{}, err
	}

	d := entities.QueryDescriptor{
		Filters: filters.Normalize(),
		Mode:    mode,
	}

	if mode.FetchesAll() || filters.OnlyFavorited {
		d.Page = 1
		d.PageSize = b.fetchAllPageSize
		d.ClientPaged = mode == entities.ViewModeGrid
		return d, nil
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > b.fetchAllPageSize {
		pageSize = b.fetchAllPageSize
	}
	d.Page = page
	d.PageSize = pageSize
	return d, nil
}
