package entities

import (
	"fmt"
	"math"
	"slices"
	"strings"

	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

// MaxRating is the upper bound of the provider rating scale
const MaxRating = 5.0

// FilterSet is the user's narrowing criteria. It is a value: edits produce a new
// FilterSet that replaces the previous one as a whole.
type FilterSet struct {
	FreeTextQuery    string   `json:"free_text_query,omitempty"`
	Specializations  []string `json:"specializations,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	MinRating        float64  `json:"min_rating,omitempty"`
	AvailabilityTags []string `json:"availability_tags,omitempty"`
	LocationQuery    string   `json:"location_query,omitempty"`
	OnlyFavorited    bool     `json:"only_favorited,omitempty"`
}

// Validate rejects filters that cannot be turned into a query
func (f FilterSet) Validate() error {
	if math.IsNaN(f.MinRating) || f.MinRating < 0 || f.MinRating > MaxRating {
		return apperrors.NewValidationError(fmt.Sprintf("min rating must be within [0, %.0f], got %v", MaxRating, f.MinRating))
	}
	for _, s := range f.Specializations {
		if strings.ContainsAny(s, "\n\r") {
			return apperrors.NewValidationError(fmt.Sprintf("invalid specialization %q", s))
		}
	}
	return nil
}

// Normalize returns a copy with trimmed text and sorted, de-duplicated sets so
// semantically equal filters compare equal.
func (f FilterSet) Normalize() FilterSet {
	return FilterSet{
		FreeTextQuery:    strings.TrimSpace(f.FreeTextQuery),
		Specializations:  normalizeSet(f.Specializations),
		Languages:        normalizeSet(f.Languages),
		MinRating:        f.MinRating,
		AvailabilityTags: normalizeSet(f.AvailabilityTags),
		LocationQuery:    strings.TrimSpace(f.LocationQuery),
		OnlyFavorited:    f.OnlyFavorited,
	}
}

// Equal reports whether two filter sets select the same entities
func (f FilterSet) Equal(other FilterSet) bool {
	a, b := f.Normalize(), other.Normalize()
	return a.FreeTextQuery == b.FreeTextQuery &&
		slices.Equal(a.Specializations, b.Specializations) &&
		slices.Equal(a.Languages, b.Languages) &&
		a.MinRating == b.MinRating &&
		slices.Equal(a.AvailabilityTags, b.AvailabilityTags) &&
		a.LocationQuery == b.LocationQuery &&
		a.OnlyFavorited == b.OnlyFavorited
}

// IsEmpty reports whether no narrowing criteria are set
func (f FilterSet) IsEmpty() bool {
	return f.Equal(FilterSet{})
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
