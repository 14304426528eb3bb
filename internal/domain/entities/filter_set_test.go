package entities

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

func TestFilterSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filters FilterSet
		wantErr bool
	}{
		{name: "empty", filters: FilterSet{}},
		{name: "max rating", filters: FilterSet{MinRating: 5}},
		{name: "negative rating", filters: FilterSet{MinRating: -1}, wantErr: true},
		{name: "rating above scale", filters: FilterSet{MinRating: 5.5}, wantErr: true},
		{name: "NaN rating", filters: FilterSet{MinRating: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFilterSet_NormalizeSortsAndDeduplicates(t *testing.T) {
	f := FilterSet{
		FreeTextQuery:   "  anxiety ",
		Specializations: []string{"EMDR", " CBT", "CBT", ""},
		Languages:       []string{},
	}

	got := f.Normalize()

	assert.Equal(t, "anxiety", got.FreeTextQuery)
	assert.Equal(t, []string{"CBT", "EMDR"}, got.Specializations)
	assert.Nil(t, got.Languages)
}

func TestFilterSet_Equal(t *testing.T) {
	a := FilterSet{Specializations: []string{"CBT", "EMDR"}}
	b := FilterSet{Specializations: []string{"EMDR", "CBT", "CBT"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(FilterSet{Specializations: []string{"CBT"}}))
	assert.True(t, FilterSet{Languages: []string{" "}}.IsEmpty())
}
