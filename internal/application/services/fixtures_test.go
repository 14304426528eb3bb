package services

import (
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

func provider(id, name string, lat, lng float64) entities.ProviderSummary {
	return entities.ProviderSummary{
		ID:              id,
		DisplayName:     name,
		Specializations: []string{"CBT"},
		Rating:          4.5,
		Locations: []entities.ProviderLocation{
			{Label: "Main office", Coordinates: &entities.Location{Latitude: lat, Longitude: lng}},
		},
	}
}

func pageOfProviders(items ...entities.ProviderSummary) *entities.ResultPage {
	return &entities.ResultPage{Items: items, TotalCount: len(items), Page: 1}
}

func threeProviders() *entities.ResultPage {
	return pageOfProviders(
		provider("p-1", "Dr. Adaeze Okafor", 6.5244, 3.3792),
		provider("p-2", "Dr. Musa Bello", 6.4550, 3.3941),
		provider("p-3", "Dr. Ngozi Eze", 6.6018, 3.3515),
	)
}

// descriptorWithKey matches a QueryDescriptor by its canonical key
func descriptorWithKey(key string) interface{} {
	return mock.MatchedBy(func(d entities.QueryDescriptor) bool {
		return d.Key() == key
	})
}
