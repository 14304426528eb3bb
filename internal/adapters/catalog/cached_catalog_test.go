package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/mocks"
)

var gridQuery = entities.QueryDescriptor{
	Filters:  entities.FilterSet{Specializations: []string{"CBT"}},
	Page:     1,
	PageSize: 9,
	Mode:     entities.ViewModeGrid,
}

func samplePage() *entities.ResultPage {
	return &entities.ResultPage{
		Items:      []entities.ProviderSummary{{ID: "p-1", DisplayName: "Dr. Okafor", Rating: 4.5}},
		TotalCount: 1,
		Page:       1,
	}
}

func TestCachedCatalog_SearchHit(t *testing.T) {
	backend := mocks.NewMockCatalogService(t)
	cache := &mocks.MockCacheProvider{}
	data, err := json.Marshal(samplePage())
	require.NoError(t, err)
	cache.On("Get", mock.Anything, "search:page_size=9&specialization=CBT").Return(data, nil).Once()

	page, err := NewCachedCatalog(backend, cache, time.Minute).Search(context.Background(), gridQuery)

	require.NoError(t, err)
	assert.Equal(t, samplePage(), page)
	backend.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestCachedCatalog_SearchMissPopulatesCache(t *testing.T) {
	backend := mocks.NewMockCatalogService(t)
	cache := &mocks.MockCacheProvider{}
	key := "search:page_size=9&specialization=CBT"
	cache.On("Get", mock.Anything, key).Return(nil, providers.ErrCacheMiss).Once()
	cache.On("Set", mock.Anything, key, mock.AnythingOfType("[]uint8"), time.Minute).Return(nil).Once()
	backend.On("Search", mock.Anything, gridQuery).Return(samplePage(), nil).Once()

	page, err := NewCachedCatalog(backend, cache, time.Minute).Search(context.Background(), gridQuery)

	require.NoError(t, err)
	assert.Equal(t, "p-1", page.Items[0].ID)
	cache.AssertExpectations(t)
}

func TestCachedCatalog_CacheFailuresFallThrough(t *testing.T) {
	backend := mocks.NewMockCatalogService(t)
	cache := &mocks.MockCacheProvider{}
	cache.On("Get", mock.Anything, mock.Anything).Return([]byte("{not json"), nil).Once()
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
	backend.On("Search", mock.Anything, gridQuery).Return(samplePage(), nil).Once()

	page, err := NewCachedCatalog(backend, cache, time.Minute).Search(context.Background(), gridQuery)

	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestCachedCatalog_BackendErrorsAreNotCached(t *testing.T) {
	backend := mocks.NewMockCatalogService(t)
	cache := &mocks.MockCacheProvider{}
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, providers.ErrCacheMiss).Once()
	backend.On("GetProvider", mock.Anything, "p-1").Return(nil, errors.New("boom")).Once()

	_, err := NewCachedCatalog(backend, cache, time.Minute).GetProvider(context.Background(), "p-1")

	assert.Error(t, err)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedCatalog_FavoritesBypassCache(t *testing.T) {
	backend := mocks.NewMockCatalogService(t)
	cache := &mocks.MockCacheProvider{}
	backend.On("GetFavorites", mock.Anything, "token").Return([]string{"p-1"}, nil).Once()
	backend.On("ToggleFavorite", mock.Anything, "token", "p-2").
		Return(&entities.ToggleResult{Action: entities.ToggleAdded, Favorites: []string{"p-1", "p-2"}}, nil).Once()
	catalog := NewCachedCatalog(backend, cache, 0)

	ids, err := catalog.GetFavorites(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, ids)

	result, err := catalog.ToggleFavorite(context.Background(), "token", "p-2")
	require.NoError(t, err)
	assert.Equal(t, entities.ToggleAdded, result.Action)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
