package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/mocks"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

func gridDescriptor(q string) entities.QueryDescriptor {
	return entities.QueryDescriptor{
		Filters:  entities.FilterSet{FreeTextQuery: q},
		Page:     1,
		PageSize: 9,
		Mode:     entities.ViewModeGrid,
	}
}

func waitHandle(t *testing.T, h *RequestHandle) (*entities.ResultPage, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.Wait(ctx)
}

func TestRequestManager_NewestIssuedWins(t *testing.T) {
	orders := []struct {
		name          string
		releaseAFirst bool
	}{
		{name: "older resolves first", releaseAFirst: true},
		{name: "newer resolves first", releaseAFirst: false},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			catalog := mocks.NewMockCatalogService(t)
			store := NewResultStore()
			manager := NewRequestManager(catalog, store, RequestManagerConfig{Timeout: time.Second}, nil)

			a, b := gridDescriptor("anxiety"), gridDescriptor("grief")
			releaseA, releaseB := make(chan struct{}), make(chan struct{})
			pageA := pageOfProviders(provider("a-1", "A", 0, 0))
			pageB := pageOfProviders(provider("b-1", "B", 0, 0))

			catalog.On("Search", mock.Anything, descriptorWithKey(a.Key())).
				Run(func(mock.Arguments) { <-releaseA }).
				Return(pageA, nil).Maybe()
			catalog.On("Search", mock.Anything, descriptorWithKey(b.Key())).
				Run(func(mock.Arguments) { <-releaseB }).
				Return(pageB, nil).Once()

			hA := manager.Issue(context.Background(), a)
			hB := manager.Issue(context.Background(), b)

			if tt.releaseAFirst {
				close(releaseA)
				_, errA := waitHandle(t, hA)
				assert.ErrorIs(t, errA, apperrors.ErrSuperseded)
				assert.Equal(t, ResultLoading, store.Snapshot().Status)
				close(releaseB)
			} else {
				close(releaseB)
				_, _ = waitHandle(t, hB)
				close(releaseA)
				_, errA := waitHandle(t, hA)
				assert.ErrorIs(t, errA, apperrors.ErrSuperseded)
			}

			page, err := waitHandle(t, hB)
			require.NoError(t, err)
			assert.Equal(t, "b-1", page.Items[0].ID)

			snap := store.Snapshot()
			assert.Equal(t, ResultReady, snap.Status)
			assert.Equal(t, b.Key(), snap.Key)
			assert.Equal(t, "b-1", snap.Items()[0].ID)
		})
	}
}

func TestRequestManager_NewerFailureAppliesNoResult(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{Timeout: time.Second}, nil)

	a, b := gridDescriptor("anxiety"), gridDescriptor("grief")
	releaseA := make(chan struct{})
	catalog.On("Search", mock.Anything, descriptorWithKey(a.Key())).
		Run(func(mock.Arguments) { <-releaseA }).
		Return(pageOfProviders(provider("a-1", "A", 0, 0)), nil).Maybe()
	catalog.On("Search", mock.Anything, descriptorWithKey(b.Key())).
		Return(nil, apperrors.NewApplicationError("search rejected")).Once()

	hA := manager.Issue(context.Background(), a)
	hB := manager.Issue(context.Background(), b)

	_, errB := waitHandle(t, hB)
	assert.True(t, apperrors.IsApplication(errB))

	close(releaseA)
	_, errA := waitHandle(t, hA)
	assert.ErrorIs(t, errA, apperrors.ErrSuperseded)

	snap := store.Snapshot()
	assert.Equal(t, ResultError, snap.Status)
	assert.Nil(t, snap.Page)
}

func TestRequestManager_TimeoutIsDistinctFromNetworkError(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{Timeout: 20 * time.Millisecond}, nil)

	release := make(chan struct{})
	defer close(release)
	d := gridDescriptor("slow")
	catalog.On("Search", mock.Anything, descriptorWithKey(d.Key())).
		Run(func(mock.Arguments) { <-release }).
		Return(threeProviders(), nil).Maybe()

	_, err := manager.Fetch(context.Background(), d)

	assert.True(t, apperrors.IsTimeout(err))
	assert.False(t, apperrors.IsNetwork(err))
	assert.Equal(t, ResultError, store.Snapshot().Status)
}

func TestRequestManager_TransportErrorsBecomeNetworkErrors(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{}, nil)

	d := gridDescriptor("offline")
	catalog.On("Search", mock.Anything, descriptorWithKey(d.Key())).
		Return(nil, errors.New("dial tcp: connection refused")).Once()

	_, err := manager.Fetch(context.Background(), d)

	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, ResultError, store.Snapshot().Status)
}

func TestRequestManager_CachedResultSkipsNetwork(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{CacheSize: 4, CacheTTL: time.Minute}, nil)

	a, b := gridDescriptor("a"), gridDescriptor("b")
	catalog.On("Search", mock.Anything, descriptorWithKey(a.Key())).Return(threeProviders(), nil).Once()
	catalog.On("Search", mock.Anything, descriptorWithKey(b.Key())).Return(pageOfProviders(), nil).Once()

	_, err := manager.Fetch(context.Background(), a)
	require.NoError(t, err)
	_, err = manager.Fetch(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, store.IsEmpty())

	h := manager.Issue(context.Background(), a)
	page, err := waitHandle(t, h)

	require.NoError(t, err)
	assert.True(t, h.FromCache)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, a.Key(), store.Snapshot().Key)
	catalog.AssertNumberOfCalls(t, "Search", 2)
}

func TestRequestManager_RefreshBypassesCache(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{CacheSize: 4, CacheTTL: time.Minute}, nil)

	d := gridDescriptor("a")
	catalog.On("Search", mock.Anything, descriptorWithKey(d.Key())).Return(threeProviders(), nil).Twice()

	_, err := manager.Fetch(context.Background(), d)
	require.NoError(t, err)

	h := manager.Refresh(context.Background(), d)
	_, err = waitHandle(t, h)
	require.NoError(t, err)
	assert.False(t, h.FromCache)
}

func TestRequestManager_JoinsInFlightRequestForSameKey(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{}, nil)

	release := make(chan struct{})
	d := gridDescriptor("a")
	catalog.On("Search", mock.Anything, descriptorWithKey(d.Key())).
		Run(func(mock.Arguments) { <-release }).
		Return(threeProviders(), nil).Once()

	first := manager.Issue(context.Background(), d)
	second := manager.Issue(context.Background(), d)
	close(release)

	assert.Same(t, first, second)
	_, err := waitHandle(t, second)
	require.NoError(t, err)
}

func TestRequestManager_CancelAllDiscardsInFlightResult(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	store := NewResultStore()
	manager := NewRequestManager(catalog, store, RequestManagerConfig{}, nil)

	release := make(chan struct{})
	d := gridDescriptor("a")
	catalog.On("Search", mock.Anything, descriptorWithKey(d.Key())).
		Run(func(mock.Arguments) { <-release }).
		Return(threeProviders(), nil).Maybe()

	h := manager.Issue(context.Background(), d)
	manager.CancelAll()
	close(release)

	_, err := waitHandle(t, h)
	assert.ErrorIs(t, err, apperrors.ErrSuperseded)
	assert.Nil(t, store.Snapshot().Page)
	assert.Nil(t, manager.Current())
}
