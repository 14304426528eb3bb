package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/mocks"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
	"github.com/zatekoja/provider-browser/pkg/retry"
)

const testToken = "session-token"

func newTestLedger(catalog *mocks.MockCatalogService, auth *mocks.MockAuthContext, deadline time.Duration) *FavoritesLedger {
	return NewFavoritesLedger(catalog, auth, FavoritesLedgerConfig{
		MutationDeadline: deadline,
		SeedRetry: retry.Config{
			MaxAttempts:   2,
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: 1,
		},
	}, nil)
}

type toggleOutcome struct {
	action entities.ToggleAction
	err    error
}

func toggleAsync(l *FavoritesLedger, id string) <-chan toggleOutcome {
	out := make(chan toggleOutcome, 1)
	go func() {
		action, err := l.Toggle(context.Background(), id)
		out <- toggleOutcome{action: action, err: err}
	}()
	return out
}

func receive(t *testing.T, ch <-chan toggleOutcome) toggleOutcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("toggle did not settle")
		return toggleOutcome{}
	}
}

func TestFavoritesLedger_UnauthenticatedToggleRaisesAuthRequired(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	auth := mocks.SignedOut()
	auth.On("PromptLogin", "save providers to your favorites").Once()
	ledger := newTestLedger(catalog, auth, time.Second)

	var notified int
	ledger.Subscribe(func(FavoritesSnapshot) { notified++ })

	action, err := ledger.Toggle(context.Background(), "p-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsAuthRequired(err))
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "save providers to your favorites", appErr.Action)
	assert.Empty(t, action)
	assert.Empty(t, ledger.Snapshot().Entries)
	assert.Zero(t, notified)
	auth.AssertExpectations(t)
	catalog.AssertNotCalled(t, "ToggleFavorite", mock.Anything, mock.Anything, mock.Anything)
}

func TestFavoritesLedger_OptimisticAddThenConfirm(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	release := make(chan struct{})
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) { <-release }).
		Return(&entities.ToggleResult{Action: entities.ToggleAdded, Favorites: []string{"p-1"}}, nil).Once()

	done := toggleAsync(ledger, "p-1")

	assert.Eventually(t, func() bool {
		entry, ok := ledger.Entry("p-1")
		return ok && entry.Status == entities.FavoritePendingAdd
	}, time.Second, time.Millisecond)
	assert.True(t, ledger.IsFavorited("p-1"))
	entry, _ := ledger.Entry("p-1")
	assert.False(t, entry.Deadline.IsZero())

	close(release)
	out := receive(t, done)

	require.NoError(t, out.err)
	assert.Equal(t, entities.ToggleAdded, out.action)
	entry, ok := ledger.Entry("p-1")
	require.True(t, ok)
	assert.Equal(t, entities.FavoriteConfirmed, entry.Status)
	assert.True(t, entry.Deadline.IsZero())
}

func TestFavoritesLedger_FailureRestoresPreToggleState(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	catalog.On("GetFavorites", mock.Anything, testToken).Return([]string{"p-1", "p-2"}, nil).Once()
	require.NoError(t, ledger.Seed(context.Background()))
	before := ledger.Snapshot()

	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Return(nil, apperrors.NewNetworkError("offline", nil)).Once()
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-9").
		Return(nil, apperrors.NewApplicationError("provider not found")).Once()

	_, err := ledger.Toggle(context.Background(), "p-1")
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, before, ledger.Snapshot())

	_, err = ledger.Toggle(context.Background(), "p-9")
	assert.True(t, apperrors.IsApplication(err))
	assert.Equal(t, before, ledger.Snapshot())
}

func TestFavoritesLedger_ExpiredMutationRollsBack(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) { <-release }).
		Return(&entities.ToggleResult{Action: entities.ToggleAdded}, nil).Maybe()

	_, err := ledger.Toggle(context.Background(), "p-1")

	assert.True(t, apperrors.IsTimeout(err))
	_, ok := ledger.Entry("p-1")
	assert.False(t, ok)
}

func TestFavoritesLedger_SameEntityTogglesAreSerialized(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		order = append(order, step)
		mu.Unlock()
	}

	releaseFirst := make(chan struct{})
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) {
			record("first:start")
			<-releaseFirst
			record("first:end")
		}).
		Return(&entities.ToggleResult{Action: entities.ToggleAdded, Favorites: []string{"p-1"}}, nil).Once()
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) { record("second") }).
		Return(&entities.ToggleResult{Action: entities.ToggleRemoved, Favorites: []string{}}, nil).Once()

	first := toggleAsync(ledger, "p-1")
	assert.Eventually(t, func() bool {
		entry, ok := ledger.Entry("p-1")
		return ok && entry.Status == entities.FavoritePendingAdd
	}, time.Second, time.Millisecond)

	second := toggleAsync(ledger, "p-1")
	time.Sleep(20 * time.Millisecond)
	catalog.AssertNumberOfCalls(t, "ToggleFavorite", 1)

	close(releaseFirst)
	firstOut := receive(t, first)
	secondOut := receive(t, second)

	require.NoError(t, firstOut.err)
	require.NoError(t, secondOut.err)
	assert.Equal(t, entities.ToggleAdded, firstOut.action)
	assert.Equal(t, entities.ToggleRemoved, secondOut.action)
	assert.Equal(t, []string{"first:start", "first:end", "second"}, order)
	assert.False(t, ledger.IsFavorited("p-1"))
	_, ok := ledger.Entry("p-1")
	assert.False(t, ok)
}

func TestFavoritesLedger_DistinctEntitiesRunConcurrently(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	release := make(chan struct{})
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) { <-release }).
		Return(&entities.ToggleResult{Action: entities.ToggleAdded}, nil).Once()
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-2").
		Return(&entities.ToggleResult{Action: entities.ToggleAdded}, nil).Once()

	slow := toggleAsync(ledger, "p-1")
	assert.Eventually(t, func() bool {
		_, ok := ledger.Entry("p-1")
		return ok
	}, time.Second, time.Millisecond)

	action, err := ledger.Toggle(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, entities.ToggleAdded, action)

	entry, _ := ledger.Entry("p-1")
	assert.Equal(t, entities.FavoritePendingAdd, entry.Status)

	close(release)
	require.NoError(t, receive(t, slow).err)
	assert.True(t, ledger.IsFavorited("p-1"))
	assert.True(t, ledger.IsFavorited("p-2"))
}

func TestFavoritesLedger_ServerIsAuthoritative(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	// Another tab already favorited p-1, so this toggle removed it.
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Return(&entities.ToggleResult{Action: entities.ToggleRemoved, Favorites: []string{"p-7"}}, nil).Once()

	action, err := ledger.Toggle(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, entities.ToggleRemoved, action)
	assert.False(t, ledger.IsFavorited("p-1"))
	assert.True(t, ledger.IsFavorited("p-7"))
}

func TestFavoritesLedger_SeedKeepsPendingEntries(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)
	assert.False(t, ledger.Known())

	release := make(chan struct{})
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Run(func(mock.Arguments) { <-release }).
		Return(&entities.ToggleResult{Action: entities.ToggleAdded, Favorites: []string{"p-1", "p-2"}}, nil).Once()
	catalog.On("GetFavorites", mock.Anything, testToken).Return([]string{"p-2"}, nil).Once()

	done := toggleAsync(ledger, "p-1")
	assert.Eventually(t, func() bool {
		_, ok := ledger.Entry("p-1")
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, ledger.Seed(context.Background()))
	assert.True(t, ledger.Known())
	entry, _ := ledger.Entry("p-1")
	assert.Equal(t, entities.FavoritePendingAdd, entry.Status)
	assert.True(t, ledger.IsFavorited("p-2"))

	close(release)
	require.NoError(t, receive(t, done).err)
	entry, _ = ledger.Entry("p-1")
	assert.Equal(t, entities.FavoriteConfirmed, entry.Status)
}

func seedAsync(l *FavoritesLedger) <-chan error {
	out := make(chan error, 1)
	go func() { out <- l.Seed(context.Background()) }()
	return out
}

func TestFavoritesLedger_LateSeedKeepsConfirmedToggle(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	started := make(chan struct{})
	gate := make(chan struct{})
	catalog.On("GetFavorites", mock.Anything, testToken).
		Run(func(mock.Arguments) {
			close(started)
			<-gate
		}).
		Return([]string{}, nil).Once()
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Return(&entities.ToggleResult{Action: entities.ToggleAdded, Favorites: []string{"p-1"}}, nil).Once()

	seeded := seedAsync(ledger)
	<-started

	action, err := ledger.Toggle(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, entities.ToggleAdded, action)

	close(gate)
	require.NoError(t, <-seeded)

	assert.True(t, ledger.Known())
	assert.True(t, ledger.IsFavorited("p-1"))
	entry, _ := ledger.Entry("p-1")
	assert.Equal(t, entities.FavoriteConfirmed, entry.Status)
}

func TestFavoritesLedger_LateSeedKeepsNewerPerProviderState(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	catalog.On("GetFavorites", mock.Anything, testToken).Return([]string{"p-1"}, nil).Once()
	require.NoError(t, ledger.Seed(context.Background()))
	require.True(t, ledger.IsFavorited("p-1"))

	started := make(chan struct{})
	gate := make(chan struct{})
	catalog.On("GetFavorites", mock.Anything, testToken).
		Run(func(mock.Arguments) {
			close(started)
			<-gate
		}).
		Return([]string{"p-1", "p-2"}, nil).Once()
	// The response names the action only, so p-2 still comes from the seed.
	catalog.On("ToggleFavorite", mock.Anything, testToken, "p-1").
		Return(&entities.ToggleResult{Action: entities.ToggleRemoved}, nil).Once()

	seeded := seedAsync(ledger)
	<-started

	action, err := ledger.Toggle(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, entities.ToggleRemoved, action)

	close(gate)
	require.NoError(t, <-seeded)

	assert.False(t, ledger.IsFavorited("p-1"))
	assert.True(t, ledger.IsFavorited("p-2"))
}

func TestFavoritesLedger_SeedRetriesTransientFailures(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	catalog.On("GetFavorites", mock.Anything, testToken).
		Return(nil, apperrors.NewNetworkError("offline", nil)).Once()
	catalog.On("GetFavorites", mock.Anything, testToken).
		Return([]string{"p-3"}, nil).Once()

	require.NoError(t, ledger.Seed(context.Background()))
	assert.True(t, ledger.IsFavorited("p-3"))
}

func TestFavoritesLedger_ResetClearsEntries(t *testing.T) {
	catalog := mocks.NewMockCatalogService(t)
	ledger := newTestLedger(catalog, mocks.SignedIn("u-1", testToken), time.Second)

	catalog.On("GetFavorites", mock.Anything, testToken).Return([]string{"p-1"}, nil).Once()
	require.NoError(t, ledger.Seed(context.Background()))

	ledger.Reset()

	assert.False(t, ledger.Known())
	assert.Empty(t, ledger.Snapshot().Entries)
}
