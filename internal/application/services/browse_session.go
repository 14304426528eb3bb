package services

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
	"github.com/zatekoja/provider-browser/internal/query"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
	"github.com/zatekoja/provider-browser/pkg/retry"
)

// BrowseSessionConfig configures a browse session
type BrowseSessionConfig struct {
	InitialMode        entities.ViewMode
	GridPageSize       int
	FetchAllPageSize   int
	AnimationBudget    time.Duration
	ModeSwitchDebounce time.Duration
	RequestTimeout     time.Duration
	ResultCacheSize    int
	ResultCacheTTL     time.Duration
	MutationDeadline   time.Duration
	SeedRetry          retry.Config
}

// BrowseSessionDeps are the collaborators a session is built from
type BrowseSessionDeps struct {
	Catalog   providers.CatalogService
	Auth      providers.AuthContext
	Detail    providers.DetailPresenter
	Direction providers.DirectionProvider
	Metrics   *observability.Metrics
}

// BrowseSession is one browsing interaction: the filters, the three views
// derived from the shared result store, and the favorites ledger. It is
// created per user session, started once and torn down with End.
type BrowseSession struct {
	builder    *query.Builder
	store      *ResultStore
	requests   *RequestManager
	favorites  *FavoritesLedger
	swipe      *SwipeSession
	pagination *Pagination
	modes      *ViewModeCoordinator

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	filters     entities.FilterSet
	descriptor  entities.QueryDescriptor
	seeded      chan struct{}
	seedErr     error
	unsubscribe []func()

	results versionGate
}

// NewBrowseSession wires the session components together
func NewBrowseSession(deps BrowseSessionDeps, cfg BrowseSessionConfig) *BrowseSession {
	store := NewResultStore()
	s := &BrowseSession{
		builder: query.NewBuilder(cfg.FetchAllPageSize),
		store:   store,
		requests: NewRequestManager(deps.Catalog, store, RequestManagerConfig{
			Timeout:   cfg.RequestTimeout,
			CacheSize: cfg.ResultCacheSize,
			CacheTTL:  cfg.ResultCacheTTL,
		}, deps.Metrics),
		favorites: NewFavoritesLedger(deps.Catalog, deps.Auth, FavoritesLedgerConfig{
			MutationDeadline: cfg.MutationDeadline,
			SeedRetry:        cfg.SeedRetry,
		}, deps.Metrics),
		swipe:      NewSwipeSession(cfg.AnimationBudget, deps.Detail, deps.Direction),
		pagination: NewPagination(cfg.GridPageSize),
		modes:      NewViewModeCoordinator(cfg.InitialMode, cfg.ModeSwitchDebounce),
	}
	return s
}

// Start begins the session: favorites load in the background while the
// initial search is issued for filters.
func (s *BrowseSession) Start(ctx context.Context, filters entities.FilterSet) (*RequestHandle, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return nil, apperrors.NewInternalError("browse session already started", nil)
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	sessionCtx := s.ctx
	s.seeded = make(chan struct{})
	seeded := s.seeded
	s.unsubscribe = []func(){
		s.store.Subscribe(func(snap ResultSnapshot) {
			if s.results.admit(snap.Version) {
				s.rederive()
			}
		}),
		s.favorites.Subscribe(func(FavoritesSnapshot) { s.rederive() }),
	}
	s.mu.Unlock()

	go func() {
		err := s.favorites.Seed(sessionCtx)
		s.mu.Lock()
		s.seedErr = err
		s.mu.Unlock()
		close(seeded)
	}()

	observability.LoggerFromContext(ctx).Info().
		Str("mode", string(s.modes.Mode())).
		Msg("browse session started")

	return s.applyFilters(ctx, filters, true)
}

// End tears the session down: in-flight work is abandoned and the favorites
// ledger is cleared. A session cannot be restarted.
func (s *BrowseSession) End() {
	s.mu.Lock()
	cancel := s.cancel
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	s.requests.CancelAll()
	s.swipe.Close()
	s.favorites.Reset()
	s.store.Reset()
	if cancel != nil {
		cancel()
	}
}

// WaitFavorites blocks until the initial favorites load finished
func (s *BrowseSession) WaitFavorites(ctx context.Context) error {
	s.mu.Lock()
	seeded := s.seeded
	s.mu.Unlock()
	if seeded == nil {
		return apperrors.NewInternalError("browse session not started", nil)
	}

	select {
	case <-seeded:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.seedErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyFilters replaces the filter set. A real change resets the grid to page
// 1, the swipe cursor to 0, and issues a new search; applying an equal filter
// set is a no-op unless the last search failed.
func (s *BrowseSession) ApplyFilters(ctx context.Context, filters entities.FilterSet) (*RequestHandle, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	return s.applyFilters(ctx, filters, false)
}

// Filters returns the active filter set
func (s *BrowseSession) Filters() entities.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Retry re-sends the current search, bypassing the result cache
func (s *BrowseSession) Retry(ctx context.Context) (*RequestHandle, error) {
	ctx, err := s.sessionContext(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	d := s.descriptor
	s.mu.Unlock()
	return s.requests.Refresh(ctx, d), nil
}

// DismissError clears a surfaced fetch error
func (s *BrowseSession) DismissError() {
	s.store.DismissError()
}

// Mode returns the active view mode
func (s *BrowseSession) Mode() entities.ViewMode {
	return s.modes.Mode()
}

// SwitchMode changes the presentation. Entering grid fetches its first page;
// leaving grid fetches the full set again (normally from the result cache);
// swipe and map share one result set and never fetch. The returned handle is
// nil when no search was needed.
func (s *BrowseSession) SwitchMode(ctx context.Context, mode entities.ViewMode) (*RequestHandle, error) {
	if _, ok := entities.ParseViewMode(string(mode)); !ok {
		return nil, apperrors.NewValidationError("unknown view mode " + string(mode))
	}
	sessionCtx, err := s.sessionContext(ctx)
	if err != nil {
		return nil, err
	}

	sw := s.modes.Switch(mode)
	if !sw.Changed {
		return nil, nil
	}
	observability.LoggerFromContext(ctx).Debug().
		Str("from", string(sw.From)).
		Str("to", string(sw.To)).
		Bool("fetch", sw.NeedsFetch).
		Msg("view mode switched")

	if !sw.NeedsFetch {
		s.rederive()
		return nil, nil
	}
	if sw.To == entities.ViewModeGrid {
		s.pagination.Reset()
	}
	return s.issueCurrent(sessionCtx)
}

// NextPage moves the grid forward; nothing happens on the last page
func (s *BrowseSession) NextPage(ctx context.Context) (*RequestHandle, bool, error) {
	return s.turnPage(ctx, s.pagination.Next)
}

// PrevPage moves the grid back; nothing happens on the first page
func (s *BrowseSession) PrevPage(ctx context.Context) (*RequestHandle, bool, error) {
	return s.turnPage(ctx, s.pagination.Prev)
}

// Swipe sends a directional intent to the swipe session. It is ignored
// outside swipe mode and while no card is shown.
func (s *BrowseSession) Swipe(ctx context.Context, d entities.SwipeDirection) bool {
	if !s.swipeShown() {
		return false
	}
	return s.swipe.Intent(ctx, d)
}

// PressKey sends an arrow key to the swipe session, mirrored under RTL
func (s *BrowseSession) PressKey(ctx context.Context, key entities.Key) bool {
	if !s.swipeShown() {
		return false
	}
	return s.swipe.Key(ctx, key)
}

// ToggleFavorite flips a provider's favorite state through the ledger.
// Failures have already been rolled back when the error is returned.
func (s *BrowseSession) ToggleFavorite(ctx context.Context, providerID string) (entities.ToggleAction, error) {
	return s.favorites.Toggle(ctx, providerID)
}

// ToggleCurrentFavorite toggles the provider on the card being shown
func (s *BrowseSession) ToggleCurrentFavorite(ctx context.Context) (entities.ToggleAction, error) {
	current := s.SwipeView().Current
	if current == nil {
		return "", apperrors.NewNotFoundError("no provider under the cursor")
	}
	return s.favorites.Toggle(ctx, current.ID)
}

// Favorites exposes the ledger for observers
func (s *BrowseSession) Favorites() *FavoritesLedger {
	return s.favorites
}

// Results exposes the result store for observers
func (s *BrowseSession) Results() *ResultStore {
	return s.store
}

// SwipeSession exposes the swipe machine for observers
func (s *BrowseSession) SwipeSession() *SwipeSession {
	return s.swipe
}

// SwipeView projects the current card
func (s *BrowseSession) SwipeView() SwipeView {
	snap, cards, _ := s.current()
	state := s.swipe.State()
	view := SwipeView{ViewStatus: viewStatus(snap, cards), State: state}
	if !state.Empty() && state.Cursor < len(cards) {
		card := cards[state.Cursor]
		view.Current = &card
	}
	return view
}

// GridView projects the current grid page
func (s *BrowseSession) GridView() GridView {
	snap, cards, d := s.current()
	info := s.pagination.Info()

	if d.ClientPaged {
		cards = pageOf(cards, info)
	}
	return GridView{ViewStatus: viewStatus(snap, cards), Cards: cards, Page: info}
}

// MapView projects markers for every placed provider
func (s *BrowseSession) MapView() MapView {
	snap, cards, _ := s.current()
	markers, bounds, unplaced := projectMap(cards)
	return MapView{
		ViewStatus: viewStatus(snap, cards),
		Cards:      cards,
		Markers:    markers,
		Bounds:     bounds,
		Unplaced:   unplaced,
	}
}

func (s *BrowseSession) applyFilters(ctx context.Context, filters entities.FilterSet, initial bool) (*RequestHandle, error) {
	sessionCtx, err := s.sessionContext(ctx)
	if err != nil {
		return nil, err
	}
	filters = filters.Normalize()

	s.mu.Lock()
	unchanged := !initial && s.filters.Equal(filters)
	s.mu.Unlock()
	if unchanged && s.store.Snapshot().Status != ResultError {
		return s.requests.Current(), nil
	}

	s.mu.Lock()
	s.filters = filters
	s.mu.Unlock()

	s.pagination.Reset()
	s.swipe.Reset(nil)

	observability.LoggerFromContext(ctx).Debug().
		Bool("only_favorited", filters.OnlyFavorited).
		Msg("filters applied")

	return s.issueCurrent(sessionCtx)
}

func (s *BrowseSession) turnPage(ctx context.Context, move func() bool) (*RequestHandle, bool, error) {
	if s.modes.Mode() != entities.ViewModeGrid {
		return nil, false, nil
	}
	sessionCtx, err := s.sessionContext(ctx)
	if err != nil {
		return nil, false, err
	}
	if !move() {
		return nil, false, nil
	}

	s.mu.Lock()
	clientPaged := s.descriptor.ClientPaged
	s.mu.Unlock()
	if clientPaged {
		return nil, true, nil
	}

	h, err := s.issueCurrent(sessionCtx)
	return h, true, err
}

// issueCurrent builds the descriptor for the current filters, mode and page
// and makes it the authoritative search.
func (s *BrowseSession) issueCurrent(ctx context.Context) (*RequestHandle, error) {
	s.mu.Lock()
	filters := s.filters
	s.mu.Unlock()

	d, err := s.builder.Build(filters, s.pagination.Page(), s.pagination.PageSize(), s.modes.Mode())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.descriptor = d
	s.mu.Unlock()

	return s.requests.Issue(ctx, d), nil
}

// rederive brings the swipe cursor and pagination in line with the result
// store and favorites. Runs on every store or ledger change.
func (s *BrowseSession) rederive() {
	snap, cards, d := s.current()
	if snap.Status != ResultReady {
		return
	}

	if d.ClientPaged {
		s.pagination.SetTotal(len(cards))
	} else if snap.Page != nil && d.Mode == entities.ViewModeGrid {
		s.pagination.SetTotal(snap.Page.TotalCount)
	}

	if d.Mode.FetchesAll() {
		items := make([]entities.ProviderSummary, len(cards))
		for i, card := range cards {
			items[i] = card.ProviderSummary
		}
		s.swipe.Sync(items)
	}
}

// current returns the result snapshot, the cards to present and the active
// descriptor. A page fetched for another descriptor, such as the grid page
// kept while a fetch-all loads, is withheld: the snapshot comes back without
// it and a Ready status reads as Idle.
func (s *BrowseSession) current() (ResultSnapshot, []ProviderCard, entities.QueryDescriptor) {
	snap := s.store.Snapshot()
	s.mu.Lock()
	onlyFavorited := s.filters.OnlyFavorited
	d := s.descriptor
	s.mu.Unlock()

	if snap.PageKey != d.Key() {
		snap.Page = nil
		if snap.Status == ResultReady {
			snap.Status = ResultIdle
		}
		return snap, nil, d
	}
	return snap, projectCards(snap.Items(), s.favorites.Snapshot(), onlyFavorited), d
}

// swipeShown reports whether swipe mode is showing a card from the active
// result set
func (s *BrowseSession) swipeShown() bool {
	if s.modes.Mode() != entities.ViewModeSwipe {
		return false
	}
	_, cards, _ := s.current()
	return len(cards) > 0
}

func (s *BrowseSession) sessionContext(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return nil, apperrors.NewInternalError("browse session not started", nil)
	}
	if s.ctx.Err() != nil {
		return nil, apperrors.NewInternalError("browse session ended", s.ctx.Err())
	}
	return s.ctx, nil
}

func viewStatus(snap ResultSnapshot, cards []ProviderCard) ViewStatus {
	return ViewStatus{
		Status: snap.Status,
		Err:    snap.Err,
		Empty:  snap.Status == ResultReady && len(cards) == 0,
	}
}
