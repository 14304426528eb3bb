package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
	"github.com/zatekoja/provider-browser/pkg/retry"
)

// DefaultMutationDeadline bounds how long a favorite may stay pending
const DefaultMutationDeadline = 10 * time.Second

// FavoritesLedgerConfig configures the favorites ledger
type FavoritesLedgerConfig struct {
	MutationDeadline time.Duration
	SeedRetry        retry.Config
}

// FavoritesSnapshot is a copy of the ledger handed to observers
type FavoritesSnapshot struct {
	Entries map[string]entities.FavoriteEntry
	// Known is false until the first successful seed
	Known bool
}

// Favorited reports the optimistic membership of id
func (s FavoritesSnapshot) Favorited(id string) bool {
	entry, ok := s.Entries[id]
	return ok && entry.Favorited()
}

// FavoritesLedger is the session's authoritative set of favorited providers.
//
// Toggles apply optimistically as Pending entries, then resolve to whatever the
// server reports or roll back to the previous value. Toggles for the same
// provider run strictly one after another in issue order; toggles for different
// providers run concurrently.
type FavoritesLedger struct {
	catalog  providers.CatalogService
	auth     providers.AuthContext
	deadline time.Duration
	seed     retry.Config
	metrics  *observability.Metrics

	mu      sync.Mutex
	entries map[string]entities.FavoriteEntry
	known   bool
	epoch   uint64

	// version counts server-confirmed changes. changed holds the version of
	// the last one per provider and listed the version at which a toggle
	// response last carried the full favorites list.
	version uint64
	changed map[string]uint64
	listed  uint64

	queues    map[string]chan struct{}
	observers map[int]func(FavoritesSnapshot)
	nextID    int
}

// NewFavoritesLedger creates an empty, unseeded ledger
func NewFavoritesLedger(catalog providers.CatalogService, auth providers.AuthContext, cfg FavoritesLedgerConfig, metrics *observability.Metrics) *FavoritesLedger {
	if cfg.MutationDeadline <= 0 {
		cfg.MutationDeadline = DefaultMutationDeadline
	}
	if cfg.SeedRetry.MaxAttempts == 0 {
		cfg.SeedRetry = retry.DefaultConfig()
	}
	if cfg.SeedRetry.Retryable == nil {
		cfg.SeedRetry.Retryable = func(err error) bool {
			return !apperrors.IsAuthRequired(err) && !apperrors.IsApplication(err)
		}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}

	return &FavoritesLedger{
		catalog:   catalog,
		auth:      auth,
		deadline:  cfg.MutationDeadline,
		seed:      cfg.SeedRetry,
		metrics:   metrics,
		entries:   make(map[string]entities.FavoriteEntry),
		changed:   make(map[string]uint64),
		queues:    make(map[string]chan struct{}),
		observers: make(map[int]func(FavoritesSnapshot)),
	}
}

// Seed loads the user's favorites from the catalog and merges them into the
// ledger. Entries with a mutation in flight keep their pending value, and
// entries the server confirmed after the load was sent keep that newer state.
// Unauthenticated sessions are marked known with an empty set.
func (l *FavoritesLedger) Seed(ctx context.Context) error {
	if !l.auth.IsAuthenticated() {
		epoch, since := l.position()
		l.merge(nil, epoch, since)
		return nil
	}

	epoch, since := l.position()
	logger := observability.LoggerFromContext(ctx)

	var ids []string
	err := retry.DoWithLog(ctx, l.seed, "favorites seed", func(ctx context.Context) error {
		var err error
		ids, err = l.catalog.GetFavorites(ctx, l.auth.SessionToken())
		return err
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load favorites")
		return err
	}

	l.merge(ids, epoch, since)
	logger.Debug().Int("count", len(ids)).Msg("favorites seeded")
	return nil
}

// Toggle flips the favorite state of providerID.
//
// The change is visible to observers immediately as a pending entry. On
// success the entry takes the state the server reports; on failure or when the
// mutation deadline passes it is restored to exactly its previous value and
// the error is returned. Unauthenticated callers get an AuthRequired error and
// the ledger is not touched.
func (l *FavoritesLedger) Toggle(ctx context.Context, providerID string) (entities.ToggleAction, error) {
	if !l.auth.IsAuthenticated() {
		action := "save providers to your favorites"
		l.auth.PromptLogin(action)
		return "", apperrors.NewAuthRequiredError(action)
	}
	if providerID == "" {
		return "", apperrors.NewValidationError("provider id is required")
	}

	release, err := l.enqueue(ctx, providerID)
	if err != nil {
		return "", err
	}
	defer release()

	return l.mutate(ctx, providerID)
}

// IsFavorited reports the optimistic membership of providerID
func (l *FavoritesLedger) IsFavorited(providerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[providerID]
	return ok && entry.Favorited()
}

// Entry returns the ledger value for providerID
func (l *FavoritesLedger) Entry(providerID string) (entities.FavoriteEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[providerID]
	return entry, ok
}

// Known reports whether favorites have been loaded at least once
func (l *FavoritesLedger) Known() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.known
}

// Snapshot returns a copy of the ledger
func (l *FavoritesLedger) Snapshot() FavoritesSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Reset forgets every entry; in-flight toggles settle without touching the
// fresh ledger.
func (l *FavoritesLedger) Reset() {
	l.mu.Lock()
	l.epoch++
	l.entries = make(map[string]entities.FavoriteEntry)
	l.changed = make(map[string]uint64)
	l.listed = 0
	l.known = false
	snap := l.snapshotLocked()
	observers := l.observersLocked()
	l.mu.Unlock()

	notify(observers, snap)
}

// Subscribe registers fn to be called with every ledger change. The returned
// function removes the observer.
func (l *FavoritesLedger) Subscribe(fn func(FavoritesSnapshot)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

// enqueue waits for every earlier toggle of providerID to finish. The returned
// release hands the provider to the next toggle in line.
func (l *FavoritesLedger) enqueue(ctx context.Context, providerID string) (func(), error) {
	done := make(chan struct{})

	l.mu.Lock()
	prev := l.queues[providerID]
	l.queues[providerID] = done
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		if l.queues[providerID] == done {
			delete(l.queues, providerID)
		}
		l.mu.Unlock()
		close(done)
	}

	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// Keep our place so later toggles still wait for the earlier one.
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

func (l *FavoritesLedger) mutate(ctx context.Context, providerID string) (entities.ToggleAction, error) {
	ctx, span := observability.Tracer().Start(ctx, "favorites.toggle")
	span.SetAttributes(attribute.String("provider.id", providerID))
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	l.mu.Lock()
	epoch := l.epoch
	prior, hadPrior := l.entries[providerID]
	optimistic := entities.FavoriteEntry{
		Status:   entities.FavoritePendingAdd,
		Deadline: time.Now().Add(l.deadline),
	}
	if hadPrior && prior.Favorited() {
		optimistic.Status = entities.FavoritePendingRemove
	}
	l.entries[providerID] = optimistic
	snap := l.snapshotLocked()
	observers := l.observersLocked()
	l.mu.Unlock()
	notify(observers, snap)

	l.metrics.FavoriteToggleCount.Add(ctx, 1)
	result, err := l.callToggle(ctx, providerID)

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return "", apperrors.NewInternalError("favorites reset while toggle was in flight", err)
	}
	if err != nil {
		if hadPrior {
			l.entries[providerID] = prior
		} else {
			delete(l.entries, providerID)
		}
	} else {
		l.applyServerLocked(providerID, result)
	}
	snap = l.snapshotLocked()
	observers = l.observersLocked()
	l.mu.Unlock()
	notify(observers, snap)

	if err != nil {
		l.metrics.FavoriteRollback.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Str("provider_id", providerID).Msg("favorite toggle rolled back")
		return "", err
	}
	return result.Action, nil
}

// callToggle performs the remote mutation within the pending deadline. Expiry
// counts as failure even if the transport ignores ctx.
func (l *FavoritesLedger) callToggle(ctx context.Context, providerID string) (*entities.ToggleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.deadline)
	defer cancel()

	type outcome struct {
		result *entities.ToggleResult
		err    error
	}
	results := make(chan outcome, 1)
	go func() {
		res, err := l.catalog.ToggleFavorite(ctx, l.auth.SessionToken(), providerID)
		results <- outcome{result: res, err: err}
	}()

	select {
	case out := <-results:
		if out.err != nil {
			if ctx.Err() == context.DeadlineExceeded && apperrors.TypeOf(out.err) == "" {
				return nil, apperrors.NewTimeoutError("favorite toggle expired", out.err)
			}
			if apperrors.TypeOf(out.err) == "" {
				return nil, apperrors.NewNetworkError("favorite toggle failed", out.err)
			}
			return nil, out.err
		}
		if out.result == nil {
			return nil, apperrors.NewApplicationError("catalog returned an empty toggle response")
		}
		return out.result, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewTimeoutError(fmt.Sprintf("favorite toggle exceeded %s", l.deadline), ctx.Err())
		}
		return nil, apperrors.NewNetworkError("favorite toggle aborted", ctx.Err())
	}
}

// applyServerLocked resolves the pending entry to the server's reported state
// and reconciles every settled entry with the server's favorites list.
func (l *FavoritesLedger) applyServerLocked(providerID string, result *entities.ToggleResult) {
	server := make(map[string]struct{}, len(result.Favorites))
	for _, id := range result.Favorites {
		server[id] = struct{}{}
	}

	l.version++
	l.changed[providerID] = l.version

	favorited := result.Action == entities.ToggleAdded
	if result.Favorites != nil {
		_, favorited = server[providerID]
	}
	if favorited {
		l.entries[providerID] = entities.FavoriteEntry{Status: entities.FavoriteConfirmed}
	} else {
		delete(l.entries, providerID)
	}

	if result.Favorites == nil {
		return
	}
	l.listed = l.version
	for id, entry := range l.entries {
		if entry.Pending() || id == providerID {
			continue
		}
		if _, ok := server[id]; !ok {
			delete(l.entries, id)
		}
	}
	for id := range server {
		if _, ok := l.entries[id]; !ok {
			l.entries[id] = entities.FavoriteEntry{Status: entities.FavoriteConfirmed}
		}
	}
}

// merge installs a favorites list loaded when the ledger stood at version
// since. A toggle response carrying the full list after that point is newer
// than ids, so ids are dropped; otherwise per-provider changes made after
// since win over ids.
func (l *FavoritesLedger) merge(ids []string, epoch, since uint64) {
	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return
	}
	if l.listed <= since {
		next := make(map[string]entities.FavoriteEntry, len(ids))
		for id, entry := range l.entries {
			if entry.Pending() || l.changed[id] > since {
				next[id] = entry
			}
		}
		for _, id := range ids {
			if _, kept := next[id]; kept || l.changed[id] > since {
				continue
			}
			next[id] = entities.FavoriteEntry{Status: entities.FavoriteConfirmed}
		}
		l.entries = next
	}
	l.known = true
	snap := l.snapshotLocked()
	observers := l.observersLocked()
	l.mu.Unlock()

	notify(observers, snap)
}

// position returns the epoch and version a seed starts from
func (l *FavoritesLedger) position() (epoch, version uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch, l.version
}

func (l *FavoritesLedger) snapshotLocked() FavoritesSnapshot {
	entries := make(map[string]entities.FavoriteEntry, len(l.entries))
	for id, entry := range l.entries {
		entries[id] = entry
	}
	return FavoritesSnapshot{Entries: entries, Known: l.known}
}

func (l *FavoritesLedger) observersLocked() []func(FavoritesSnapshot) {
	out := make([]func(FavoritesSnapshot), 0, len(l.observers))
	for _, fn := range l.observers {
		out = append(out, fn)
	}
	return out
}

func notify[T any](observers []func(T), value T) {
	for _, fn := range observers {
		fn(value)
	}
}
