package services

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
)

// DefaultAnimationBudget is how long a swipe transition blocks further intents
const DefaultAnimationBudget = 300 * time.Millisecond

// SwipeEvent is emitted when a transition settles
type SwipeEvent struct {
	Direction  entities.SwipeDirection
	ProviderID string
	From       int
	To         int
}

// SwipeSession walks a cursor over the current result list.
//
// An accepted intent moves the machine to Animating for the animation budget;
// intents arriving meanwhile are dropped. When the budget elapses Left and
// Right advance the cursor, wrapping at the end, while Up opens the detail view
// and leaves the cursor where it was. The machine then reports Settled to
// observers and rests in Idle.
type SwipeSession struct {
	budget    time.Duration
	detail    providers.DetailPresenter
	direction providers.DirectionProvider

	mu        sync.Mutex
	ids       []string
	state     entities.SwipeState
	epoch     uint64
	timer     *time.Timer
	observers map[int]func(entities.SwipeState, *SwipeEvent)
	nextID    int
}

// NewSwipeSession creates an empty swipe session
func NewSwipeSession(budget time.Duration, detail providers.DetailPresenter, direction providers.DirectionProvider) *SwipeSession {
	if budget <= 0 {
		budget = DefaultAnimationBudget
	}
	return &SwipeSession{
		budget:    budget,
		detail:    detail,
		direction: direction,
		observers: make(map[int]func(entities.SwipeState, *SwipeEvent)),
	}
}

// Reset loads a new result list and puts the cursor back at 0, abandoning any
// running animation.
func (s *SwipeSession) Reset(items []entities.ProviderSummary) {
	s.mu.Lock()
	s.stopLocked()
	s.ids = providerIDs(items)
	s.state = entities.SwipeState{Length: len(s.ids)}
	state := s.state
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, state, nil)
}

// Sync updates the result list while keeping the cursor position, wrapped into
// the new length. Used when the same query is re-derived.
func (s *SwipeSession) Sync(items []entities.ProviderSummary) {
	s.mu.Lock()
	s.ids = providerIDs(items)
	s.state.Length = len(s.ids)
	if s.state.Length == 0 {
		s.stopLocked()
		s.state = entities.SwipeState{}
	} else {
		s.state.Cursor %= s.state.Length
	}
	state := s.state
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, state, nil)
}

// State returns a snapshot of the machine
func (s *SwipeSession) State() entities.SwipeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentID returns the provider under the cursor
func (s *SwipeSession) CurrentID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[s.state.Cursor], true
}

// Intent starts a transition in direction d. It reports false when the intent
// was ignored because the session is empty or already animating.
func (s *SwipeSession) Intent(ctx context.Context, d entities.SwipeDirection) bool {
	if d == entities.SwipeNone {
		return false
	}

	s.mu.Lock()
	if len(s.ids) == 0 || s.state.Phase == entities.SwipeAnimating {
		s.mu.Unlock()
		return false
	}
	s.state.Phase = entities.SwipeAnimating
	s.state.Direction = d
	epoch := s.epoch
	s.timer = time.AfterFunc(s.budget, func() {
		s.complete(context.WithoutCancel(ctx), epoch)
	})
	state := s.state
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, state, nil)
	return true
}

// Key translates a physical arrow key into an intent. Under right-to-left
// presentation the horizontal keys are mirrored.
func (s *SwipeSession) Key(ctx context.Context, key entities.Key) bool {
	return s.Intent(ctx, s.keyDirection(key))
}

// Close stops any pending transition
func (s *SwipeSession) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Subscribe registers fn for state changes; event is non-nil when a transition
// settles. The returned function removes the observer.
func (s *SwipeSession) Subscribe(fn func(entities.SwipeState, *SwipeEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *SwipeSession) keyDirection(key entities.Key) entities.SwipeDirection {
	rtl := s.direction != nil && s.direction.TextDirection() == entities.TextDirectionRTL
	switch key {
	case entities.KeyLeft:
		if rtl {
			return entities.SwipeRight
		}
		return entities.SwipeLeft
	case entities.KeyRight:
		if rtl {
			return entities.SwipeLeft
		}
		return entities.SwipeRight
	case entities.KeyUp:
		return entities.SwipeUp
	}
	return entities.SwipeNone
}

func (s *SwipeSession) complete(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.state.Phase != entities.SwipeAnimating || len(s.ids) == 0 {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	from := s.state.Cursor
	dir := s.state.Direction
	providerID := s.ids[from]
	to := from
	if dir == entities.SwipeLeft || dir == entities.SwipeRight {
		to = (from + 1) % len(s.ids)
	}

	event := &SwipeEvent{Direction: dir, ProviderID: providerID, From: from, To: to}
	settled := entities.SwipeState{Cursor: to, Direction: dir, Phase: entities.SwipeSettled, Length: len(s.ids)}
	s.state = entities.SwipeState{Cursor: to, Length: len(s.ids)}
	idle := s.state
	observers := s.observersLocked()
	s.mu.Unlock()

	if dir == entities.SwipeUp && s.detail != nil {
		s.detail.Present(ctx, providerID)
	}
	observability.LoggerFromContext(ctx).Debug().
		Str("direction", dir.String()).
		Int("from", from).
		Int("to", to).
		Msg("swipe settled")

	s.notify(observers, settled, event)
	s.notify(observers, idle, nil)
}

func (s *SwipeSession) stopLocked() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *SwipeSession) observersLocked() []func(entities.SwipeState, *SwipeEvent) {
	out := make([]func(entities.SwipeState, *SwipeEvent), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func (s *SwipeSession) notify(observers []func(entities.SwipeState, *SwipeEvent), state entities.SwipeState, event *SwipeEvent) {
	for _, fn := range observers {
		fn(state, event)
	}
}

func providerIDs(items []entities.ProviderSummary) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
