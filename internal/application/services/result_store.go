package services

import (
	"sync"
	"sync/atomic"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// ResultStatus is the load state of the result store
type ResultStatus int

const (
	ResultIdle ResultStatus = iota
	ResultLoading
	ResultReady
	ResultError
)

func (s ResultStatus) String() string {
	switch s {
	case ResultLoading:
		return "loading"
	case ResultReady:
		return "ready"
	case ResultError:
		return "error"
	}
	return "idle"
}

// ResultSnapshot is a consistent copy of the result store
type ResultSnapshot struct {
	Status ResultStatus
	// Page is the last successful page; it survives Loading and Error
	Page *entities.ResultPage
	Err  error
	// Key is the descriptor key the status refers to
	Key string
	// PageKey is the descriptor key Page was fetched for. It differs from Key
	// while a request for another descriptor is loading or has failed.
	PageKey string
	// Version increases on every change
	Version uint64
}

// Items returns the items of the last successful page
func (s ResultSnapshot) Items() []entities.ProviderSummary {
	if s.Page == nil {
		return nil
	}
	return s.Page.Items
}

// ResultStore holds the last successful result set and the load status.
// Every mutation swaps the whole snapshot under the lock, so readers never
// observe a partial update.
type ResultStore struct {
	mu        sync.RWMutex
	snap      ResultSnapshot
	observers map[int]func(ResultSnapshot)
	nextID    int
}

// NewResultStore creates an idle result store
func NewResultStore() *ResultStore {
	return &ResultStore{observers: make(map[int]func(ResultSnapshot))}
}

// Snapshot returns the current state
func (s *ResultStore) Snapshot() ResultSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// IsEmpty is true iff the store is Ready with zero items
func (s *ResultStore) IsEmpty() bool {
	snap := s.Snapshot()
	return snap.Status == ResultReady && len(snap.Items()) == 0
}

// MarkLoading records that a request for key is in flight
func (s *ResultStore) MarkLoading(key string) {
	s.update(func(snap ResultSnapshot) ResultSnapshot {
		snap.Status = ResultLoading
		snap.Err = nil
		snap.Key = key
		return snap
	})
}

// Replace atomically installs a successful page
func (s *ResultStore) Replace(key string, page *entities.ResultPage) {
	page = page.Clone()
	if page == nil {
		page = &entities.ResultPage{}
	}
	s.update(func(snap ResultSnapshot) ResultSnapshot {
		return ResultSnapshot{
			Status:  ResultReady,
			Page:    page,
			Key:     key,
			PageKey: key,
			Version: snap.Version,
		}
	})
}

// Fail records a failed request while keeping the last successful page
func (s *ResultStore) Fail(key string, err error) {
	s.update(func(snap ResultSnapshot) ResultSnapshot {
		snap.Status = ResultError
		snap.Err = err
		snap.Key = key
		return snap
	})
}

// DismissError clears a surfaced error. The store returns to Ready when it
// still holds a page, otherwise to Idle.
func (s *ResultStore) DismissError() {
	s.update(func(snap ResultSnapshot) ResultSnapshot {
		if snap.Status != ResultError {
			return snap
		}
		snap.Err = nil
		if snap.Page != nil {
			snap.Status = ResultReady
		} else {
			snap.Status = ResultIdle
		}
		return snap
	})
}

// Reset returns the store to Idle and drops the held page
func (s *ResultStore) Reset() {
	s.update(func(snap ResultSnapshot) ResultSnapshot {
		return ResultSnapshot{Version: snap.Version}
	})
}

// Subscribe registers fn to be called with every new snapshot. The returned
// function removes the observer.
//
// Observers run after the store lock is released, so two concurrent updates
// may reach an observer in either order. Snapshots carry Version for that:
// drop any snapshot older than one already handled, or re-read Snapshot.
func (s *ResultStore) Subscribe(fn func(ResultSnapshot)) func() {
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

func (s *ResultStore) update(mutate func(ResultSnapshot) ResultSnapshot) {
	s.mu.Lock()
	next := mutate(s.snap)
	next.Version = s.snap.Version + 1
	s.snap = next
	observers := make([]func(ResultSnapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

// versionGate admits each snapshot version at most once and never one older
// than a version already admitted.
type versionGate struct {
	latest atomic.Uint64
}

func (g *versionGate) admit(version uint64) bool {
	for {
		seen := g.latest.Load()
		if version <= seen {
			return false
		}
		if g.latest.CompareAndSwap(seen, version) {
			return true
		}
	}
}
