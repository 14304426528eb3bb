package entities

import "time"

// FavoriteStatus is the ledger state of a favorited entity
type FavoriteStatus int

const (
	// FavoriteConfirmed means the server agrees the entity is a favorite
	FavoriteConfirmed FavoriteStatus = iota + 1
	// FavoritePendingAdd is an optimistic add awaiting the server
	FavoritePendingAdd
	// FavoritePendingRemove is an optimistic removal awaiting the server
	FavoritePendingRemove
)

func (s FavoriteStatus) String() string {
	switch s {
	case FavoriteConfirmed:
		return "confirmed"
	case FavoritePendingAdd:
		return "pending_add"
	case FavoritePendingRemove:
		return "pending_remove"
	}
	return "unknown"
}

// FavoriteEntry is the ledger value for one entity. Entities without an entry
// are not favorited.
type FavoriteEntry struct {
	Status FavoriteStatus
	// Deadline is set for pending entries only
	Deadline time.Time
}

// Favorited reports the optimistic membership of the entry
func (e FavoriteEntry) Favorited() bool {
	return e.Status == FavoriteConfirmed || e.Status == FavoritePendingAdd
}

// Pending reports whether a mutation is in flight for the entry
func (e FavoriteEntry) Pending() bool {
	return e.Status == FavoritePendingAdd || e.Status == FavoritePendingRemove
}

// ToggleAction is the outcome of a favorite toggle as reported by the server
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)

// ToggleResult is the server's reply to a toggle
type ToggleResult struct {
	Action    ToggleAction `json:"action"`
	Favorites []string     `json:"favorites"`
}
