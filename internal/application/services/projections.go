package services

import (
	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// ProviderCard is a provider as shown in any view, merged with favorite state
type ProviderCard struct {
	entities.ProviderSummary
	Favorited       bool `json:"favorited"`
	FavoritePending bool `json:"favorite_pending"`
}

// ViewStatus is the load status shared by every view
type ViewStatus struct {
	Status ResultStatus
	Err    error
	// Empty is true when a completed search matched nothing
	Empty bool
}

// SwipeView is the card-by-card projection
type SwipeView struct {
	ViewStatus
	Current *ProviderCard
	State   entities.SwipeState
}

// GridView is the paginated projection
type GridView struct {
	ViewStatus
	Cards []ProviderCard
	Page  PageInfo
}

// MapMarker places one provider location on the map
type MapMarker struct {
	ProviderID string            `json:"provider_id"`
	Label      string            `json:"label"`
	Location   entities.Location `json:"location"`
	Favorited  bool              `json:"favorited"`
}

// MapView is the geospatial projection
type MapView struct {
	ViewStatus
	Cards   []ProviderCard
	Markers []MapMarker
	Bounds  *GeoBounds
	// Unplaced counts providers without any geocoded location
	Unplaced int
}

// projectCards merges favorite state into items and applies favorites
// narrowing. While favorites are still unknown nothing is narrowed.
func projectCards(items []entities.ProviderSummary, favorites FavoritesSnapshot, onlyFavorited bool) []ProviderCard {
	cards := make([]ProviderCard, 0, len(items))
	for _, item := range items {
		entry, ok := favorites.Entries[item.ID]
		card := ProviderCard{
			ProviderSummary: item,
			Favorited:       ok && entry.Favorited(),
			FavoritePending: ok && entry.Pending(),
		}
		if onlyFavorited && favorites.Known && !card.Favorited {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func pageOf(cards []ProviderCard, info PageInfo) []ProviderCard {
	start := (info.Page - 1) * info.PageSize
	if start < 0 || start >= len(cards) {
		return []ProviderCard{}
	}
	end := start + info.PageSize
	if end > len(cards) {
		end = len(cards)
	}
	return cards[start:end]
}

func projectMap(cards []ProviderCard) ([]MapMarker, *GeoBounds, int) {
	markers := make([]MapMarker, 0, len(cards))
	points := make([]entities.Location, 0, len(cards))
	unplaced := 0

	for _, card := range cards {
		placed := false
		for _, loc := range card.Locations {
			if loc.Coordinates == nil {
				continue
			}
			placed = true
			label := card.DisplayName
			if loc.Label != "" {
				label = card.DisplayName + " · " + loc.Label
			}
			markers = append(markers, MapMarker{
				ProviderID: card.ID,
				Label:      label,
				Location:   *loc.Coordinates,
				Favorited:  card.Favorited,
			})
			points = append(points, *loc.Coordinates)
		}
		if !placed {
			unplaced++
		}
	}
	return markers, boundsOf(points), unplaced
}
