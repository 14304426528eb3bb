package providers

import (
	"context"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// CatalogService is the remote catalog the browse session reads from and
// writes favorites through. Every call honours ctx cancellation and deadline.
type CatalogService interface {
	// Search returns the page of providers matching the descriptor
	Search(ctx context.Context, descriptor entities.QueryDescriptor) (*entities.ResultPage, error)

	// GetFavorites returns the favorited provider IDs of the session's user
	GetFavorites(ctx context.Context, sessionToken string) ([]string, error)

	// ToggleFavorite flips the favorite state of a provider and reports the
	// server's view of the outcome
	ToggleFavorite(ctx context.Context, sessionToken, providerID string) (*entities.ToggleResult, error)

	// GetProvider loads the full profile for the detail view
	GetProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error)
}
