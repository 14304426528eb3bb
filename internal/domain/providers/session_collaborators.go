package providers

import (
	"context"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// AuthContext exposes the signed-in state of the user. The browse session only
// reads it and asks it to prompt for a login.
type AuthContext interface {
	IsAuthenticated() bool
	CurrentUserID() string
	SessionToken() string

	// PromptLogin asks the user to sign in before performing action
	PromptLogin(action string)
}

// DetailPresenter opens the detail view for a provider
type DetailPresenter interface {
	Present(ctx context.Context, providerID string)
}

// DirectionProvider supplies the reading direction of the presentation
type DirectionProvider interface {
	TextDirection() entities.TextDirection
}
