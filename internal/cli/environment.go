package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
)

// StaticAuth is the signed-in state handed to the CLI through configuration.
// The CLI cannot sign a user in itself; PromptLogin tells the user how to.
type StaticAuth struct {
	userID string
	token  string

	mu  *sync.Mutex
	out io.Writer
}

var _ providers.AuthContext = (*StaticAuth)(nil)

// NewStaticAuth creates an auth context. An empty token means signed out.
// Login prompts are written to out under mu.
func NewStaticAuth(userID, token string, out io.Writer, mu *sync.Mutex) *StaticAuth {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &StaticAuth{
		userID: strings.TrimSpace(userID),
		token:  strings.TrimSpace(token),
		mu:     mu,
		out:    out,
	}
}

func (a *StaticAuth) IsAuthenticated() bool {
	return a.token != ""
}

func (a *StaticAuth) CurrentUserID() string {
	return a.userID
}

func (a *StaticAuth) SessionToken() string {
	return a.token
}

func (a *StaticAuth) PromptLogin(action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, "Sign in to %s: set BROWSE_SESSION_TOKEN and restart.\n", action)
}

// Direction is a fixed reading direction
type Direction entities.TextDirection

var _ providers.DirectionProvider = Direction("")

func (d Direction) TextDirection() entities.TextDirection {
	if entities.TextDirection(d) == entities.TextDirectionRTL {
		return entities.TextDirectionRTL
	}
	return entities.TextDirectionLTR
}
