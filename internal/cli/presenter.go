package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
)

// ProviderLoader loads full provider profiles
type ProviderLoader interface {
	LoadProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error)
}

// DetailPresenter prints a provider profile when the user swipes up. Output
// is serialized with the REPL through the shared writer lock.
type DetailPresenter struct {
	loader   ProviderLoader
	renderer *Renderer

	mu  *sync.Mutex
	out io.Writer
}

var _ providers.DetailPresenter = (*DetailPresenter)(nil)

// NewDetailPresenter creates a presenter writing to out under mu
func NewDetailPresenter(loader ProviderLoader, renderer *Renderer, out io.Writer, mu *sync.Mutex) *DetailPresenter {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &DetailPresenter{loader: loader, renderer: renderer, out: out, mu: mu}
}

func (p *DetailPresenter) Present(ctx context.Context, providerID string) {
	detail, err := p.loader.LoadProvider(ctx, providerID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", providerID).Msg("failed to load provider details")
		fmt.Fprintln(p.out, p.renderer.Error(err))
		return
	}
	fmt.Fprintln(p.out, p.renderer.Detail(detail))
}
