package loaders

import (
	"context"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
)

// batchWait is how long the loader collects keys before dispatching
const batchWait = 5 * time.Millisecond

// Loaders contains the dataloaders used by the detail view
type Loaders struct {
	ProviderLoader *dataloader.Loader[string, *entities.ProviderDetail]
}

// NewLoaders creates the loaders over catalog. The catalog has no batch
// endpoint, so a batch fans out one GetProvider per distinct key; the loader
// still deduplicates concurrent requests and memoizes results.
func NewLoaders(catalog providers.CatalogService) *Loaders {
	return &Loaders{
		ProviderLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []string) []*dataloader.Result[*entities.ProviderDetail] {
				results := make([]*dataloader.Result[*entities.ProviderDetail], len(keys))
				var wg sync.WaitGroup
				for i, key := range keys {
					wg.Add(1)
					go func(i int, key string) {
						defer wg.Done()
						detail, err := catalog.GetProvider(ctx, key)
						results[i] = &dataloader.Result[*entities.ProviderDetail]{Data: detail, Error: err}
					}(i, key)
				}
				wg.Wait()
				return results
			},
			dataloader.WithWait[string, *entities.ProviderDetail](batchWait),
		),
	}
}

// LoadProvider loads one provider profile. Failed loads are evicted so the
// next request retries instead of replaying the error.
func (l *Loaders) LoadProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error) {
	detail, err := l.ProviderLoader.Load(ctx, providerID)()
	if err != nil {
		l.ProviderLoader.Clear(ctx, providerID)
		return nil, err
	}
	return detail, nil
}
