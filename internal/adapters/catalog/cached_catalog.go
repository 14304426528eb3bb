package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
)

// DefaultSearchTTL bounds how stale a shared search result may be
const DefaultSearchTTL = 2 * time.Minute

// providerTTL is longer: profiles change far less often than listings
const providerTTL = 10 * time.Minute

// CachedCatalog wraps a CatalogService with a shared cache for search results
// and provider profiles. Favorites are per user and always go to the backend.
type CachedCatalog struct {
	catalog   providers.CatalogService
	cache     providers.CacheProvider
	searchTTL time.Duration
}

// NewCachedCatalog creates a new cached catalog
func NewCachedCatalog(catalog providers.CatalogService, cache providers.CacheProvider, searchTTL time.Duration) providers.CatalogService {
	if searchTTL <= 0 {
		searchTTL = DefaultSearchTTL
	}
	return &CachedCatalog{
		catalog:   catalog,
		cache:     cache,
		searchTTL: searchTTL,
	}
}

func searchCacheKey(d entities.QueryDescriptor) string {
	return "search:" + d.Key()
}

func providerCacheKey(id string) string {
	return "provider:" + id
}

// Search serves from the shared cache when possible
func (c *CachedCatalog) Search(ctx context.Context, d entities.QueryDescriptor) (*entities.ResultPage, error) {
	key := searchCacheKey(d)
	var page entities.ResultPage
	if c.lookup(ctx, key, &page) {
		return &page, nil
	}

	result, err := c.catalog.Search(ctx, d)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, result, c.searchTTL)
	return result, nil
}

// GetProvider serves profiles from the shared cache when possible
func (c *CachedCatalog) GetProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error) {
	key := providerCacheKey(providerID)
	var detail entities.ProviderDetail
	if c.lookup(ctx, key, &detail) {
		return &detail, nil
	}

	result, err := c.catalog.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, result, providerTTL)
	return result, nil
}

func (c *CachedCatalog) GetFavorites(ctx context.Context, sessionToken string) ([]string, error) {
	return c.catalog.GetFavorites(ctx, sessionToken)
}

func (c *CachedCatalog) ToggleFavorite(ctx context.Context, sessionToken, providerID string) (*entities.ToggleResult, error) {
	return c.catalog.ToggleFavorite(ctx, sessionToken, providerID)
}

// lookup reports whether key was cached and decoded into out. Cache failures
// are logged and treated as misses.
func (c *CachedCatalog) lookup(ctx context.Context, key string, out interface{}) bool {
	cached, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("shared cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(cached, out); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("shared cache write failed")
	}
}
