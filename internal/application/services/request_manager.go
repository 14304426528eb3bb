package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

// DefaultRequestTimeout bounds every catalog search
const DefaultRequestTimeout = 10 * time.Second

// RequestManagerConfig configures the request lifecycle manager
type RequestManagerConfig struct {
	Timeout   time.Duration
	// CacheSize of 0 disables the result cache, so a mode switch that needs
	// the full set again always goes to the catalog.
	CacheSize int
	CacheTTL  time.Duration
}

// RequestHandle identifies one issued search. Only the most recently issued
// handle may write to the result store.
type RequestHandle struct {
	ID         string
	Generation uint64
	Descriptor entities.QueryDescriptor
	// FromCache is set when the handle was settled from the result cache
	FromCache bool

	key    string
	cancel context.CancelFunc
	done   chan struct{}
	page   *entities.ResultPage
	err    error
}

// Done is closed once the handle has settled
func (h *RequestHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the handle settles or ctx ends. A handle that lost
// authority before settling returns ErrSuperseded.
func (h *RequestHandle) Wait(ctx context.Context) (*entities.ResultPage, error) {
	select {
	case <-h.done:
		return h.page, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *RequestHandle) settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *RequestHandle) finish(page *entities.ResultPage, err error) {
	h.page = page
	h.err = err
	close(h.done)
}

// RequestManager issues catalog searches so that exactly one of them is
// authoritative at a time. Issuing a new search aborts the previous one and
// guarantees its result, whenever it arrives, is discarded.
type RequestManager struct {
	catalog providers.CatalogService
	store   *ResultStore
	timeout time.Duration
	cache   *expirable.LRU[string, *entities.ResultPage]
	metrics *observability.Metrics

	mu         sync.Mutex
	generation uint64
	current    *RequestHandle
}

// NewRequestManager creates a request lifecycle manager writing into store
func NewRequestManager(catalog providers.CatalogService, store *ResultStore, cfg RequestManagerConfig, metrics *observability.Metrics) *RequestManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}

	m := &RequestManager{
		catalog: catalog,
		store:   store,
		timeout: cfg.Timeout,
		metrics: metrics,
	}
	if cfg.CacheSize > 0 {
		m.cache = expirable.NewLRU[string, *entities.ResultPage](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return m
}

// Issue makes d the authoritative search and returns without waiting for it.
// A search for the key already in flight is joined rather than re-sent, and a
// cached result settles the handle immediately.
func (m *RequestManager) Issue(ctx context.Context, d entities.QueryDescriptor) *RequestHandle {
	return m.issue(ctx, d, false)
}

// Refresh is Issue without the result cache or in-flight joining; used to retry
// after an error.
func (m *RequestManager) Refresh(ctx context.Context, d entities.QueryDescriptor) *RequestHandle {
	return m.issue(ctx, d, true)
}

// Fetch issues d and waits for its outcome
func (m *RequestManager) Fetch(ctx context.Context, d entities.QueryDescriptor) (*entities.ResultPage, error) {
	return m.Issue(ctx, d).Wait(ctx)
}

// Current returns the authoritative handle, if any
func (m *RequestManager) Current() *RequestHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CancelAll revokes the authoritative handle without issuing a new one
func (m *RequestManager) CancelAll() {
	m.mu.Lock()
	m.generation++
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
}

// PurgeCache drops every cached result
func (m *RequestManager) PurgeCache() {
	if m.cache != nil {
		m.cache.Purge()
	}
}

func (m *RequestManager) issue(ctx context.Context, d entities.QueryDescriptor, bypassCache bool) *RequestHandle {
	key := d.Key()
	logger := observability.LoggerFromContext(ctx)

	m.mu.Lock()
	if !bypassCache {
		if cur := m.current; cur != nil && cur.key == key && !cur.settled() {
			m.mu.Unlock()
			return cur
		}
	}

	m.generation++
	h := &RequestHandle{
		ID:         uuid.NewString(),
		Generation: m.generation,
		Descriptor: d,
		key:        key,
		done:       make(chan struct{}),
	}
	prev := m.current
	m.current = h

	if !bypassCache && m.cache != nil {
		if page, ok := m.cache.Get(key); ok {
			h.FromCache = true
			h.cancel = func() {}
			m.store.Replace(key, page)
			m.mu.Unlock()

			if prev != nil {
				prev.cancel()
			}
			m.metrics.ResultCacheHit.Add(ctx, 1)
			logger.Debug().Str("request_id", h.ID).Str("key", key).Msg("search served from result cache")
			h.finish(page.Clone(), nil)
			return h
		}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	m.store.MarkLoading(key)
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	m.metrics.FetchCount.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(d.Mode))))
	logger.Debug().Str("request_id", h.ID).Uint64("generation", h.Generation).Str("key", key).Msg("search issued")

	go m.run(reqCtx, h)
	return h
}

type searchOutcome struct {
	page *entities.ResultPage
	err  error
}

func (m *RequestManager) run(ctx context.Context, h *RequestHandle) {
	defer h.cancel()

	ctx, span := observability.Tracer().Start(ctx, "catalog.search")
	span.SetAttributes(
		attribute.String("request.id", h.ID),
		attribute.String("query.key", h.key),
	)
	defer span.End()

	start := time.Now()
	results := make(chan searchOutcome, 1)
	go func() {
		page, err := m.catalog.Search(ctx, h.Descriptor)
		results <- searchOutcome{page: page, err: err}
	}()

	// The deadline is enforced here rather than trusted to the transport.
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	var out searchOutcome
	select {
	case out = <-results:
	case <-timer.C:
		h.cancel()
		out.err = apperrors.NewTimeoutError(fmt.Sprintf("catalog search exceeded %s", m.timeout), context.DeadlineExceeded)
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err == nil && out.page == nil {
		out.err = apperrors.NewApplicationError("catalog returned an empty response")
	}
	if out.err != nil {
		out.err = classifyFetchError(out.err)
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	}
	m.metrics.FetchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))

	m.settle(ctx, h, out)
}

func (m *RequestManager) settle(ctx context.Context, h *RequestHandle, out searchOutcome) {
	logger := observability.LoggerFromContext(ctx)

	m.mu.Lock()
	authoritative := m.current == h && h.Generation == m.generation
	if authoritative {
		if out.err == nil {
			if m.cache != nil {
				m.cache.Add(h.key, out.page.Clone())
			}
			m.store.Replace(h.key, out.page)
		} else {
			m.store.Fail(h.key, out.err)
		}
	}
	m.mu.Unlock()

	if !authoritative {
		m.metrics.FetchSuperseded.Add(ctx, 1)
		logger.Debug().Str("request_id", h.ID).Uint64("generation", h.Generation).Msg("discarding superseded search result")
		h.finish(nil, apperrors.ErrSuperseded)
		return
	}

	if out.err != nil {
		logger.Warn().Err(out.err).Str("request_id", h.ID).Msg("catalog search failed")
		h.finish(nil, out.err)
		return
	}
	h.finish(out.page.Clone(), nil)
}

// classifyFetchError maps raw errors onto the fetch error taxonomy
func classifyFetchError(err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("catalog search timed out", err)
	case stderrors.Is(err, context.Canceled):
		return apperrors.NewNetworkError("catalog search aborted", err)
	}
	return apperrors.NewNetworkError("catalog search failed", err)
}
