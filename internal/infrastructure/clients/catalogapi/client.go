package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

// RequestIDHeader carries a per-request id for server-side correlation
const RequestIDHeader = "X-Request-ID"

// HTTPClient is the catalog backend reached over JSON/HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.CatalogService = (*HTTPClient)(nil)

// envelope is the response wrapper every catalog endpoint uses
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

type searchData struct {
	Items []entities.ProviderSummary `json:"items"`
	Total int                        `json:"total"`
	Page  int                        `json:"page"`
}

type favoritesData struct {
	Favorites []string `json:"favorites"`
}

type toggleData struct {
	Action    entities.ToggleAction `json:"action"`
	Favorites []string              `json:"favorites"`
}

// NewClient creates a client for baseURL. timeout bounds the whole HTTP
// exchange; callers still enforce their own deadlines through ctx.
func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Search(ctx context.Context, d entities.QueryDescriptor) (*entities.ResultPage, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/providers", c.baseURL))
	if err != nil {
		return nil, apperrors.NewInternalError("invalid catalog base url", err)
	}
	parsed.RawQuery = d.Values().Encode()

	var data searchData
	if err := c.doJSON(ctx, http.MethodGet, parsed.String(), "", nil, &data); err != nil {
		return nil, err
	}

	page := data.Page
	if page < 1 {
		page = d.Page
	}
	items := data.Items
	if items == nil {
		items = []entities.ProviderSummary{}
	}
	return &entities.ResultPage{Items: items, TotalCount: data.Total, Page: page}, nil
}

func (c *HTTPClient) GetProvider(ctx context.Context, providerID string) (*entities.ProviderDetail, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	endpoint := fmt.Sprintf("%s/providers/%s", c.baseURL, url.PathEscape(providerID))

	out := &entities.ProviderDetail{}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetFavorites(ctx context.Context, sessionToken string) ([]string, error) {
	var data favoritesData
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/favorites", sessionToken, nil, &data); err != nil {
		return nil, err
	}
	if data.Favorites == nil {
		return []string{}, nil
	}
	return data.Favorites, nil
}

func (c *HTTPClient) ToggleFavorite(ctx context.Context, sessionToken, providerID string) (*entities.ToggleResult, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	endpoint := fmt.Sprintf("%s/favorites/%s/toggle", c.baseURL, url.PathEscape(providerID))

	var data toggleData
	if err := c.doJSON(ctx, http.MethodPost, endpoint, sessionToken, nil, &data); err != nil {
		return nil, err
	}
	switch data.Action {
	case entities.ToggleAdded, entities.ToggleRemoved:
	default:
		return nil, apperrors.NewApplicationError(fmt.Sprintf("unexpected toggle action %q", data.Action))
	}
	return &entities.ToggleResult{Action: data.Action, Favorites: data.Favorites}, nil
}

// doJSON performs one request and decodes the envelope's data into out.
//
// Transport failures and non-2xx statuses are NetworkErrors, except 401 which
// means the session token is missing or expired. A well-formed envelope with
// success=false is an ApplicationError carrying the server's message.
func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint, token string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apperrors.NewInternalError("failed to build catalog request", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("catalog request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.NewTimeoutError("catalog request deadline exceeded", err)
		}
		return apperrors.NewNetworkError("catalog request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewAuthRequiredError("continue")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewNetworkError(fmt.Sprintf("catalog api returned status %d", resp.StatusCode), nil)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.NewNetworkError("failed to decode catalog response", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "catalog request was rejected"
		}
		return apperrors.NewApplicationError(msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.NewNetworkError("failed to decode catalog payload", err)
	}
	return nil
}
