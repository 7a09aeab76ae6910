// Package importer populates the entity tree from the external
// asset-management API.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/logging"
)

const (
	defaultPageSize = 100
	defaultTimeout  = 60 * time.Second

	// tokenExpirySkew forces a refresh slightly before the server-side
	// expiry so an almost-expired token is never sent.
	tokenExpirySkew = 30 * time.Second
)

// APIError represents a non-2xx response from the asset API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asset api request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// Query selects which assets to fetch: either by asset type or by an explicit
// id list. When both are set the id list wins.
type Query struct {
	TypeFilter string
	AssetIDs   []string
}

// Client is an HTTP client for the asset-management API with cached bearer
// token authentication.
type Client struct {
	baseURL      string
	tenant       string
	clientID     string
	clientSecret string
	pageSize     int
	httpClient   *http.Client
	logger       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithPageSize sets the pagination page size.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the asset API at baseURL authenticating as
// the given tenant.
func NewClient(baseURL, tenant, clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tenant:       tenant,
		clientID:     clientID,
		clientSecret: clientSecret,
		pageSize:     defaultPageSize,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		logger:       logging.Component("importer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid bearer token, fetching a new one only when the
// cached token is missing or inside the expiry skew.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySkew)) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"tenant":        c.tenant,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.logger.Debug().Time("expiry", c.tokenExpiry).Msg("fetched access token")

	return c.token, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.tenant != "" {
		req.Header.Set("X-Tenant", c.tenant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// assetRecord is the wire shape of one asset in a list response.
type assetRecord struct {
	AssetID string `json:"assetId"`
	Name    string `json:"name"`
	Type    string `json:"typeName,omitempty"`
}

type assetPage struct {
	Assets     []assetRecord `json:"assets"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

// FetchAssets lists assets matching the query, following pagination until the
// last page.
func (c *Client) FetchAssets(ctx context.Context, q Query) ([]assetRecord, error) {
	var all []assetRecord

	for page := 0; ; page++ {
		values := url.Values{}
		values.Set("page", fmt.Sprintf("%d", page))
		values.Set("size", fmt.Sprintf("%d", c.pageSize))
		if len(q.AssetIDs) > 0 {
			values.Set("ids", strings.Join(q.AssetIDs, ","))
		} else if q.TypeFilter != "" {
			values.Set("typeName", q.TypeFilter)
		}

		var result assetPage
		if err := c.get(ctx, "/api/assets", values, &result); err != nil {
			return nil, fmt.Errorf("fetch assets page %d: %w", page, err)
		}

		all = append(all, result.Assets...)
		if result.TotalPages == 0 || page >= result.TotalPages-1 {
			break
		}
	}

	c.logger.Info().Int("count", len(all)).Msg("fetched assets")
	return all, nil
}

// aspectRecord is the wire shape of one aspect with its variables.
type aspectRecord struct {
	Name      string           `json:"name"`
	Type      string           `json:"aspectType,omitempty"`
	Variables []variableRecord `json:"variables"`
}

type variableRecord struct {
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	DataType string `json:"dataType"`
}

type aspectsResponse struct {
	Aspects []aspectRecord `json:"aspects"`
}

// FetchAspects lists the aspects (with variables) of one asset.
func (c *Client) FetchAspects(ctx context.Context, assetID string) ([]aspectRecord, error) {
	var result aspectsResponse
	if err := c.get(ctx, "/api/assets/"+url.PathEscape(assetID)+"/aspects", nil, &result); err != nil {
		return nil, fmt.Errorf("fetch aspects for %s: %w", assetID, err)
	}
	return result.Aspects, nil
}
