package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.hubapi.com"
	maxAssociationPage = 500
)

// TokenProvider returns the bearer token for a request.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken wraps a fixed access token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}

// ClientOptions configures the HubSpot API client
type ClientOptions struct {
	// BaseURL is the base URL for the HubSpot API (default: "https://api.hubapi.com")
	BaseURL string
	// TokenProvider supplies the private app access token
	TokenProvider TokenProvider
	// RetryMax is the maximum number of retries on 429/5xx (default: 3)
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the retry backoff (defaults: 1s, 30s)
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout is the HTTP client timeout (default: 30 seconds)
	Timeout time.Duration
	// RateLimit is the sustained request rate per second; 0 disables pacing
	RateLimit float64
	// Burst is the limiter burst size (default: 1)
	Burst int
}

// Client is the HubSpot CRM v3 API client
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *retryablehttp.Client
}

// pacedTransport waits on the limiter before every attempt, retries included.
type pacedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// NewClientWithOptions creates a new HubSpot API client with custom options
func NewClientWithOptions(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil
	// Hand the final response back so API errors can be decoded.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.RateLimit > 0 {
		next := retryClient.HTTPClient.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		retryClient.HTTPClient.Transport = &pacedTransport{
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
			next:    next,
		}
	}

	return &Client{
		baseURL:       baseURL,
		tokenProvider: opts.TokenProvider,
		httpClient:    retryClient,
	}
}

// SearchObjects runs one page of a CRM search.
func (c *Client) SearchObjects(ctx context.Context, objectType string, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	path := fmt.Sprintf("/crm/v3/objects/%s/search", objectType)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetObject reads a single record with the selected properties and associations.
func (c *Client) GetObject(ctx context.Context, objectType, id string, opts GetObjectOptions) (*Object, error) {
	if id == "" {
		return nil, fmt.Errorf("object id is required")
	}

	path := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, url.PathEscape(id))
	params := url.Values{}
	if len(opts.Properties) > 0 {
		params.Set("properties", strings.Join(opts.Properties, ","))
	}
	if len(opts.Associations) > 0 {
		params.Set("associations", strings.Join(opts.Associations, ","))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out Object
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssociations reads one page of the toType records associated with a record.
// Pass the previous page's cursor in after, or "" for the first page.
func (c *Client) ListAssociations(ctx context.Context, objectType, id, toType, after string) (*AssociationList, error) {
	if id == "" {
		return nil, fmt.Errorf("object id is required")
	}

	path := fmt.Sprintf("/crm/v3/objects/%s/%s/associations/%s", objectType, url.PathEscape(id), toType)
	params := url.Values{}
	params.Set("limit", strconv.Itoa(maxAssociationPage))
	if after != "" {
		params.Set("after", after)
	}

	var out AssociationList
	if err := c.do(ctx, http.MethodGet, path+"?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchRead reads up to 100 records by id.
func (c *Client) BatchRead(ctx context.Context, objectType string, req BatchReadRequest) (*BatchResponse, error) {
	var out BatchResponse
	path := fmt.Sprintf("/crm/v3/objects/%s/batch/read", objectType)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchUpdate writes properties on up to 100 records. Per-record failures
// come back in BatchResponse.Errors with a 207 status.
func (c *Client) BatchUpdate(ctx context.Context, objectType string, req BatchUpdateRequest) (*BatchResponse, error) {
	var out BatchResponse
	path := fmt.Sprintf("/crm/v3/objects/%s/batch/update", objectType)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.tokenProvider == nil {
		return fmt.Errorf("hubspot token provider is required")
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve access token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("hubspot access token is empty")
	}

	var body any
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
