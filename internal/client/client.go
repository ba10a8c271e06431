package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is the authenticated request pipeline for the storefront API. It
// attaches the current bearer token to every outgoing call, classifies
// failures into the error types in errors.go, and decodes responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client's logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the API at baseURL using tokens for credentials
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string { return c.baseURL }

// Do issues one API call. body is JSON-encoded when non-nil; a 2xx response
// is decoded into out when out is non-nil. The token is loaded fresh from
// the store for every call, never cached on the Client.
//
// Classification:
//   - transport failure: *ConnectivityError naming the base URL
//   - 401: the token store is cleared, *UnauthorizedError; no redirect here,
//     concurrent calls may all hit 401 and clearing must stay idempotent
//   - 403: token preserved, *ForbiddenError with the response body
//   - other non-2xx: *RequestError with status and body
//
// A 2xx with an empty or non-JSON body leaves out untouched instead of
// failing: conditional-request style empty responses mean "no change".
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	url := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	token, err := c.tokens.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear token after 401")
		}
		return &UnauthorizedError{Body: string(raw)}
	case resp.StatusCode == http.StatusForbidden:
		return &ForbiddenError{Body: string(raw)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &RequestError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if s, ok := out.(*string); ok {
			*s = string(raw)
		}
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post issues a POST request
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out)
}

// Patch issues a PATCH request
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, body, out)
}
