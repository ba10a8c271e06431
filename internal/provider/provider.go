// Package provider is a client for the external auth provider: direct password
// sign-in, OTP email verification, session refresh and sign-out. The provider is
// a collaborating authority next to the storefront backend; it issues the bearer
// tokens the backend also accepts.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned when the provider has no active session to offer
var ErrNoSession = errors.New("no active provider session")

// ErrInvalidCredentials is returned when the provider rejects a credential exchange
var ErrInvalidCredentials = errors.New("invalid email or password")

// Client talks to the external auth provider's REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a provider client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SessionUser is the minimal user metadata carried by a provider session.
// It is a fallback source of truth only; the backend user record is authoritative.
type SessionUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Session is an issued provider session
type Session struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         SessionUser `json:"user"`
}

// SignInWithPassword performs the provider's direct password grant
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	// The provider's token endpoint follows the resource-owner password grant
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/token?grant_type=password",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := conf.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && (retrieveErr.Response.StatusCode == http.StatusBadRequest ||
			retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("provider sign-in rejected: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("provider sign-in failed: %w", err)
	}

	session := &Session{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}

	// The token response omits user metadata; fetch it with the fresh token
	user, err := c.GetUser(ctx, tok.AccessToken)
	if err == nil {
		session.User = *user
	}

	return session, nil
}

// VerifyOTP confirms an email verification token hash
func (c *Client) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*Session, error) {
	body := map[string]string{
		"token_hash": tokenHash,
		"type":       otpType,
	}

	var session Session
	if err := c.post(ctx, "/verify", "", body, &session); err != nil {
		return nil, fmt.Errorf("otp verification failed: %w", err)
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
// Returns ErrNoSession when the refresh token is no longer accepted.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	body := map[string]string{"refresh_token": refreshToken}

	var session Session
	err := c.post(ctx, "/token?grant_type=refresh_token", "", body, &session)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.Status == http.StatusBadRequest || httpErr.Status == http.StatusUnauthorized) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}
	return &session, nil
}

// GetUser fetches the user metadata behind an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*SessionUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}

	var user SessionUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session behind an access token
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// HTTPError is a non-2xx response from the provider
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SessionSource yields the provider's active session, if any.
// The session bootstrap consults it when no local token is persisted.
type SessionSource interface {
	ActiveSession(ctx context.Context) (*Session, error)
}

// RefreshTokenSource is a SessionSource backed by a persisted refresh token
type RefreshTokenSource struct {
	Client       *Client
	RefreshToken string
}

// ActiveSession exchanges the stored refresh token for a live session
func (s *RefreshTokenSource) ActiveSession(ctx context.Context) (*Session, error) {
	return s.Client.RefreshSession(ctx, s.RefreshToken)
}
