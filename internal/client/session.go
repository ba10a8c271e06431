package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrInvalidCredentials is returned by Login when either authority rejects
// the email/password exchange
var ErrInvalidCredentials = errors.New("invalid email or password")

// State is the session's position in its lifecycle. There is no transition
// back into StateInitializing: once settled, a session only moves between
// authenticated and anonymous.
type State int

const (
	// StateInitializing means Bootstrap has not settled yet
	StateInitializing State = iota
	// StateAuthenticated means a user is signed in
	StateAuthenticated
	// StateAnonymous means no user is signed in
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// User is the signed-in visitor as the session sees them
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// ProviderSession is an active session at the external auth provider: a
// token plus minimal user metadata used only as a fallback source
type ProviderSession struct {
	AccessToken string
	User        User
}

// SessionSource checks the external auth provider for an active session.
// It returns (nil, nil) when no session exists.
type SessionSource interface {
	ActiveSession(ctx context.Context) (*ProviderSession, error)
	SignOut(ctx context.Context) error
}

// Session reconciles the stored token, the backend user record and the
// external provider's session into one settled authentication state. The
// backend user record is authoritative; the provider only carries tokens.
type Session struct {
	client   *Client
	tokens   TokenStore
	provider SessionSource // may be nil
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	user  *User
	subs  []func(State)
}

// NewSession creates an unsettled session. When tokens is a *NotifyingStore
// the session subscribes to it, so a token cleared by any concurrent 401
// flips an authenticated session to anonymous without polling.
func NewSession(apiClient *Client, tokens TokenStore, source SessionSource, logger zerolog.Logger) *Session {
	s := &Session{
		client:   apiClient,
		tokens:   tokens,
		provider: source,
		logger:   logger,
		state:    StateInitializing,
	}
	if notifying, ok := tokens.(*NotifyingStore); ok {
		notifying.Subscribe(s.onTokenChange)
	}
	return s
}

// State returns the session's current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed-in user, or nil when anonymous or unsettled
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// subscribe registers fn to run after every state change. fn is called on
// the mutating goroutine, outside the session lock, and must not call back
// into the session's mutating methods.
func (s *Session) subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Session) onTokenChange(token string) {
	if token == "" && s.State() == StateAuthenticated {
		s.transition(StateAnonymous, nil)
	}
}

// transition commits a state change and notifies subscribers when the state
// actually moved
func (s *Session) transition(state State, user *User) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.user = user
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(state)
	}
}

// settle commits a state transition unless ctx was cancelled: a caller that
// tore down mid-bootstrap must not have stale results applied.
func (s *Session) settle(ctx context.Context, state State, user *User) {
	if ctx.Err() != nil {
		return
	}
	s.transition(state, user)
}

// Bootstrap settles the session once per process start.
//
// With a stored token the embedded claims are decoded locally into a
// provisional user, then superseded by a full backend fetch; an unauthorized
// answer from the backend settles to anonymous. Without a stored token the
// external provider is consulted: an active provider session has its token
// persisted and its user looked up at the backend, falling back to the
// provider's own minimal user fields if that lookup fails. With neither
// source the session settles to anonymous.
func (s *Session) Bootstrap(ctx context.Context) error {
	token, err := s.tokens.Load()
	if err != nil {
		s.settle(ctx, StateAnonymous, nil)
		return fmt.Errorf("failed to load stored token: %w", err)
	}

	if token != "" {
		if user := decodeUserClaims(token); user != nil {
			s.settle(ctx, StateAuthenticated, user)
		}

		var user User
		if err := s.client.Get(ctx, "/api/auth/me", &user); err != nil {
			var unauthorized *UnauthorizedError
			if errors.As(err, &unauthorized) {
				s.settle(ctx, StateAnonymous, nil)
				return nil
			}
			// Backend unreachable: keep the provisional user if we have one
			s.logger.Warn().Err(err).Msg("User fetch failed during bootstrap")
			if s.State() != StateAuthenticated {
				s.settle(ctx, StateAnonymous, nil)
			}
			return nil
		}
		s.settle(ctx, StateAuthenticated, &user)
		return nil
	}

	if s.provider != nil {
		providerSession, err := s.provider.ActiveSession(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Provider session check failed during bootstrap")
		} else if providerSession != nil {
			if err := s.tokens.Save(providerSession.AccessToken); err != nil {
				s.settle(ctx, StateAnonymous, nil)
				return fmt.Errorf("failed to persist provider token: %w", err)
			}
			var user User
			if err := s.client.Get(ctx, "/api/auth/me", &user); err != nil {
				s.logger.Warn().Err(err).Msg("User fetch failed, falling back to provider user fields")
				fallback := providerSession.User
				s.settle(ctx, StateAuthenticated, &fallback)
				return nil
			}
			s.settle(ctx, StateAuthenticated, &user)
			return nil
		}
	}

	s.settle(ctx, StateAnonymous, nil)
	return nil
}

type credentialsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
	Message     string `json:"message"`
}

// Login exchanges credentials for a token and settles the session as
// authenticated with the backend's user object
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	err := s.client.Post(ctx, "/api/auth/login", credentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		var unauthorized *UnauthorizedError
		if errors.As(err, &unauthorized) {
			return nil, ErrInvalidCredentials
		}
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusBadRequest {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("login response missing session")
	}

	if err := s.tokens.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	s.settle(ctx, StateAuthenticated, resp.User)
	return resp.User, nil
}

// RegisterOutcome is the result of a successful registration. When the
// backend requires out-of-band email confirmation no session is issued:
// ConfirmationRequired is set and the session stays anonymous. That is a
// success outcome, not an error.
type RegisterOutcome struct {
	User                 *User
	ConfirmationRequired bool
	Message              string
}

// Register creates an account and, when the backend issues a session right
// away, signs the new user in
func (s *Session) Register(ctx context.Context, email, password, firstName, lastName string) (*RegisterOutcome, error) {
	var resp authResponse
	err := s.client.Post(ctx, "/api/auth/register", credentialsRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		s.settle(ctx, StateAnonymous, nil)
		return &RegisterOutcome{
			User:                 resp.User,
			ConfirmationRequired: true,
			Message:              resp.Message,
		}, nil
	}

	if err := s.tokens.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	s.settle(ctx, StateAuthenticated, resp.User)
	return &RegisterOutcome{User: resp.User, Message: resp.Message}, nil
}

// Logout clears local session state unconditionally. The provider sign-out
// is best effort: a failure there never leaves the local session signed in.
func (s *Session) Logout(ctx context.Context) error {
	if s.provider != nil {
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Provider sign-out failed")
		}
	}

	clearErr := s.tokens.Clear()
	s.transition(StateAnonymous, nil)

	if clearErr != nil {
		return fmt.Errorf("failed to clear token: %w", clearErr)
	}
	return nil
}

// decodeUserClaims extracts a provisional user from a JWT without verifying
// its signature. Verification is the server's job; locally the claims only
// seed the UI until the real user record arrives.
func decodeUserClaims(token string) *User {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	user := &User{}
	if sub, err := claims.GetSubject(); err == nil {
		user.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	if user.ID == "" && user.Email == "" {
		return nil
	}
	return user
}
