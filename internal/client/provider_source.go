package client

import (
	"context"
	"errors"
	"sync"

	"github.com/tradekit-dev/tradekit/internal/provider"
)

// ProviderSource adapts the external auth provider into a SessionSource.
// It remembers the access token of the last session it yielded so SignOut
// can revoke it.
type ProviderSource struct {
	client *provider.Client
	source provider.SessionSource

	mu          sync.Mutex
	accessToken string
}

// NewProviderSource builds a SessionSource over the provider client. source
// typically is a provider.RefreshTokenSource around a persisted refresh token.
func NewProviderSource(providerClient *provider.Client, source provider.SessionSource) *ProviderSource {
	return &ProviderSource{client: providerClient, source: source}
}

func (p *ProviderSource) ActiveSession(ctx context.Context) (*ProviderSession, error) {
	session, err := p.source.ActiveSession(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}

	p.mu.Lock()
	p.accessToken = session.AccessToken
	p.mu.Unlock()

	return &ProviderSession{
		AccessToken: session.AccessToken,
		User: User{
			ID:        session.User.ID,
			Email:     session.User.Email,
			FirstName: session.User.FirstName,
			LastName:  session.User.LastName,
			Role:      session.User.Role,
		},
	}, nil
}

func (p *ProviderSource) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.accessToken
	p.mu.Unlock()
	if token == "" {
		return nil
	}
	return p.client.SignOut(ctx, token)
}
