package commands

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tradekit-dev/tradekit/internal/cli/userconfig"
	"github.com/tradekit-dev/tradekit/internal/client"
	"github.com/tradekit-dev/tradekit/internal/provider"
)

// options carries injectable collaborators so commands can run against an
// in-memory token store and a test server
type options struct {
	apiURL       string
	providerURL  string
	tokenStore   client.TokenStore
	refreshStore client.TokenStore
}

// Option overrides a command collaborator, mainly for tests
type Option func(*options)

// WithAPIURL overrides the API base URL
func WithAPIURL(apiURL string) Option {
	return func(o *options) { o.apiURL = apiURL }
}

// WithProviderURL overrides the auth provider base URL
func WithProviderURL(providerURL string) Option {
	return func(o *options) { o.providerURL = providerURL }
}

// WithTokenStore overrides the token store
func WithTokenStore(store client.TokenStore) Option {
	return func(o *options) { o.tokenStore = store }
}

// WithRefreshTokenStore overrides the provider refresh token store
func WithRefreshTokenStore(store client.TokenStore) Option {
	return func(o *options) { o.refreshStore = store }
}

// resolve fills in the default collaborators: URLs from the user config and
// keyring stores keyed by host, so separate deployments keep separate
// credentials. The refresh store only exists when a provider is configured.
func resolve(opts ...Option) (*options, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.apiURL == "" {
		apiURL, err := userconfig.ResolveAPIURL()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve API URL: %w", err)
		}
		o.apiURL = apiURL
	}
	if o.providerURL == "" {
		providerURL, err := userconfig.ResolveProviderURL()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve provider URL: %w", err)
		}
		o.providerURL = providerURL
	}

	if o.tokenStore == nil {
		parsed, err := url.Parse(o.apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", o.apiURL, err)
		}
		o.tokenStore = client.NewNotifyingStore(client.NewKeyringStore(parsed.Host))
	}

	if o.refreshStore == nil && o.providerURL != "" {
		parsed, err := url.Parse(o.providerURL)
		if err != nil {
			return nil, fmt.Errorf("invalid provider URL %q: %w", o.providerURL, err)
		}
		o.refreshStore = client.NewProviderRefreshStore(parsed.Host)
	}

	return &o, nil
}

// session wires the API client and session from resolved options. With a
// provider configured, the persisted refresh token feeds the bootstrap's
// provider-session arm.
func (o *options) session() (*client.Session, *client.Client, error) {
	apiClient := client.New(o.apiURL, o.tokenStore)

	var source client.SessionSource
	if o.providerURL != "" {
		refreshToken, err := o.refreshStore.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load provider refresh token: %w", err)
		}
		providerClient := provider.New(o.providerURL)
		source = client.NewProviderSource(providerClient, &provider.RefreshTokenSource{
			Client:       providerClient,
			RefreshToken: refreshToken,
		})
	}

	session := client.NewSession(apiClient, o.tokenStore, source, zerolog.Nop())
	return session, apiClient, nil
}

// newSession wires the API client and session for a command invocation
func newSession(opts ...Option) (*client.Session, *client.Client, error) {
	o, err := resolve(opts...)
	if err != nil {
		return nil, nil, err
	}
	return o.session()
}

// formatPrice renders a price stored in cents
func formatPrice(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
