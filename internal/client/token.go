package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const keyringService = "tradekit"

// TokenStore holds the single bearer token for the API. Load returns the
// empty string when no token is stored. Implementations must re-read the
// backing slot on every Load: another process may have replaced or removed
// the token since the last call. Writes are last-write-wins, unlocked.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// KeyringStore persists the token in the OS keychain/credential manager,
// keyed per API host so several deployments can coexist.
type KeyringStore struct {
	key string
}

// NewKeyringStore creates a keyring-backed store for the given API host
func NewKeyringStore(host string) *KeyringStore {
	return &KeyringStore{key: fmt.Sprintf("api-token-%s", host)}
}

// NewProviderRefreshStore creates a keyring-backed store for the auth
// provider's refresh token, keyed per provider host. The refresh token
// outlives the access token and lets the session bootstrap recover a
// sign-in after the access token is cleared.
func NewProviderRefreshStore(host string) *KeyringStore {
	return &KeyringStore{key: fmt.Sprintf("provider-refresh-%s", host)}
}

func (s *KeyringStore) Load() (string, error) {
	token, err := keyring.Get(keyringService, s.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

func (s *KeyringStore) Save(token string) error {
	if err := keyring.Set(keyringService, s.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear() error {
	if err := keyring.Delete(keyringService, s.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory TokenStore for tests and ephemeral sessions
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// NotifyingStore wraps a TokenStore with change notification. Reads are
// served from a cache that is only invalidated through this store's own
// writes, so hot paths avoid hitting the backing slot on every request;
// writers publish the new value to all subscribers.
type NotifyingStore struct {
	inner TokenStore

	mu     sync.Mutex
	cached string
	valid  bool
	subs   []func(token string)
}

// NewNotifyingStore wraps inner with caching and subscriptions
func NewNotifyingStore(inner TokenStore) *NotifyingStore {
	return &NotifyingStore{inner: inner}
}

// Subscribe registers fn to be called with the new token value (empty on
// clear) after every write through this store. fn runs on the writer's
// goroutine and must not call back into the store.
func (s *NotifyingStore) Subscribe(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *NotifyingStore) Load() (string, error) {
	s.mu.Lock()
	if s.valid {
		token := s.cached
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	token, err := s.inner.Load()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cached = token
	s.valid = true
	s.mu.Unlock()
	return token, nil
}

func (s *NotifyingStore) Save(token string) error {
	if err := s.inner.Save(token); err != nil {
		return err
	}
	s.publish(token)
	return nil
}

func (s *NotifyingStore) Clear() error {
	if err := s.inner.Clear(); err != nil {
		return err
	}
	s.publish("")
	return nil
}

func (s *NotifyingStore) publish(token string) {
	s.mu.Lock()
	s.cached = token
	s.valid = true
	subs := make([]func(string), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}
