package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tradekit-dev/tradekit/internal/client"
)

func TestRunLoginSavesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["email"] != "test@example.com" || req["password"] != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token-abc",
			"user": map[string]string{
				"id":         "user-1",
				"email":      "test@example.com",
				"first_name": "Test",
				"last_name":  "User",
				"role":       "user",
			},
		})
	}))
	defer server.Close()

	store := client.NewMemoryStore()

	err := runLogin(context.Background(), "test@example.com", "password123",
		WithAPIURL(server.URL),
		WithTokenStore(store),
	)
	if err != nil {
		t.Fatalf("expected successful login, got error: %v", err)
	}

	token, err := store.Load()
	if err != nil {
		t.Fatalf("failed to load token: %v", err)
	}
	if token != "jwt-token-abc" {
		t.Errorf("expected token 'jwt-token-abc', got '%s'", token)
	}
}

func TestRunLoginWrongPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid email or password"}`))
	}))
	defer server.Close()

	store := client.NewMemoryStore()

	err := runLogin(context.Background(), "test@example.com", "wrong",
		WithAPIURL(server.URL),
		WithTokenStore(store),
	)
	if err == nil {
		t.Fatal("expected login to fail")
	}

	token, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("failed to load token: %v", loadErr)
	}
	if token != "" {
		t.Errorf("expected no token after failed login, got '%s'", token)
	}
}

func TestRunLoginMissingEmail(t *testing.T) {
	t.Setenv("TRADEKIT_EMAIL", "")
	err := runLogin(context.Background(), "", "password123")
	if err == nil {
		t.Fatal("expected an error when email is missing")
	}
}

func TestRunLoginPersistsProviderRefreshToken(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token-abc",
			"user":         map[string]string{"id": "user-1", "email": "test@example.com"},
		})
	}))
	defer api.Close()

	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "provider-access",
				"token_type":    "bearer",
				"refresh_token": "provider-refresh-xyz",
			})
		case "/user":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "test@example.com"})
		default:
			t.Errorf("unexpected provider path %s", r.URL.Path)
		}
	}))
	defer providerSrv.Close()

	store := client.NewMemoryStore()
	refreshStore := client.NewMemoryStore()

	err := runLogin(context.Background(), "test@example.com", "password123",
		WithAPIURL(api.URL),
		WithProviderURL(providerSrv.URL),
		WithTokenStore(store),
		WithRefreshTokenStore(refreshStore),
	)
	if err != nil {
		t.Fatalf("expected successful login, got error: %v", err)
	}

	refreshToken, err := refreshStore.Load()
	if err != nil {
		t.Fatalf("failed to load refresh token: %v", err)
	}
	if refreshToken != "provider-refresh-xyz" {
		t.Errorf("expected refresh token 'provider-refresh-xyz', got '%s'", refreshToken)
	}
}

func TestRunLogoutClearsProviderRefreshToken(t *testing.T) {
	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer providerSrv.Close()

	store := client.NewMemoryStore()
	if err := store.Save("jwt-token-abc"); err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}
	refreshStore := client.NewMemoryStore()
	if err := refreshStore.Save("provider-refresh-xyz"); err != nil {
		t.Fatalf("failed to seed refresh token: %v", err)
	}

	err := runLogout(context.Background(),
		WithAPIURL("http://localhost:0"),
		WithProviderURL(providerSrv.URL),
		WithTokenStore(store),
		WithRefreshTokenStore(refreshStore),
	)
	if err != nil {
		t.Fatalf("expected successful logout, got error: %v", err)
	}

	for name, s := range map[string]*client.MemoryStore{"token": store, "refresh token": refreshStore} {
		value, err := s.Load()
		if err != nil {
			t.Fatalf("failed to load %s: %v", name, err)
		}
		if value != "" {
			t.Errorf("expected %s cleared after logout, got '%s'", name, value)
		}
	}
}
