package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tradekit-dev/tradekit/internal/config"
	"github.com/tradekit-dev/tradekit/internal/models"
)

func newTestServer(t *testing.T, requireConfirmation bool) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.db")},
		Auth: config.AuthConfig{
			JWTSecret:                "test-secret",
			TokenTTL:                 time.Hour,
			RequireEmailConfirmation: requireConfirmation,
		},
		API: config.APIConfig{
			BaseURL:    "http://localhost:8080",
			LandingURL: "http://localhost:3000",
		},
		Storage: config.StorageConfig{
			Dir:       filepath.Join(dir, "uploads"),
			PublicURL: "http://localhost:8080/storage/ticket-images",
		},
		Payments: config.PaymentsConfig{
			PendingTTL: 30 * time.Minute,
			Wallets:    map[string]string{"BTC": "bc1qtestaddress"},
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, srv *Server, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, srv *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeAuthResponse(t *testing.T, w *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, false)

	w := postJSON(t, srv, "/api/auth/register", "", RegisterRequest{
		Email:     "a@b.com",
		Password:  "secret123",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeAuthResponse(t, w)
	require.NotEmpty(t, created.AccessToken)
	require.Equal(t, "a@b.com", created.User.Email)

	// The issued token authenticates immediately
	w = getJSON(t, srv, "/api/auth/me", created.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, srv, "/api/auth/login", "", LoginRequest{Email: "a@b.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	logged := decodeAuthResponse(t, w)
	require.NotEmpty(t, logged.AccessToken)
	require.Equal(t, created.User.ID, logged.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, false)

	body := RegisterRequest{Email: "a@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace"}
	require.Equal(t, http.StatusCreated, postJSON(t, srv, "/api/auth/register", "", body).Code)
	require.Equal(t, http.StatusConflict, postJSON(t, srv, "/api/auth/register", "", body).Code)
}

func TestRegisterWithEmailConfirmation(t *testing.T) {
	srv := newTestServer(t, true)

	w := postJSON(t, srv, "/api/auth/register", "", RegisterRequest{
		Email: "a@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeAuthResponse(t, w)
	require.Empty(t, resp.AccessToken, "no session until the email is confirmed")
	require.NotEmpty(t, resp.Message)

	// The unconfirmed account cannot log in yet
	w = postJSON(t, srv, "/api/auth/login", "", LoginRequest{Email: "a@b.com", Password: "secret123"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWrongCredentials(t *testing.T) {
	srv := newTestServer(t, false)
	postJSON(t, srv, "/api/auth/register", "", RegisterRequest{
		Email: "a@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace",
	})

	w := postJSON(t, srv, "/api/auth/login", "", LoginRequest{Email: "a@b.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown accounts get the same answer as wrong passwords
	w2 := postJSON(t, srv, "/api/auth/login", "", LoginRequest{Email: "ghost@b.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w2.Code)
	require.JSONEq(t, w.Body.String(), w2.Body.String())
}

func TestGetCurrentUserRequiresToken(t *testing.T) {
	srv := newTestServer(t, false)
	require.Equal(t, http.StatusUnauthorized, getJSON(t, srv, "/api/auth/me", "").Code)
}

func TestPurchaseFlow(t *testing.T) {
	srv := newTestServer(t, false)

	product := &models.Product{Title: "Breakout Strategy", Price: 20000, IsActive: true}
	require.NoError(t, srv.GetDB().Create(product).Error)
	account := &models.BankAccount{BankName: "First National", HolderName: "TradeKit Ltd", IsActive: true}
	require.NoError(t, srv.GetDB().Create(account).Error)

	w := postJSON(t, srv, "/api/auth/register", "", RegisterRequest{
		Email: "buyer@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token := decodeAuthResponse(t, w).AccessToken

	// Catalog is public
	require.Equal(t, http.StatusOK, getJSON(t, srv, "/api/products", "").Code)

	w = postJSON(t, srv, "/api/payments/initiate", token, InitiatePaymentRequest{
		ProductID: product.ID,
		Gateway:   models.GatewayManual,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var result struct {
		TransactionID string              `json:"transaction_id"`
		RefID         string              `json:"ref_id"`
		BankAccount   *models.BankAccount `json:"bank_account"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.RefID)
	require.NotNil(t, result.BankAccount)

	w = getJSON(t, srv, "/api/transactions/"+result.TransactionID, token)
	require.Equal(t, http.StatusOK, w.Code)

	// Paid file access requires a completed transaction
	file := &models.ProductFile{ProductID: product.ID, Name: "playbook.pdf", Path: "files/playbook.pdf"}
	require.NoError(t, srv.GetDB().Create(file).Error)
	require.Equal(t, http.StatusForbidden, getJSON(t, srv, "/api/files/"+file.ID+"/serve?token="+token, "").Code)
	require.Equal(t, http.StatusUnauthorized, getJSON(t, srv, "/api/files/"+file.ID+"/serve", "").Code)
}
