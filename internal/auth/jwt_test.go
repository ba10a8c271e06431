package auth

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	InitializeJWT("test-secret")

	token, err := GenerateToken("user-1", "a@b.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "a@b.com" || claims.Role != "user" {
		t.Errorf("claims = %q/%q, want a@b.com/user", claims.Email, claims.Role)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	InitializeJWT("test-secret")

	token, err := GenerateToken("user-1", "a@b.com", "user", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected an error for an expired token")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	InitializeJWT("test-secret")
	token, err := GenerateToken("user-1", "a@b.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	InitializeJWT("other-secret")
	defer InitializeJWT("test-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected an error for a token signed with a different secret")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	InitializeJWT("test-secret")
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if strings.Contains(hash, "secret1") {
		t.Error("hash must not contain the plaintext password")
	}
	if err := VerifyPassword("secret1", hash); err != nil {
		t.Errorf("VerifyPassword with the right password: %v", err)
	}
	if err := VerifyPassword("wrong", hash); err == nil {
		t.Error("expected an error for the wrong password")
	}
}

func TestSessionDataIsAdmin(t *testing.T) {
	if (&SessionData{Role: "user"}).IsAdmin() {
		t.Error("user role must not be admin")
	}
	if !(&SessionData{Role: "admin"}).IsAdmin() {
		t.Error("admin role must be admin")
	}
}
