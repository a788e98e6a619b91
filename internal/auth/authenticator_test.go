package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBearerAuthenticatorResolvesUserID(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret"),
		Issuer:        "noter-auth",
		Audience:      "noter-api",
		TokenTTL:      time.Minute,
	})
	authenticator, err := NewBearerAuthenticator(issuer)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.Issue("user-7")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/notes", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+tokenString)

	userID, err := authenticator.Authenticate(request)
	if err != nil {
		t.Fatalf("expected authentication success: %v", err)
	}
	if userID != "user-7" {
		t.Fatalf("unexpected user id %s", userID)
	}
}

func TestBearerAuthenticatorRejectsMissingHeader(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret"),
		Issuer:        "noter-auth",
		Audience:      "noter-api",
	})
	authenticator, err := NewBearerAuthenticator(issuer)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/notes", http.NoBody)

	if _, err := authenticator.Authenticate(request); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential error, got %v", err)
	}

	request.Header.Set("Authorization", "Bearer ")
	if _, err := authenticator.Authenticate(request); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential error for blank token, got %v", err)
	}
}

func TestBearerAuthenticatorRejectsInvalidToken(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("secret"),
		Issuer:        "noter-auth",
		Audience:      "noter-api",
	})
	authenticator, err := NewBearerAuthenticator(issuer)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/notes", http.NoBody)
	request.Header.Set("Authorization", "Bearer not.a.token")

	if _, err := authenticator.Authenticate(request); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected invalid credential error, got %v", err)
	}
}

func TestNewBearerAuthenticatorRequiresValidator(t *testing.T) {
	if _, err := NewBearerAuthenticator(nil); err == nil {
		t.Fatalf("expected constructor error for nil validator")
	}
}
