package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredential indicates that the request carried no usable credential.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrInvalidCredential indicates that the presented credential failed validation.
	ErrInvalidCredential = errors.New("auth: invalid credential")
)

// Authenticator resolves the authenticated user id from an inbound request.
// Handlers depend on this capability alone so the local-token and
// delegated-session variants are interchangeable.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenValidator validates an identity token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// BearerAuthenticator authenticates requests carrying a locally issued
// bearer token in the Authorization header.
type BearerAuthenticator struct {
	tokens TokenValidator
}

// NewBearerAuthenticator constructs an Authenticator over the token validator.
func NewBearerAuthenticator(tokens TokenValidator) (*BearerAuthenticator, error) {
	if tokens == nil {
		return nil, errors.New("auth: token validator required")
	}
	return &BearerAuthenticator{tokens: tokens}, nil
}

// Authenticate extracts and validates the bearer token, returning the user id.
func (a *BearerAuthenticator) Authenticate(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingCredential
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrMissingCredential
	}
	userID, err := a.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return userID, nil
}
