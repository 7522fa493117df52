// Package backend talks to the story API: login, credential refresh and
// arbitrary authenticated calls.
package backend

import (
	"context"
	"net/http"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is what login and refresh return. The backend rotates the
// refresh token on every successful refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Authenticator issues and renews credentials.
type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPair, error)
	// Refresh must be called at most once per logical renewal; the old
	// refresh token is invalid after a successful call.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Request is one outbound API call. Body is a byte slice, not a reader, so
// the same request can be sent again after a renewal.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
