package server

import (
	"context"
	"net/http"
	"strings"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the verified access token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyRawToken stores the bearer token as presented
	ContextKeyRawToken ContextKey = "raw_token"
)

// RequireAuth is middleware that validates a Bearer access token. Any
// failure is a 401, which clients treat as a renewable auth failure.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
				writeUnauthorized(w, "Invalid Authorization header format")
				return
			}

			rawToken := strings.TrimSpace(parts[1])
			claims, err := s.accounts.Verify(rawToken)
			if errs.Is(err, errs.ErrTokenExpired) {
				writeUnauthorized(w, "Token expired")
				return
			}
			if err != nil {
				writeUnauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeyRawToken, rawToken)
			next(w, r.WithContext(ctx))
		}
	}
}

// claimsFromContext returns the claims RequireAuth stored, or nil.
func claimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+description+`"`)
	writeJSONError(w, description, http.StatusUnauthorized)
}
