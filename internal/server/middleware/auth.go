// Package middleware provides HTTP middleware that establishes the owner of
// a request.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const ownerIDKey ContextKey = "ownerID"

// AnonymousOwner owns requests that carry no identity while authentication
// is off
const AnonymousOwner = "anonymous"

// OwnerHeader carries the owner id when authentication is off
const OwnerHeader = "X-User-ID"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (OwnerIDGetter, error)
}

// OwnerIDGetter extracts the owner id from token claims.
type OwnerIDGetter interface {
	GetOwnerID() string
}

// AuthMiddleware creates middleware that validates bearer tokens and stores
// the token's owner id in the request context. Paths in public pass through
// without a token.
func AuthMiddleware(validator TokenValidator, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}
			owner := claims.GetOwnerID()
			if owner == "" {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), owner)))
		})
	}
}

// HeaderOwner is used instead of AuthMiddleware when no token secret is
// configured. The owner comes from the X-User-ID header, or is anonymous.
func HeaderOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			owner = AnonymousOwner
		}
		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), owner)))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="search-wizard"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("{\n  \"error\": \"unauthorized\"\n}\n"))
}

// WithOwnerID returns a context carrying the owner id
func WithOwnerID(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerIDKey, owner)
}

// GetOwnerID extracts the owner id from the request context.
func GetOwnerID(r *http.Request) (string, error) {
	owner, ok := r.Context().Value(ownerIDKey).(string)
	if !ok || owner == "" {
		return "", fmt.Errorf("owner ID not found in request context")
	}
	return owner, nil
}
