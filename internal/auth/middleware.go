package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
// Using a package-private type prevents collisions: only this package can
// create a key of type contextKey, so only this package can read or write
// claim values in the context.
type contextKey string

const claimsKey contextKey = "claims"

// SessionCookie is the name of the HttpOnly cookie carrying the JWT.
const SessionCookie = "token"

// RefreshFunc re-derives the identity portion of a claim bundle from the
// durable User record. It receives the validated claims and returns the
// refreshed bundle. See the service layer's RefreshClaims for the
// implementation; the indirection keeps this package free of database
// knowledge.
type RefreshFunc func(ctx context.Context, claims *Claims) (*Claims, error)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the HttpOnly session cookie, validates it, refreshes
// the identity claims from the database, and stores the claim bundle in the
// request context. If the token is missing or invalid, it returns 401
// Unauthorized and stops the request chain.
//
// WHAT THIS GUARD DOES NOT CHECK:
// Only token presence and validity. The onboarding-completed flag is never
// consulted here — clients enforce the onboarding redirect themselves via
// GET /api/onboarding. A direct API caller can therefore use the feed before
// onboarding; that mirrors the platform's documented behaviour.
//
// CLAIM REFRESH:
// The token's email claim is the durable lookup key. On every request the
// refresh func re-reads the User row by email and overwrites id/username/role
// with current database state, so a username or role change takes effect
// without re-login. Refresh errors other than "row not yet created" fail the
// request — silently serving stale identity would hide real store failures.
func RequireAuth(tokens *TokenService, refresh RefreshFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, tokens, refresh)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the claim bundle if a valid token is present, but
// does NOT block the request if it's missing or invalid.
//
// Use this on public routes like GET /api/posts where anonymous users can
// read but logged-in users additionally see their own votes. Handlers check
// via ClaimsFromContext — a nil-ok result means the request is anonymous.
func OptionalAuth(tokens *TokenService, refresh RefreshFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := extractClaims(r, tokens, refresh); err == nil {
				ctx := context.WithValue(r.Context(), claimsKey, claims)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even without a token
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext retrieves the authenticated claim bundle from the request
// context. Returns (nil, false) if the request is anonymous.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext is a convenience accessor for handlers that only need
// the caller's ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, c.UserID != ""
}

// extractClaims reads the JWT cookie, validates it, and applies the claim
// refresh. Shared by RequireAuth and OptionalAuth.
func extractClaims(r *http.Request, tokens *TokenService, refresh RefreshFunc) (*Claims, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return nil, err
	}

	claims, err := tokens.Validate(cookie.Value)
	if err != nil {
		return nil, err
	}

	if refresh != nil {
		return refresh(r.Context(), claims)
	}
	return claims, nil
}
