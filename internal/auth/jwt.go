// Package auth provides session tokens, password hashing, and OAuth providers
// for the Startup Nation API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers with email/password, or visits /auth/{provider}/login
//    and is redirected to GitHub/Google
// 2. On success the server resolves the identity to a User row (creating it
//    on first OAuth sign-in) and issues a JWT stored in an HttpOnly cookie
// 3. On subsequent API calls, middleware reads the cookie, validates the JWT,
//    refreshes the identity claims from the database, and puts the claim
//    bundle in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (the claim bundle, expiry) is inside the
// signed token. The signature ensures nobody can tamper with it without the
// secret key.
//
// THE CLAIM BUNDLE:
// The token carries the full identity projection — id, username, role, name,
// email, image — so the session endpoint never has to guess at fields. The
// bundle is NOT a system of record: the durable User row is. Claims for id,
// username, and role are re-derived from the database on each authenticated
// request (see middleware.go), so a username or role change propagates without
// re-login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/startup-nation/internal/model"
)

// sessionLifetime matches a 30-day browser session.
const sessionLifetime = 30 * 24 * time.Hour

const issuer = "startup-nation"

// Claims is the JWT payload: the identity claim bundle plus the standard
// registered claims (Subject mirrors UserID, ExpiresAt, IssuedAt, Issuer).
type Claims struct {
	UserID   string     `json:"uid"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Image    string     `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — keep it safe and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Issue creates and signs a session token whose claim bundle is taken from
// the just-resolved User row. Called at sign-in (credentials or OAuth).
func (s *TokenService) Issue(user *model.User) (string, error) {
	return s.IssueWithDuration(user, sessionLifetime)
}

// IssueWithDuration creates a token with a custom expiry. Used by tests and
// kept separate so Issue stays the single place the 30-day policy lives.
func (s *TokenService) IssueWithDuration(user *model.User, d time.Duration) (string, error) {
	if user == nil {
		return "", errors.New("auth: user must not be nil")
	}

	now := time.Now()
	c := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Name:     user.Name,
		Email:    user.Email,
		Image:    user.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its claim bundle.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "startup-nation" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	// Email is the one claim refresh cannot recover from the database —
	// it IS the lookup key — so a token without it is unusable.
	if c.Email == "" {
		return nil, fmt.Errorf("auth: token has no email claim")
	}

	return c, nil
}
