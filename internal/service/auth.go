// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept primitives and context, never HTTP types, and return
// domain errors (apperror), never status codes. Handlers translate both.
//
// AuthService owns the identity lifecycle: registration, credentials login,
// OAuth login-or-register, and the session claim refresh. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (identity rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT) + PasswordService (bcrypt)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// Error messages for the credentials path.
//
// msgInvalidCredentials is deliberately shared by "unknown email" and "wrong
// password" so a caller can't probe which emails have accounts (account
// enumeration). msgOAuthOnly is deliberately DIFFERENT: telling a real user
// to use their OAuth provider is a product requirement, not a leak — the
// account exists and its owner needs to know how to get in.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgOAuthOnly          = "This account was created with an OAuth provider. Please sign in with GitHub or Google instead."
	msgNoProviderEmail    = "The identity provider did not share an email address for this account"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the resolved user and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a local-password user.
//
// The username is derived from the email local part and suffixed to
// uniqueness, same as OAuth provisioning — registration never fails on a
// username collision, only on a duplicate email.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "A valid email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "Password is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("User already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking existing email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	username, err := s.uniqueUsername(ctx, usernameFromEmail(email))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Username:            username,
		OnboardingCompleted: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login authenticates with email and password and issues a session token.
//
// ERROR TAXONOMY (deliberate, see the message constants above):
//   - unknown email         → generic invalid-credentials
//   - OAuth-only account    → specific "use your OAuth provider" message
//   - wrong password        → generic invalid-credentials
//
// Unexpected store failures are surfaced as-is — never folded into the
// generic message, which would hide outages behind "wrong password".
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.Unauthorized(msgOAuthOnly)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via credentials", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterOAuth resolves a completed OAuth callback into a User row
// and a session token.
//
// Email is the durable identity key: an existing row with the provider's
// email is the same identity regardless of which provider delivered it.
//
// FLOW:
//   - no email in the profile → abort, create nothing
//   - no existing row → create (derived suffixed username, onboarding
//     incomplete, provider image)
//   - existing row → sync the image if the provider's differs, touch
//     nothing else
//
// Any unexpected lookup or write failure aborts the sign-in — failing
// entirely is acceptable, continuing silently is not.
func (s *AuthService) LoginOrRegisterOAuth(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: OAuth profile must not be nil")
	}
	if profile.Email == "" {
		return nil, apperror.Unauthorized(msgNoProviderEmail)
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Existing identity — profile photo sync only.
		if profile.Image != "" && profile.Image != user.Image {
			if err := s.users.UpdateImage(ctx, user.ID, profile.Image); err != nil {
				return nil, fmt.Errorf("service/auth: syncing image for %s: %w", user.ID, err)
			}
			user.Image = profile.Image
		}
		s.logger.Info("existing user signed in via OAuth",
			slog.String("userID", user.ID),
			slog.String("provider", profile.Provider),
		)

	case errors.Is(err, apperror.ErrNotFound):
		username, uerr := s.uniqueUsername(ctx, usernameFromEmail(profile.Email))
		if uerr != nil {
			return nil, uerr
		}
		user = &model.User{
			Name:                profile.Name,
			Email:               profile.Email,
			Username:            username,
			Image:               profile.Image,
			OnboardingCompleted: false,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: provisioning OAuth user: %w", err)
		}
		s.logger.Info("new user provisioned via OAuth",
			slog.String("userID", user.ID),
			slog.String("provider", profile.Provider),
			slog.String("username", user.Username),
		)

	default:
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// RefreshClaims re-derives the identity portion of a claim bundle from the
// durable User record, keyed by the email claim.
//
// Once a row exists, id/username/role in the session must reflect current
// database state on each renewal — not the values captured at sign-in. If
// the row does not exist yet (OAuth sign-in whose row is provisioned lazily
// by the onboarding endpoint), the claims pass through unchanged; any other
// failure is surfaced.
func (s *AuthService) RefreshClaims(ctx context.Context, claims *auth.Claims) (*auth.Claims, error) {
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return claims, nil
		}
		return nil, fmt.Errorf("service/auth: refreshing claims: %w", err)
	}

	refreshed := *claims
	refreshed.UserID = user.ID
	refreshed.Subject = user.ID
	refreshed.Username = user.Username
	refreshed.Role = user.Role
	return &refreshed, nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/me
// after the middleware validates the session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// usernameFromEmail derives a candidate username from the email local part:
// lowercased with every non-alphanumeric character stripped.
// "Jo.Founder+x@x.com" → "jofounderx".
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// uniqueUsername resolves collisions by appending an incrementing numeric
// suffix until the candidate is free. The check is a case-insensitive lookup,
// not an atomic reservation — a concurrent creation with the same candidate
// is caught by the column's unique constraint instead.
func (s *AuthService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		_, err := s.users.GetByUsernameFold(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}
