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

const (
	MinUsernameLength = 3
	MaxSearchResults  = 10
)

// UserService handles profiles, onboarding, and username availability.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// OnboardingStatus returns the caller's onboarding flag and profile fields.
//
// LAZY PROVISIONING:
// If the session's backing row does not exist yet, it is created here from
// the claim bundle — this is the second place (after the OAuth callback) a
// User can come into being implicitly. The flag on the returned record is
// the only onboarding gate the platform has; route-level auth never reads it.
func (s *UserService) OnboardingStatus(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/user: fetching onboarding status: %w", err)
	}

	username, err := s.uniqueUsername(ctx, usernameFromEmail(claims.Email))
	if err != nil {
		return nil, err
	}
	user = &model.User{
		Name:                claims.Name,
		Email:               claims.Email,
		Image:               claims.Image,
		Username:            username,
		OnboardingCompleted: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: provisioning user for session: %w", err)
	}

	s.logger.Info("user provisioned on onboarding check",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// CompleteOnboarding collects the five required profile fields and flips the
// completion flag in a single update.
//
// The username uniqueness check is case-insensitive and excludes NO ONE —
// this is a first-time completion, not an edit, so even the caller's own
// current username counts as taken. On any failure nothing is written; on
// success all five fields plus the flag land together.
//
// Re-submission after completion is not guarded: re-running simply
// re-writes the fields. That matches platform behaviour.
func (s *UserService) CompleteOnboarding(ctx context.Context, email string, upd repository.OnboardingUpdate) (*model.User, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Username = strings.TrimSpace(upd.Username)
	upd.Country = strings.TrimSpace(upd.Country)
	upd.CurrentProject = strings.TrimSpace(upd.CurrentProject)
	upd.HearAboutUs = strings.TrimSpace(upd.HearAboutUs)

	switch {
	case upd.Name == "":
		return nil, apperror.ValidationFailed("name", "Name is required")
	case len(upd.Username) < MinUsernameLength:
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be at least %d characters", MinUsernameLength))
	case upd.Country == "":
		return nil, apperror.ValidationFailed("country", "Country is required")
	case upd.CurrentProject == "":
		return nil, apperror.ValidationFailed("currentProject", "Current project is required")
	case upd.HearAboutUs == "":
		return nil, apperror.ValidationFailed("hearAboutUs", "This field is required")
	}

	if _, err := s.users.GetByUsernameFold(ctx, upd.Username); err == nil {
		return nil, apperror.Conflict("Username is already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/user: checking username: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.CompleteOnboarding(ctx, user.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("service/user: completing onboarding for %s: %w", user.ID, err)
	}

	s.logger.Info("onboarding completed",
		slog.String("userID", updated.ID),
		slog.String("username", updated.Username),
	)
	return updated, nil
}

// CheckUsername reports whether a candidate username is free,
// case-insensitively.
func (s *UserService) CheckUsername(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, apperror.ValidationFailed("username", "Username is required")
	}

	_, err := s.users.GetByUsernameFold(ctx, username)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("service/user: checking username: %w", err)
}

// Profile returns the public profile view for a user.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	return s.users.GetProfile(ctx, userID)
}

// UpdateProfile applies a profile edit. Only the owner may edit; a changed
// username must be free among everyone EXCEPT the owner (unlike onboarding,
// keeping your own username is not a collision here).
//
// The server's answer is authoritative: it returns either the confirmed
// record or an error. Clients that fall back to an optimistic local copy on
// failure do so on their own account.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, targetID string, upd repository.ProfileUpdate) (*model.User, error) {
	if callerID != targetID {
		return nil, apperror.Forbidden("you can only edit your own profile")
	}

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Username = strings.TrimSpace(upd.Username)
	upd.Bio = strings.TrimSpace(upd.Bio)

	if upd.Username != "" {
		existing, err := s.users.GetByUsernameFold(ctx, upd.Username)
		if err == nil && existing.ID != targetID {
			return nil, apperror.Conflict("Username is already taken")
		}
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/user: checking username: %w", err)
		}
	}

	updated, err := s.users.UpdateProfile(ctx, targetID, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", targetID))
	return updated, nil
}

// Search returns up to MaxSearchResults users matching the query by name or
// email, excluding the caller. An empty query returns an empty list rather
// than everyone.
func (s *UserService) Search(ctx context.Context, callerID, query string) ([]model.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.PublicUser{}, nil
	}
	return s.users.Search(ctx, query, callerID, MaxSearchResults)
}

// uniqueUsername mirrors AuthService.uniqueUsername for the lazy
// provisioning path.
func (s *UserService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		_, err := s.users.GetByUsernameFold(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("service/user: checking username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}
