package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// FollowService handles the binary follow relationship.
type FollowService struct {
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, logger *slog.Logger) *FollowService {
	return &FollowService{follows: follows, logger: logger}
}

// Toggle flips the (follower, target) edge and reports the resulting state:
// true = now following, false = now not following.
//
// The read-then-write pair is NOT wrapped in a transaction. Two concurrent
// toggles can both read "absent" and both attempt the create; the unique
// constraint rejects one, and that rejection is treated as a harmless race —
// the edge exists, which is what both callers asked for — not a failure.
func (s *FollowService) Toggle(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, apperror.ValidationFailed("userId", "Cannot follow yourself")
	}

	existing, err := s.follows.GetFollow(ctx, followerID, targetID)
	switch {
	case err == nil:
		if err := s.follows.DeleteFollow(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("service/follow: removing edge: %w", err)
		}
		s.logger.Info("unfollowed",
			slog.String("follower", followerID),
			slog.String("target", targetID),
		)
		return false, nil

	case errors.Is(err, apperror.ErrNotFound):
		edge := &model.Follow{FollowerID: followerID, FollowingID: targetID}
		if err := s.follows.CreateFollow(ctx, edge); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				// Lost the race to another toggle that created the edge
				// first. The desired end state holds.
				return true, nil
			}
			return false, fmt.Errorf("service/follow: creating edge: %w", err)
		}
		s.logger.Info("followed",
			slog.String("follower", followerID),
			slog.String("target", targetID),
		)
		return true, nil

	default:
		return false, fmt.Errorf("service/follow: reading edge: %w", err)
	}
}

// IsFollowing reports whether follower currently follows target.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	_, err := s.follows.GetFollow(ctx, followerID, targetID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("service/follow: reading edge: %w", err)
}
