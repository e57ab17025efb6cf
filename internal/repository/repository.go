// Package repository declares the storage interfaces consumed by the service
// layer. Each method is one fixed, reviewable query shape — find-by-email,
// find-by-username (case-insensitive), list-with-membership-filter — rather
// than an ad hoc predicate builder. The sqlite subpackage implements them.
package repository

import (
	"context"

	"github.com/sakif/startup-nation/internal/model"
)

// OnboardingUpdate carries the five required onboarding fields. They are
// written together with the completion flag in a single UPDATE, so no
// partial-apply state is ever observable.
type OnboardingUpdate struct {
	Name           string
	Username       string
	Country        string
	CurrentProject string
	HearAboutUs    string
}

// ProfileUpdate carries the editable profile fields. Empty strings mean
// "leave unchanged" for Name and Username; Bio is always written (clearing
// a bio is a legitimate edit).
type ProfileUpdate struct {
	Name     string
	Username string
	Bio      string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByUsernameFold looks a user up by username, case-insensitively.
	GetByUsernameFold(ctx context.Context, username string) (*model.User, error)
	UpdateImage(ctx context.Context, id, image string) error
	CompleteOnboarding(ctx context.Context, id string, upd OnboardingUpdate) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*model.User, error)
	// GetProfile returns the public profile view with post/follower counts.
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// Search matches name or email case-insensitively, excluding excludeID.
	Search(ctx context.Context, query, excludeID string, limit int) ([]model.PublicUser, error)
}

type FollowRepository interface {
	// GetFollow returns the edge for the ordered pair, or ErrNotFound.
	GetFollow(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	// CreateFollow inserts the edge; a duplicate pair yields ErrConflict
	// (the unique constraint is the arbiter under concurrent toggles).
	CreateFollow(ctx context.Context, follow *model.Follow) error
	DeleteFollow(ctx context.Context, id string) error
}

// PostFilter is the fixed query shape for the feed listing.
type PostFilter struct {
	Type   model.PostType // zero value = all types
	Tags   []string       // any-match
	Search string         // title/content substring, case-insensitive
	Limit  int
	Offset int
	// ViewerID, when set, populates each post's UserVote.
	ViewerID string
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	// ListPosts returns a page (newest first) plus the unpaginated total.
	ListPosts(ctx context.Context, f PostFilter) ([]model.Post, int, error)
	GetPostBySlug(ctx context.Context, slug, viewerID string) (*model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error)

	// ListComments returns top-level comments newest first, each with its
	// replies oldest first.
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, comment *model.Comment) error

	GetVote(ctx context.Context, userID, postID string) (*model.Vote, error)
	CreateVote(ctx context.Context, vote *model.Vote) error
	DeleteVote(ctx context.Context, id string) error
}

type ChatRepository interface {
	// ListRooms returns the rooms the user belongs to, most recently active
	// first, each with members, last message, and message count.
	ListRooms(ctx context.Context, userID string) ([]model.ChatRoom, error)
	// FindDirectRoom returns an existing DIRECT room whose membership is
	// exactly {a, b}, or ErrNotFound. Order of a and b does not matter.
	FindDirectRoom(ctx context.Context, a, b string) (*model.ChatRoom, error)
	CreateRoom(ctx context.Context, room *model.ChatRoom, memberIDs []string) error
	GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)

	// ListMessages returns one page newest-first straight from storage; the
	// service reverses it so consumers always see oldest-first within a page.
	ListMessages(ctx context.Context, roomID string, limit, offset int) ([]model.Message, error)
	// CreateMessage inserts the message and bumps the room's updated_at.
	CreateMessage(ctx context.Context, msg *model.Message) error
}
