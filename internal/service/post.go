package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

const (
	MaxTitleLength   = 200
	MaxCommentLength = 2000
	MaxTags          = 5
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PostService handles the feed: posts, comments, and votes.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// Create validates and saves a new feed post.
func (s *PostService) Create(ctx context.Context, authorID, title, content, linkURL string, postType model.PostType, tags []string) (*model.Post, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}
	if !model.ValidPostType(postType) {
		return nil, apperror.ValidationFailed("type", "Type must be RESOURCE, STRATEGY, or STORY")
	}
	if len(tags) > MaxTags {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("At most %d tags are allowed", MaxTags))
	}
	if linkURL != "" {
		u, err := url.Parse(linkURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, apperror.ValidationFailed("url", "URL must be absolute")
		}
	}

	post := &model.Post{
		Title:    title,
		Content:  strings.TrimSpace(content),
		URL:      linkURL,
		Slug:     makeSlug(title),
		Type:     postType,
		Tags:     tags,
		AuthorID: authorID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("type", string(post.Type)),
	)
	return post, nil
}

// List returns one feed page for the given filter. Page and limit are
// clamped to sane bounds before hitting storage.
func (s *PostService) List(ctx context.Context, f repository.PostFilter, page int) ([]model.Post, Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Offset = (page - 1) * f.Limit

	posts, total, err := s.posts.ListPosts(ctx, f)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("service/post: listing posts: %w", err)
	}

	pages := total / f.Limit
	if total%f.Limit != 0 {
		pages++
	}
	return posts, Pagination{Page: page, Limit: f.Limit, Total: total, Pages: pages}, nil
}

// GetBySlug returns a single published post.
func (s *PostService) GetBySlug(ctx context.Context, slug, viewerID string) (*model.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}
	return s.posts.GetPostBySlug(ctx, slug, viewerID)
}

// ListByAuthor returns a user's published posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	if authorID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	return s.posts.ListPostsByAuthor(ctx, authorID)
}

// Comments returns a post's threaded comments: top-level newest first,
// replies oldest first.
func (s *PostService) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "post ID is required")
	}
	return s.posts.ListComments(ctx, postID)
}

// AddComment appends a comment (or a reply, when parentID is set).
func (s *PostService) AddComment(ctx context.Context, postID, authorID, content, parentID string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "Comment content is required")
	}
	if len(content) > MaxCommentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("Comment must be %d characters or less", MaxCommentLength))
	}

	comment := &model.Comment{
		Content:  content,
		PostID:   postID,
		AuthorID: authorID,
		ParentID: parentID,
	}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/post: creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)
	return comment, nil
}

// ToggleVote flips the caller's upvote on a post and reports the resulting
// state. Same race model as the follow toggle: a conflict on create means
// another request already voted, which is the state the caller wanted.
func (s *PostService) ToggleVote(ctx context.Context, userID, postID string) (bool, error) {
	existing, err := s.posts.GetVote(ctx, userID, postID)
	switch {
	case err == nil:
		if err := s.posts.DeleteVote(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("service/post: removing vote: %w", err)
		}
		return false, nil

	case errors.Is(err, apperror.ErrNotFound):
		vote := &model.Vote{UserID: userID, PostID: postID, Type: "UP"}
		if err := s.posts.CreateVote(ctx, vote); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				return true, nil
			}
			return false, fmt.Errorf("service/post: creating vote: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("service/post: reading vote: %w", err)
	}
}

// makeSlug turns a title into a URL slug: lowercased, non-alphanumeric runs
// collapsed to single hyphens, with the creation timestamp appended so two
// posts with the same title never collide.
func makeSlug(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	return fmt.Sprintf("%s-%d", slug, time.Now().UnixMilli())
}
