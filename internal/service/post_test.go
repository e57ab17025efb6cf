package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// =========================================================================
// FAKE
// =========================================================================

type fakePostRepo struct {
	posts    []*model.Post
	comments []*model.Comment
	votes    map[string]*model.Vote // keyed by userID+"|"+postID
	nextID   int

	voteConflict bool // force the next CreateVote to report a duplicate
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{votes: make(map[string]*model.Vote), nextID: 1}
}

func (f *fakePostRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakePostRepo) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = f.id("post")
	post.Published = true
	post.CreatedAt = time.Now()
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakePostRepo) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, int, error) {
	var matched []model.Post
	for _, p := range f.posts {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		matched = append(matched, *p)
	}
	total := len(matched)
	if filter.Offset >= total {
		return []model.Post{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (f *fakePostRepo) GetPostBySlug(ctx context.Context, slug, viewerID string) (*model.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperror.NotFound("post", slug)
}

func (f *fakePostRepo) ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	var out []model.Post
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakePostRepo) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = f.id("comment")
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakePostRepo) GetVote(ctx context.Context, userID, postID string) (*model.Vote, error) {
	v, ok := f.votes[userID+"|"+postID]
	if !ok {
		return nil, apperror.NotFound("vote", userID+"|"+postID)
	}
	return v, nil
}

func (f *fakePostRepo) CreateVote(ctx context.Context, vote *model.Vote) error {
	key := vote.UserID + "|" + vote.PostID
	if f.voteConflict {
		f.voteConflict = false
		f.votes[key] = vote
		return apperror.Conflict("already voted")
	}
	if _, exists := f.votes[key]; exists {
		return apperror.Conflict("already voted")
	}
	vote.ID = f.id("vote")
	f.votes[key] = vote
	return nil
}

func (f *fakePostRepo) DeleteVote(ctx context.Context, id string) error {
	for key, v := range f.votes {
		if v.ID == id {
			delete(f.votes, key)
			return nil
		}
	}
	return nil
}

func newTestPostService(repo *fakePostRepo) *PostService {
	return NewPostService(repo, testLogger())
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestPostCreate_Success(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)

	post, err := svc.Create(context.Background(), "author-1",
		"  How We Found Product-Market Fit  ", "long story", "https://example.com/writeup",
		model.PostStory, []string{"saas", "b2b"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if post.Title != "How We Found Product-Market Fit" {
		t.Errorf("Title = %q — should be trimmed", post.Title)
	}
	if !strings.HasPrefix(post.Slug, "how-we-found-product-market-fit-") {
		t.Errorf("Slug = %q, want the hyphenated title plus a timestamp suffix", post.Slug)
	}
	if !post.Published {
		t.Error("new posts are published immediately")
	}
}

func TestPostCreate_Validation(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	cases := []struct {
		name          string
		title, rawURL string
		postType      model.PostType
		tags          []string
	}{
		{"empty title", "", "", model.PostStory, nil},
		{"title too long", strings.Repeat("x", MaxTitleLength+1), "", model.PostStory, nil},
		{"bad type", "ok", "", model.PostType("RANT"), nil},
		{"too many tags", "ok", "", model.PostStory, []string{"1", "2", "3", "4", "5", "6"}},
		{"relative url", "ok", "/not/absolute", model.PostResource, nil},
		{"schemeless url", "ok", "example.com/x", model.PostResource, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "author-1", tc.title, "", tc.rawURL, tc.postType, tc.tags)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// List TESTS
// =========================================================================

func TestPostList_PaginationMath(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		if _, err := svc.Create(ctx, "author-1", fmt.Sprintf("post %d", i), "", "", model.PostStory, nil); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	posts, pagination, err := svc.List(ctx, repository.PostFilter{Limit: 20}, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(posts) != 5 {
		t.Errorf("page 3 of 45 with limit 20 should hold 5 posts, got %d", len(posts))
	}
	if pagination.Total != 45 {
		t.Errorf("Total = %d, want 45", pagination.Total)
	}
	if pagination.Pages != 3 {
		t.Errorf("Pages = %d, want 3 (ceil 45/20)", pagination.Pages)
	}
	if pagination.Page != 3 || pagination.Limit != 20 {
		t.Errorf("Page/Limit = %d/%d, want 3/20", pagination.Page, pagination.Limit)
	}
}

func TestPostList_ClampsPageAndLimit(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)

	_, pagination, err := svc.List(context.Background(), repository.PostFilter{Limit: 100000}, -5)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if pagination.Page != 1 {
		t.Errorf("Page = %d, want 1 (negative pages clamp)", pagination.Page)
	}
	if pagination.Limit != MaxPageSize {
		t.Errorf("Limit = %d, want %d (cap)", pagination.Limit, MaxPageSize)
	}
}

// =========================================================================
// AddComment TESTS
// =========================================================================

func TestAddComment(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, "post-1", "author-1", "  great write-up  ", "")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if comment.Content != "great write-up" {
		t.Errorf("Content = %q — should be trimmed", comment.Content)
	}
	if comment.ParentID != "" {
		t.Errorf("ParentID = %q, want empty for a top-level comment", comment.ParentID)
	}

	reply, err := svc.AddComment(ctx, "post-1", "author-2", "agreed", comment.ID)
	if err != nil {
		t.Fatalf("AddComment() reply error = %v", err)
	}
	if reply.ParentID != comment.ID {
		t.Errorf("reply ParentID = %q, want %q", reply.ParentID, comment.ID)
	}
}

func TestAddComment_Validation(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	if _, err := svc.AddComment(ctx, "post-1", "author-1", "   ", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank content error = %v, want ErrValidation", err)
	}
	long := strings.Repeat("x", MaxCommentLength+1)
	if _, err := svc.AddComment(ctx, "post-1", "author-1", long, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("oversized content error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// ToggleVote TESTS
// =========================================================================

func TestToggleVote_IsSelfInverse(t *testing.T) {
	repo := newFakePostRepo()
	svc := newTestPostService(repo)
	ctx := context.Background()

	voted, err := svc.ToggleVote(ctx, "user-1", "post-1")
	if err != nil {
		t.Fatalf("first ToggleVote() error = %v", err)
	}
	if !voted {
		t.Error("first toggle should report voted=true")
	}

	voted, err = svc.ToggleVote(ctx, "user-1", "post-1")
	if err != nil {
		t.Fatalf("second ToggleVote() error = %v", err)
	}
	if voted {
		t.Error("second toggle should report voted=false")
	}
}

func TestToggleVote_LostInsertRaceIsBenign(t *testing.T) {
	repo := newFakePostRepo()
	repo.voteConflict = true
	svc := newTestPostService(repo)

	voted, err := svc.ToggleVote(context.Background(), "user-1", "post-1")
	if err != nil {
		t.Fatalf("ToggleVote() error = %v, want benign success", err)
	}
	if !voted {
		t.Error("lost insert race should still report voted=true")
	}
}

// =========================================================================
// makeSlug TESTS
// =========================================================================

func TestMakeSlug(t *testing.T) {
	cases := []struct {
		title string
		want  string // expected prefix, before the timestamp
	}{
		{"Hello World", "hello-world-"},
		{"  Lots   of---punctuation!!!  ", "lots-of-punctuation-"},
		{"Über Führung", "ber-fhrung-"}, // non-ASCII letters are stripped
		{"123 go", "123-go-"},
	}

	for _, tc := range cases {
		got := makeSlug(tc.title)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("makeSlug(%q) = %q, want prefix %q", tc.title, got, tc.want)
		}
		// The suffix after the prefix must be a plausible unix-milli timestamp.
		suffix := strings.TrimPrefix(got, tc.want)
		if len(suffix) < 10 {
			t.Errorf("makeSlug(%q) suffix %q doesn't look like a timestamp", tc.title, suffix)
		}
	}
}

func TestMakeSlug_SameTitleNeverCollides(t *testing.T) {
	a := makeSlug("My Startup Story")
	time.Sleep(2 * time.Millisecond)
	b := makeSlug("My Startup Story")
	if a == b {
		t.Errorf("two slugs for the same title collided: %q", a)
	}
}
