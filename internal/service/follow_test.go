package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
)

// =========================================================================
// FAKE
// =========================================================================

// fakeFollowRepo stores edges keyed by "follower→following", mimicking the
// unique constraint on the pair.
type fakeFollowRepo struct {
	edges  map[string]*model.Follow
	nextID int
	// createConflict forces the next CreateFollow to report a duplicate,
	// simulating a concurrent toggle winning the insert race.
	createConflict bool
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{edges: make(map[string]*model.Follow), nextID: 1}
}

func pairKey(followerID, followingID string) string {
	return followerID + "→" + followingID
}

func (f *fakeFollowRepo) GetFollow(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	edge, ok := f.edges[pairKey(followerID, followingID)]
	if !ok {
		return nil, apperror.NotFound("follow", pairKey(followerID, followingID))
	}
	return edge, nil
}

func (f *fakeFollowRepo) CreateFollow(ctx context.Context, follow *model.Follow) error {
	key := pairKey(follow.FollowerID, follow.FollowingID)
	if f.createConflict {
		f.createConflict = false
		f.edges[key] = follow // the "other" toggle's edge
		return apperror.Conflict("already following this user")
	}
	if _, exists := f.edges[key]; exists {
		return apperror.Conflict("already following this user")
	}
	follow.ID = fmt.Sprintf("follow-%d", f.nextID)
	f.nextID++
	follow.CreatedAt = time.Now()
	f.edges[key] = follow
	return nil
}

func (f *fakeFollowRepo) DeleteFollow(ctx context.Context, id string) error {
	for key, edge := range f.edges {
		if edge.ID == id {
			delete(f.edges, key)
			return nil
		}
	}
	return nil // idempotent, matching the sqlite implementation
}

// =========================================================================
// Toggle TESTS
// =========================================================================

func TestToggle_IsSelfInverse(t *testing.T) {
	repo := newFakeFollowRepo()
	svc := NewFollowService(repo, testLogger())
	ctx := context.Background()

	// follow
	following, err := svc.Toggle(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("first Toggle() error = %v", err)
	}
	if !following {
		t.Error("first toggle should report following=true")
	}

	// unfollow
	following, err = svc.Toggle(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("second Toggle() error = %v", err)
	}
	if following {
		t.Error("second toggle should report following=false")
	}

	// and back again — state, not history
	following, err = svc.Toggle(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("third Toggle() error = %v", err)
	}
	if !following {
		t.Error("third toggle should report following=true again")
	}
}

func TestToggle_SelfFollowRejected(t *testing.T) {
	repo := newFakeFollowRepo()
	svc := NewFollowService(repo, testLogger())

	_, err := svc.Toggle(context.Background(), "alice", "alice")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if len(repo.edges) != 0 {
		t.Error("a rejected self-follow must not create an edge")
	}
}

func TestToggle_DirectionMatters(t *testing.T) {
	repo := newFakeFollowRepo()
	svc := NewFollowService(repo, testLogger())
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	// alice→bob says nothing about bob→alice
	following, err := svc.IsFollowing(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("IsFollowing() error = %v", err)
	}
	if following {
		t.Error("the follow edge is directed; the reverse direction must be absent")
	}
}

func TestToggle_LostInsertRaceIsBenign(t *testing.T) {
	repo := newFakeFollowRepo()
	repo.createConflict = true
	svc := NewFollowService(repo, testLogger())

	// The read saw "absent", the insert hit the unique constraint because a
	// concurrent toggle got there first. The caller wanted the edge to
	// exist — and it does — so this is following=true, not an error.
	following, err := svc.Toggle(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("Toggle() error = %v, want benign success", err)
	}
	if !following {
		t.Error("lost insert race should still report following=true")
	}
}

// =========================================================================
// IsFollowing TESTS
// =========================================================================

func TestIsFollowing(t *testing.T) {
	repo := newFakeFollowRepo()
	svc := NewFollowService(repo, testLogger())
	ctx := context.Background()

	following, err := svc.IsFollowing(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsFollowing() error = %v", err)
	}
	if following {
		t.Error("no edge yet — should be false")
	}

	if _, err := svc.Toggle(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	following, err = svc.IsFollowing(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsFollowing() error = %v", err)
	}
	if !following {
		t.Error("edge exists — should be true")
	}
}
