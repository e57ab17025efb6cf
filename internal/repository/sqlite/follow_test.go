package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
)

// =========================================================================
// FOLLOW EDGE TESTS
// =========================================================================

func TestFollowRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "alice@example.com", "alice")
	bob := createTestUser(t, db, "Bob", "bob@example.com", "bob")

	// Absent before creation.
	_, err := db.GetFollow(ctx, alice.ID, bob.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetFollow() before create error = %v, want ErrNotFound", err)
	}

	edge := &model.Follow{FollowerID: alice.ID, FollowingID: bob.ID}
	if err := db.CreateFollow(ctx, edge); err != nil {
		t.Fatalf("CreateFollow() error = %v", err)
	}
	if edge.ID == "" {
		t.Error("CreateFollow() did not set edge.ID")
	}

	found, err := db.GetFollow(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetFollow() error = %v", err)
	}
	if found.ID != edge.ID {
		t.Errorf("ID = %q, want %q", found.ID, edge.ID)
	}

	if err := db.DeleteFollow(ctx, edge.ID); err != nil {
		t.Fatalf("DeleteFollow() error = %v", err)
	}
	_, err = db.GetFollow(ctx, alice.ID, bob.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetFollow() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCreateFollow_DuplicatePairConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "alice@example.com", "alice")
	bob := createTestUser(t, db, "Bob", "bob@example.com", "bob")

	if err := db.CreateFollow(ctx, &model.Follow{FollowerID: alice.ID, FollowingID: bob.ID}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// The UNIQUE constraint is the arbiter under concurrent toggles — the
	// second insert of the same pair must surface as ErrConflict.
	err := db.CreateFollow(ctx, &model.Follow{FollowerID: alice.ID, FollowingID: bob.ID})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate CreateFollow() error = %v, want ErrConflict", err)
	}
}

func TestFollow_DirectionMatters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "alice@example.com", "alice")
	bob := createTestUser(t, db, "Bob", "bob@example.com", "bob")

	if err := db.CreateFollow(ctx, &model.Follow{FollowerID: alice.ID, FollowingID: bob.ID}); err != nil {
		t.Fatalf("CreateFollow() error = %v", err)
	}

	// alice→bob does not imply bob→alice.
	_, err := db.GetFollow(ctx, bob.ID, alice.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("reverse GetFollow() error = %v, want ErrNotFound", err)
	}

	// The reverse edge is its own row, not a constraint violation.
	if err := db.CreateFollow(ctx, &model.Follow{FollowerID: bob.ID, FollowingID: alice.ID}); err != nil {
		t.Errorf("reverse CreateFollow() error = %v, want success", err)
	}
}

func TestDeleteFollow_UnknownIDIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.DeleteFollow(context.Background(), "no-such-edge"); err != nil {
		t.Errorf("DeleteFollow() for unknown ID error = %v, want nil", err)
	}
}
