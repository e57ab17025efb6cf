package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// compile-time check that *DB implements repository.FollowRepository
var _ repository.FollowRepository = (*DB)(nil)

// GetFollow returns the directed edge for the ordered (follower, following)
// pair, or apperror.ErrNotFound if no edge exists.
func (db *DB) GetFollow(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	var f model.Follow
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, follower_id, following_id, created_at
		 FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	).Scan(&f.ID, &f.FollowerID, &f.FollowingID, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("follow", followerID+"→"+followingID)
		}
		return nil, fmt.Errorf("sqlite: getting follow edge: %w", err)
	}
	return &f, nil
}

// CreateFollow inserts the edge. Two concurrent toggles can both read
// "absent" and both attempt this insert; the UNIQUE constraint rejects one
// of them with ErrConflict, which the service treats as a harmless race.
func (db *DB) CreateFollow(ctx context.Context, follow *model.Follow) error {
	follow.ID = xid.New().String()
	follow.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, following_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		follow.ID, follow.FollowerID, follow.FollowingID, follow.CreatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("already following this user"),
			"inserting follow edge")
	}
	return nil
}

// DeleteFollow removes the edge by ID. Deleting an already-deleted edge is
// not an error — the end state is the same.
func (db *DB) DeleteFollow(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM follows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting follow %s: %w", id, err)
	}
	return nil
}
