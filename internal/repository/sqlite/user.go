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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, username, image, bio,
	country, current_project, hear_about_us, onboarding_completed, role,
	created_at, updated_at`

// scanUser reads one user row. Works for both QueryRow and Rows since both
// expose Scan with the same signature.
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Username, &u.Image,
		&u.Bio, &u.Country, &u.CurrentProject, &u.HearAboutUs,
		&u.OnboardingCompleted, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. The caller provides email, username, and the
// profile fields; ID and timestamps are generated here. A duplicate email or
// username surfaces as ErrConflict — creation never silently overwrites.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, username, image,
			onboarding_completed, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Username,
		user.Image, user.OnboardingCompleted, user.Role,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("a user with this email or username already exists"),
			fmt.Sprintf("inserting user (email=%s)", user.Email))
	}
	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by exact email — the find-by-email access
// pattern used by credentials login, OAuth provisioning, and claim refresh.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// GetByUsernameFold retrieves a user by username, case-insensitively.
// This is the lookup backing username-collision checks; the column's UNIQUE
// constraint itself is case-sensitive.
func (db *DB) GetByUsernameFold(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER(?)`, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}
	return u, nil
}

// UpdateImage writes only the avatar URL — the OAuth profile photo sync.
// All other fields stay untouched.
func (db *DB) UpdateImage(ctx context.Context, id, image string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET image = ?, updated_at = ? WHERE id = ?`,
		image, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user image %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// CompleteOnboarding writes the five onboarding fields plus the completion
// flag in one UPDATE — atomic from the caller's perspective, no partial
// state is observable. Returns the updated record.
func (db *DB) CompleteOnboarding(ctx context.Context, id string, upd repository.OnboardingUpdate) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, username = ?, country = ?,
			current_project = ?, hear_about_us = ?,
			onboarding_completed = 1, updated_at = ?
		 WHERE id = ?`,
		upd.Name, upd.Username, upd.Country, upd.CurrentProject,
		upd.HearAboutUs, time.Now(), id,
	)
	if err != nil {
		return nil, conflictOr(err, apperror.Conflict("Username is already taken"),
			fmt.Sprintf("completing onboarding for %s", id))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return db.GetByID(ctx, id)
}

// UpdateProfile applies a profile edit. Empty Name/Username mean "keep"; Bio
// is always written. Returns the updated record.
func (db *DB) UpdateProfile(ctx context.Context, id string, upd repository.ProfileUpdate) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET
			name     = CASE WHEN ? != '' THEN ? ELSE name END,
			username = CASE WHEN ? != '' THEN ? ELSE username END,
			bio      = ?,
			updated_at = ?
		 WHERE id = ?`,
		upd.Name, upd.Name, upd.Username, upd.Username, upd.Bio,
		time.Now(), id,
	)
	if err != nil {
		return nil, conflictOr(err, apperror.Conflict("Username is already taken"),
			fmt.Sprintf("updating profile for %s", id))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return db.GetByID(ctx, id)
}

// GetProfile returns the public profile view plus relationship counts.
// The three counts are correlated subqueries — each is a fixed shape over an
// indexed column, cheap at this scale.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.username, u.email, u.image, u.bio, u.created_at,
			(SELECT COUNT(*) FROM posts WHERE author_id = u.id AND published = 1),
			(SELECT COUNT(*) FROM follows WHERE following_id = u.id),
			(SELECT COUNT(*) FROM follows WHERE follower_id = u.id)
		 FROM users u WHERE u.id = ?`, id,
	).Scan(
		&p.ID, &p.Name, &p.Username, &p.Email, &p.Image, &p.Bio, &p.CreatedAt,
		&p.Posts, &p.Followers, &p.Following,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return &p, nil
}

// Search matches users whose name or email contains the query,
// case-insensitively, excluding excludeID (the caller). Results include the
// email — this powers the people picker in chat, where you search by address.
func (db *DB) Search(ctx context.Context, query, excludeID string, limit int) ([]model.PublicUser, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, username, email, image FROM users
		 WHERE id != ?
		   AND (name LIKE ? COLLATE NOCASE OR email LIKE ? COLLATE NOCASE)
		 ORDER BY name
		 LIMIT ?`,
		excludeID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	users := []model.PublicUser{}
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Image); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user search row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user search rows: %w", err)
	}
	return users, nil
}
