// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage. Use
// ":memory:" for tests.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/startup-nation/internal/apperror"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One struct implements all four repository interfaces — they share the
// connection and the schema, and the service layer only ever sees the
// interfaces.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// sql.Open does not actually open a connection — it creates a pool manager.
// Ping forces an immediate connection so a bad path or permissions issue
// surfaces here instead of on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
//
// UNIQUENESS NOTES:
//   - users.email UNIQUE — email is the durable identity key
//   - users.username UNIQUE is case-SENSITIVE at the constraint level; the
//     case-insensitive uniqueness rule is enforced by lookup-time checks in
//     the service layer (GetByUsernameFold), matching platform behaviour
//   - follows (follower_id, following_id) UNIQUE — the arbiter for
//     concurrent follow toggles
//   - votes (user_id, post_id) UNIQUE — one vote per user per post
func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			name                 TEXT NOT NULL DEFAULT '',
			email                TEXT NOT NULL UNIQUE,
			password_hash        TEXT NOT NULL DEFAULT '',
			username             TEXT NOT NULL UNIQUE,
			image                TEXT NOT NULL DEFAULT '',
			bio                  TEXT NOT NULL DEFAULT '',
			country              TEXT NOT NULL DEFAULT '',
			current_project      TEXT NOT NULL DEFAULT '',
			hear_about_us        TEXT NOT NULL DEFAULT '',
			onboarding_completed INTEGER NOT NULL DEFAULT 0,
			role                 TEXT NOT NULL DEFAULT 'USER',
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS follows (
			id           TEXT PRIMARY KEY,
			follower_id  TEXT NOT NULL REFERENCES users(id),
			following_id TEXT NOT NULL REFERENCES users(id),
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (follower_id, following_id)
		)`,

		`CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			url        TEXT NOT NULL DEFAULT '',
			slug       TEXT NOT NULL UNIQUE,
			type       TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			published  INTEGER NOT NULL DEFAULT 1,
			author_id  TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id)`,

		`CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			post_id    TEXT NOT NULL REFERENCES posts(id),
			author_id  TEXT NOT NULL REFERENCES users(id),
			parent_id  TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,

		`CREATE TABLE IF NOT EXISTS votes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			post_id    TEXT NOT NULL REFERENCES posts(id),
			type       TEXT NOT NULL DEFAULT 'UP',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, post_id)
		)`,

		`CREATE TABLE IF NOT EXISTS chat_rooms (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS chat_room_members (
			room_id TEXT NOT NULL REFERENCES chat_rooms(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (room_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			room_id    TEXT NOT NULL REFERENCES chat_rooms(id),
			sender_id  TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes constraint errors only through the message
// text, so string matching is the available check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// conflictOr translates a UNIQUE violation into the given AppError and
// passes every other error through wrapped.
func conflictOr(err error, conflict *apperror.AppError, wrap string) error {
	if isUniqueViolation(err) {
		return conflict
	}
	return fmt.Errorf("sqlite: %s: %w", wrap, err)
}
