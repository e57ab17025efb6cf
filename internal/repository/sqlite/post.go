package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

// postSelect is the shared SELECT shape for feed queries: the post row, the
// author's embeddable fields, and three aggregates. The viewer's own vote is
// parameterised — an empty viewer ID simply never matches.
//
// Tags live in a TEXT column as a JSON array; json_each (SQLite's JSON1
// extension, included in modernc.org/sqlite) unpacks them for filtering.
const postSelect = `
	SELECT p.id, p.title, p.content, p.url, p.slug, p.type, p.tags,
		p.published, p.author_id, p.created_at, p.updated_at,
		u.id, u.name, u.username, u.email, u.image,
		(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
		(SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id),
		COALESCE((SELECT v.type FROM votes v WHERE v.post_id = p.id AND v.user_id = ?), '')
	FROM posts p
	JOIN users u ON u.id = p.author_id`

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	var tagsJSON string
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.URL, &p.Slug, &p.Type, &tagsJSON,
		&p.Published, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Name, &p.Author.Username, &p.Author.Email, &p.Author.Image,
		&p.CommentCount, &p.VoteCount, &p.UserVote,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for post %s: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// CreatePost inserts a new post. ID and timestamps are generated here; the
// service supplies the slug. A duplicate slug surfaces as ErrConflict.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now()
	post.ID = xid.New().String()
	post.Published = true
	post.CreatedAt = now
	post.UpdatedAt = now

	if post.Tags == nil {
		post.Tags = []string{}
	}
	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, url, slug, type, tags,
			published, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Content, post.URL, post.Slug, post.Type,
		string(tagsJSON), post.Published, post.AuthorID,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("a post with this slug already exists"),
			"inserting post")
	}
	return nil
}

// ListPosts returns one page of published posts, newest first, plus the
// unpaginated total for the same filter.
//
// The WHERE clause is assembled from a fixed, ordered set of optional
// predicates — published, type, search, tags — not from caller-supplied
// fragments; every value travels as a bind parameter.
func (db *DB) ListPosts(ctx context.Context, f repository.PostFilter) ([]model.Post, int, error) {
	where := []string{"p.published = 1"}
	args := []any{}

	if f.Type != "" {
		where = append(where, "p.type = ?")
		args = append(args, f.Type)
	}
	if f.Search != "" {
		where = append(where, "(p.title LIKE ? COLLATE NOCASE OR p.content LIKE ? COLLATE NOCASE)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(f.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Tags)), ",")
		where = append(where,
			"EXISTS (SELECT 1 FROM json_each(p.tags) WHERE json_each.value IN ("+placeholders+"))")
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	// Total first — same filter, no pagination.
	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}

	// The viewer-vote parameter comes first in postSelect.
	queryArgs := append([]any{f.ViewerID}, args...)
	queryArgs = append(queryArgs, f.Limit, f.Offset)

	rows, err := db.conn.QueryContext(ctx,
		postSelect+whereClause+` ORDER BY p.created_at DESC LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}
	return posts, total, nil
}

// GetPostBySlug retrieves a single published post by its slug.
func (db *DB) GetPostBySlug(ctx context.Context, slug, viewerID string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx,
		postSelect+` WHERE p.slug = ? AND p.published = 1`, viewerID, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", slug)
		}
		return nil, fmt.Errorf("sqlite: getting post by slug %s: %w", slug, err)
	}
	return p, nil
}

// ListPostsByAuthor returns a user's published posts, newest first.
func (db *DB) ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		postSelect+` WHERE p.author_id = ? AND p.published = 1
		 ORDER BY p.created_at DESC`,
		"", authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts by author %s: %w", authorID, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}
	return posts, nil
}

// ListComments returns a post's top-level comments newest first, each with
// its replies oldest first.
//
// One query fetches every comment for the post in creation order; the
// two-level shape is assembled here. Replies to replies collapse onto their
// top-level parent's thread, matching the flat reply model of the feed UI.
func (db *DB) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.content, c.post_id, c.author_id, c.parent_id, c.created_at,
			u.id, u.name, u.username, u.image
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	var all []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(
			&c.ID, &c.Content, &c.PostID, &c.AuthorID, &c.ParentID, &c.CreatedAt,
			&c.Author.ID, &c.Author.Name, &c.Author.Username, &c.Author.Image,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}

	// Partition: replies attach to their parent (oldest first, already the
	// scan order); top-level comments flip to newest first.
	byID := make(map[string]int)
	topLevel := []model.Comment{}
	for _, c := range all {
		if c.ParentID == "" {
			topLevel = append(topLevel, c)
			byID[c.ID] = len(topLevel) - 1
		}
	}
	for _, c := range all {
		if c.ParentID == "" {
			continue
		}
		if idx, ok := byID[c.ParentID]; ok {
			topLevel[idx].Replies = append(topLevel[idx].Replies, c)
		}
	}
	for i, j := 0, len(topLevel)-1; i < j; i, j = i+1, j-1 {
		topLevel[i], topLevel[j] = topLevel[j], topLevel[i]
	}
	return topLevel, nil
}

// CreateComment inserts a comment. ID and timestamp are generated here.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, content, post_id, author_id, parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.Content, comment.PostID, comment.AuthorID,
		comment.ParentID, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}
	return nil
}

// GetVote returns the user's vote on a post, or apperror.ErrNotFound.
func (db *DB) GetVote(ctx context.Context, userID, postID string) (*model.Vote, error) {
	var v model.Vote
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, post_id, type, created_at
		 FROM votes WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	).Scan(&v.ID, &v.UserID, &v.PostID, &v.Type, &v.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("vote", userID+"→"+postID)
		}
		return nil, fmt.Errorf("sqlite: getting vote: %w", err)
	}
	return &v, nil
}

// CreateVote inserts the user's vote; the (user_id, post_id) UNIQUE
// constraint rejects a concurrent duplicate with ErrConflict.
func (db *DB) CreateVote(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	if vote.Type == "" {
		vote.Type = "UP"
	}
	vote.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, post_id, type, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		vote.ID, vote.UserID, vote.PostID, vote.Type, vote.CreatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("already voted on this post"),
			"inserting vote")
	}
	return nil
}

// DeleteVote removes a vote by ID.
func (db *DB) DeleteVote(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting vote %s: %w", id, err)
	}
	return nil
}
