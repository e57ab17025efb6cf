package model

import "time"

// PostType classifies feed posts.
type PostType string

const (
	PostResource PostType = "RESOURCE"
	PostStrategy PostType = "STRATEGY"
	PostStory    PostType = "STORY"
)

// ValidPostType reports whether t is one of the three feed post types.
func ValidPostType(t PostType) bool {
	switch t {
	case PostResource, PostStrategy, PostStory:
		return true
	}
	return false
}

// Post is one feed entry.
//
// The slug is derived from the title at creation time (lowercased,
// non-alphanumeric runs collapsed to "-") with the creation timestamp
// appended, so two posts with the same title never collide.
//
// Tags are stored as a JSON array in a TEXT column — SQLite has no native
// array type, and we never query individual tags with an index, only filter
// small result pages in the service layer.
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	URL       string     `json:"url,omitempty"`
	Slug      string     `json:"slug"`
	Type      PostType   `json:"type"`
	Tags      []string   `json:"tags"`
	Published bool       `json:"published"`
	AuthorID  string     `json:"authorId"`
	Author    PublicUser `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	// Aggregates filled in by list/get queries.
	CommentCount int `json:"commentCount"`
	VoteCount    int `json:"voteCount"`

	// UserVote is the caller's own vote ("UP" or empty) when the request is
	// authenticated. Anonymous requests always see "".
	UserVote string `json:"userVote,omitempty"`
}

// Comment belongs to exactly one post and one author. ParentID is set for
// replies; top-level comments have an empty ParentID.
type Comment struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	PostID    string     `json:"postId"`
	AuthorID  string     `json:"authorId"`
	ParentID  string     `json:"parentId,omitempty"`
	Author    PublicUser `json:"author"`
	Replies   []Comment  `json:"replies,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Vote is one user's upvote on one post, UNIQUE per (user_id, post_id).
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	Type      string    `json:"type"` // "UP"
	CreatedAt time.Time `json:"createdAt"`
}
