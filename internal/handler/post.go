package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
	"github.com/sakif/startup-nation/internal/service"
)

// PostHandler serves the feed: listing and creating posts, threaded
// comments, and the vote toggle.
//
// ROUTES:
//
//	GET  /api/posts                     → filtered, paginated feed
//	POST /api/posts                     → create a post
//	GET  /api/posts/slug/{slug}         → single post by slug
//	GET  /api/posts/{postId}/comments   → threaded comments
//	POST /api/posts/{postId}/comments   → add a comment or reply
//	POST /api/posts/{postId}/vote       → toggle upvote
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// HandleList returns one page of the feed.
//
// HTTP: GET /api/posts?type=RESOURCE&tags=saas,b2b&search=pricing&page=2&limit=20
//
// Auth is optional: a signed-in viewer gets their own vote state on each
// post, an anonymous viewer gets userVote="". All filters combine with AND;
// tags match if the post carries ANY of the requested tags.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.PostFilter{
		Type:   model.PostType(q.Get("type")),
		Search: q.Get("search"),
	}
	if raw := q.Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		filter.ViewerID = claims.UserID
	}

	page, _ := strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	posts, pagination, err := h.posts.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": pagination,
	})
}

// HandleCreate creates a feed post.
//
// HTTP: POST /api/posts
// BODY: {"title": "...", "content": "...", "url": "...", "type": "RESOURCE", "tags": ["saas"]}
// Auth: required
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		URL     string   `json:"url"`
		Type    string   `json:"type"`
		Tags    []string `json:"tags"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), claims.UserID, req.Title, req.Content, req.URL, model.PostType(req.Type), req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleGetBySlug returns a single published post.
//
// HTTP: GET /api/posts/slug/{slug}
//
// Auth is optional; a signed-in viewer's vote state rides along on the post.
func (h *PostHandler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		viewerID = claims.UserID
	}

	post, err := h.posts.GetBySlug(r.Context(), r.PathValue("slug"), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleListComments returns a post's comments, threaded one level deep:
// top-level comments newest first, each carrying its replies oldest first.
//
// HTTP: GET /api/posts/{postId}/comments
func (h *PostHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.posts.Comments(r.Context(), r.PathValue("postId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleAddComment adds a comment, or a reply when parentId is set.
//
// HTTP: POST /api/posts/{postId}/comments
// BODY: {"content": "...", "parentId": "optional-comment-id"}
// Auth: required
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Content  string `json:"content"`
		ParentID string `json:"parentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.posts.AddComment(r.Context(), r.PathValue("postId"), claims.UserID, req.Content, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleToggleVote flips the caller's upvote on a post.
//
// HTTP: POST /api/posts/{postId}/vote
// Auth: required
//
// Like the follow toggle, the response reports the resulting state:
// {"voted": true} after adding the vote, {"voted": false} after removing it.
func (h *PostHandler) HandleToggleVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	voted, err := h.posts.ToggleVote(r.Context(), claims.UserID, r.PathValue("postId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voted": voted})
}
