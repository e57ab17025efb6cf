package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/repository"
	"github.com/sakif/startup-nation/internal/service"
)

// UserHandler manages profiles, onboarding, username checks, search, and
// the follow relationship.
//
// ROUTES:
//
//	GET   /api/onboarding                 → caller's onboarding status
//	POST  /api/onboarding                 → complete onboarding
//	GET   /api/users/check-username       → username availability
//	GET   /api/users/search               → people search
//	GET   /api/users/{userId}             → public profile + counts
//	PATCH /api/users/{userId}             → edit own profile
//	GET   /api/users/{userId}/posts       → that user's posts
//	POST  /api/users/{userId}/follow      → toggle follow
//	GET   /api/users/{userId}/follow      → follow state
type UserHandler struct {
	users   *service.UserService
	follows *service.FollowService
	posts   *service.PostService
	logger  *slog.Logger
}

func NewUserHandler(
	users *service.UserService,
	follows *service.FollowService,
	posts *service.PostService,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{users: users, follows: follows, posts: posts, logger: logger}
}

// HandleOnboardingStatus returns the caller's onboarding flag and profile
// fields, lazily provisioning the backing row for sessions whose user was
// never written (OAuth edge).
//
// HTTP: GET /api/onboarding
// Auth: required
func (h *UserHandler) HandleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.users.OnboardingStatus(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleCompleteOnboarding writes the five required profile fields and
// flips the completion flag.
//
// HTTP: POST /api/onboarding
// Auth: required
func (h *UserHandler) HandleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Name           string `json:"name"`
		Username       string `json:"username"`
		Country        string `json:"country"`
		CurrentProject string `json:"currentProject"`
		HearAboutUs    string `json:"hearAboutUs"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.CompleteOnboarding(r.Context(), claims.Email, repository.OnboardingUpdate{
		Name:           req.Name,
		Username:       req.Username,
		Country:        req.Country,
		CurrentProject: req.CurrentProject,
		HearAboutUs:    req.HearAboutUs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// HandleCheckUsername reports whether a candidate username is free.
//
// HTTP: GET /api/users/check-username?username=founder
// Auth: required
func (h *UserHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	available, err := h.users.CheckUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": available,
		"username":  username,
	})
}

// HandleSearch returns users matching the q parameter by name or email.
//
// HTTP: GET /api/users/search?q=ada
// Auth: required
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	users, err := h.users.Search(r.Context(), claims.UserID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleProfile returns a public profile with post/follower counts.
//
// HTTP: GET /api/users/{userId}
// Auth: none — profiles are public
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateProfile edits the caller's own profile.
//
// HTTP: PATCH /api/users/{userId}
// Auth: required; callers can only edit themselves
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Bio      string `json:"bio"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), claims.UserID, r.PathValue("userId"), repository.ProfileUpdate{
		Name:     req.Name,
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUserPosts returns a user's published posts, newest first.
//
// HTTP: GET /api/users/{userId}/posts
func (h *UserHandler) HandleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListByAuthor(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleFollowToggle flips the follow edge toward the path user.
//
// HTTP: POST /api/users/{userId}/follow
// Auth: required
//
// The response carries the resulting state, not the action taken —
// {"following": true} after a follow, {"following": false} after an
// unfollow — so the client renders state, not history.
func (h *UserHandler) HandleFollowToggle(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	following, err := h.follows.Toggle(r.Context(), claims.UserID, r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

// HandleFollowStatus reports whether the caller follows the path user.
// Anonymous callers are simply not following anyone.
//
// HTTP: GET /api/users/{userId}/follow
func (h *UserHandler) HandleFollowStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"following": false})
		return
	}

	following, err := h.follows.IsFollowing(r.Context(), claims.UserID, r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}
