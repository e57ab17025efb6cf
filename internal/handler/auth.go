package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/service"
)

// AuthHandler manages registration, credentials login, the OAuth flows for
// every configured provider, and session management.
//
// ROUTES:
//
//	POST /api/auth/register          → create a local-password user
//	POST /api/auth/login             → credentials sign-in, sets session cookie
//	GET  /auth/{provider}/login      → redirect to the provider's consent page
//	GET  /auth/{provider}/callback   → complete OAuth, set cookie, redirect
//	POST /auth/logout                → clear the session cookie
//	GET  /api/me                     → current session's user record
type AuthHandler struct {
	authSvc   *service.AuthService
	providers map[string]*auth.Provider
	baseURL   string
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. providers is keyed by short name
// ("github", "google"); an empty map disables the OAuth routes but leaves
// credentials auth working.
func NewAuthHandler(
	authSvc *service.AuthService,
	providers map[string]*auth.Provider,
	baseURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authSvc:   authSvc,
		providers: providers,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// sessionMaxAge matches the token lifetime: 30 days.
const sessionMaxAge = int(30 * 24 * time.Hour / time.Second)

// setSessionCookie stores the JWT in an HttpOnly cookie.
// HttpOnly = JavaScript cannot read it (XSS protection).
// SameSite=Lax = sent on top-level navigations but not cross-site POSTs.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in production (requires HTTPS)
	})
}

// HandleRegister creates a local-password user.
//
// HTTP: POST /api/auth/register
// BODY: {"name": "...", "email": "...", "password": "..."}
//
// The response never contains the password hash; a duplicate email yields
// 409. Registration does not sign the user in — the client follows up with
// a login call, same as the platform's register page.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.authSvc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

// HandleLogin authenticates with email/password and sets the session cookie.
//
// HTTP: POST /api/auth/login
//
// Failure bodies distinguish only what the service allows them to: a
// passwordless (OAuth-provisioned) account gets its specific message; every
// other credentials failure is the same generic one.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleOAuthLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/{provider}/login?redirect=/some/path
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into the provider URL and into a
// short-lived cookie; the callback verifies they match. The optional
// redirect target rides along in its own cookie and is resolved by the safe
// redirect policy after sign-in — never trusted as-is.
func (h *AuthHandler) HandleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[r.PathValue("provider")]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if redirect := r.URL.Query().Get("redirect"); redirect != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     "oauth_redirect",
			Value:    redirect,
			Path:     "/",
			MaxAge:   600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleOAuthCallback completes the OAuth login flow.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a provider profile
//  3. Resolve the profile to a User (create or image-sync) and issue a JWT
//  4. Redirect through the safe redirect policy
//
// Any failure aborts the sign-in with no partial user created — the service
// guarantees the write only happens after a usable profile arrived.
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[r.PathValue("provider")]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// State is single-use
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization",
			slog.String("provider", provider.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/login?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.authSvc.LoginOrRegisterOAuth(r.Context(), profile)
	if err != nil {
		h.logger.Error("oauth callback: sign-in failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, result.Token)

	// Resolve the requested post-login destination through the open-redirect
	// guard; missing or cross-origin targets land on the feed.
	target := ""
	if c, err := r.Cookie("oauth_redirect"); err == nil {
		target = c.Value
		http.SetCookie(w, &http.Cookie{Name: "oauth_redirect", Value: "", Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, auth.ResolveRedirect(target, h.baseURL), http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout is state-changing, and GET would be vulnerable to
// CSRF and browser prefetching. Since sessions are stateless JWTs, "logout"
// means deleting the client-side cookie; the token stays technically valid
// until expiry but the browser can no longer send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's record.
//
// HTTP: GET /api/me
// Auth: required
//
// The middleware has already refreshed the claim bundle from the database,
// so the ID here is current even if the username or role changed since
// sign-in.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.authSvc.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
