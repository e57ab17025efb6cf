package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Profile is the identity information we extract from an OAuth provider
// after a successful callback: the provider's stable account ID plus the
// profile fields (name, email, image) used to provision or refresh a User.
//
// The core trusts Email as verified by the provider. A Profile with an empty
// Email is unusable — sign-in must abort rather than create a user without
// the durable identity key.
type Profile struct {
	Provider  string // "github" or "google"
	AccountID string // provider's stable user ID, stringified
	Name      string
	Email     string
	Image     string
}

// Provider wraps golang.org/x/oauth2 for one OAuth identity provider.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. Our server redirects the user to the provider's authorization endpoint,
//    with our ClientID and the requested scopes.
// 2. The user approves (or denies) the authorization request.
// 3. The provider redirects back to our callback URL with a short-lived code.
// 4. Our server exchanges the code for an access token (server-to-server).
// 5. Our server uses the access token to fetch the user's profile.
//
// The code-for-token exchange uses the ClientSecret and never touches the
// browser, which is why the callback must happen server-side.
//
// Both GitHub and Google share this struct; only the endpoint, scopes, and
// the profile-response decoding differ, so the constructor injects a
// per-provider decode function.
type Provider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	decode     func([]byte) (*Profile, error)
}

// NewGitHubProvider creates a Provider for the GitHub Authorization Code flow.
//
// Register an OAuth App at https://github.com/settings/developers and set the
// "Authorization callback URL" to callbackURL exactly.
//
// Scopes:
//   - "read:user"  — the user's public profile (ID, name, avatar)
//   - "user:email" — the user's email addresses
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoints.GitHub,
		},
		profileURL: "https://api.github.com/user",
		decode:     decodeGitHubProfile,
	}
}

// NewGoogleProvider creates a Provider for Google sign-in.
// Scopes follow the standard OpenID trio: openid, email, profile.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		profileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		decode:     decodeGoogleProfile,
	}
}

// Name returns the provider's short name ("github" or "google"), used in
// route paths and log fields.
func (p *Provider) Name() string {
	return p.name
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When the provider calls back, we verify the returned state
// matches our cookie. This prevents CSRF attacks where an attacker tricks a
// browser into completing an OAuth flow for the attacker's account.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for a
// provider Profile. This is the core of the callback handler.
//
// Steps:
//  1. Exchange the code for an OAuth access token (server-to-server)
//  2. Use the token to call the provider's profile API
//  3. Decode the response into a Profile
func (p *Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s OAuth code: %w", p.name, err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling %s profile API: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s profile API returned status %d", p.name, resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile response: %w", p.name, err)
	}

	profile, err := p.decode(body)
	if err != nil {
		return nil, fmt.Errorf("auth: %s: %w", p.name, err)
	}
	profile.Provider = p.name
	return profile, nil
}

// decodeGitHubProfile maps the GitHub /user response onto a Profile.
// GitHub returns a much larger object — we only unmarshal the fields we need.
// Email can be empty if the user hid it in their GitHub settings; callers
// must treat that as a failed sign-in, not a blank identity.
func decodeGitHubProfile(raw []byte) (*Profile, error) {
	var gh struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(raw, &gh); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if gh.ID == 0 {
		return nil, fmt.Errorf("provider returned an invalid user (ID = 0)")
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}
	return &Profile{
		AccountID: fmt.Sprintf("%d", gh.ID),
		Name:      name,
		Email:     gh.Email,
		Image:     gh.AvatarURL,
	}, nil
}

// decodeGoogleProfile maps the Google userinfo response onto a Profile.
func decodeGoogleProfile(raw []byte) (*Profile, error) {
	var g struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if g.ID == "" {
		return nil, fmt.Errorf("provider returned an invalid user (empty ID)")
	}
	return &Profile{
		AccountID: g.ID,
		Name:      g.Name,
		Email:     g.Email,
		Image:     g.Picture,
	}, nil
}
