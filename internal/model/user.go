// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role is the user's permission level. Stored as TEXT in the database.
// Typed string constants (not iota ints) keep the stored values readable and
// safe to extend — adding a role never renumbers existing rows.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents one platform identity.
//
// EMAIL IS THE DURABLE IDENTITY KEY:
// A user who registered with a password and later signs in with Google using
// the same email is the SAME user — OAuth sign-in looks users up by email, not
// by provider account ID. The UNIQUE constraint on email in the DB enforces
// one row per identity.
//
// WHY PasswordHash string (not *string)?
// OAuth-provisioned users never set a password. We use the empty string as the
// "no password" marker rather than a nullable pointer — simpler to work with,
// and HasPassword() makes the check explicit at call sites. The hash is never
// serialized to JSON (`json:"-"`).
//
// OnboardingCompleted gates nothing server-side. It is a flag the client reads
// via GET /api/onboarding to decide whether to redirect into the onboarding
// flow. Route-level auth checks token presence only.
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"` // empty for OAuth-only users
	Username            string    `json:"username"`
	Image               string    `json:"image,omitempty"`
	Bio                 string    `json:"bio,omitempty"`
	Country             string    `json:"country,omitempty"`
	CurrentProject      string    `json:"currentProject,omitempty"`
	HearAboutUs         string    `json:"hearAboutUs,omitempty"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	Role                Role      `json:"role"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasPassword reports whether this user can authenticate with credentials.
// False means the account was provisioned by an OAuth provider.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicUser is the subset of User safe to embed in other resources
// (post authors, chat members, search results).
type PublicUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Image    string `json:"image,omitempty"`
}

// Public projects a User to its embeddable form. includeEmail is opt-in
// because only a few routes (post authors, user search) expose it.
func (u *User) Public(includeEmail bool) PublicUser {
	p := PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Image:    u.Image,
	}
	if includeEmail {
		p.Email = u.Email
	}
	return p
}

// Profile is the public profile view returned by GET /api/users/{userId}:
// the user's visible fields plus relationship counts.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Posts     int       `json:"posts"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
}
