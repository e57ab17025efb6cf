package auth

import (
	"testing"
	"time"

	"github.com/sakif/startup-nation/internal/model"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser() *model.User {
	return &model.User{
		ID:       "user-abc-123",
		Username: "ada",
		Role:     model.RoleUser,
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Image:    "https://example.com/ada.png",
	}
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssue_ReturnsNonEmptyToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Error("Issue() returned empty token")
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	dots := 0
	for _, c := range token {
		if c == '.' {
			dots++
		}
	}
	if dots != 2 {
		t.Errorf("Issue() token doesn't look like a JWT (expected 2 dots, got %d)", dots)
	}
}

func TestIssue_NilUser(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Issue(nil)
	if err == nil {
		t.Fatal("Issue() should reject a nil user")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_ClaimBundleRoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// Every field of the claim bundle must survive the round trip
	if claims.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
	if claims.Role != user.Role {
		t.Errorf("Role = %q, want %q", claims.Role, user.Role)
	}
	if claims.Name != user.Name {
		t.Errorf("Name = %q, want %q", claims.Name, user.Name)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Image != user.Image {
		t.Errorf("Image = %q, want %q", claims.Image, user.Image)
	}
	if claims.Subject != user.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// Issue a token that expired 1 second ago
	token, err := ts.IssueWithDuration(testUser(), -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should return an error for an expired token")
	}
	t.Logf("Expired token error (expected): %v", err)
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testUser())

	// Flip characters in the signature to simulate tampering
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.Issue(testUser())

	_, err := ts2.Validate(token)
	if err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_EmptyToken(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Validate("")
	if err == nil {
		t.Fatal("Validate() should return an error for an empty string")
	}
}

func TestValidate_GarbageString(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Validate("not.a.jwt.token")
	if err == nil {
		t.Fatal("Validate() should return an error for a garbage string")
	}
}

func TestValidate_MissingEmailClaim(t *testing.T) {
	ts := newTestTokenService(t)

	// Email is the refresh lookup key; a token without it is unusable
	user := testUser()
	user.Email = ""
	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should reject a token with no email claim")
	}
}

// =========================================================================
// DURATION TESTS
// =========================================================================

func TestIssueWithDuration_FutureToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueWithDuration(testUser(), 1*time.Hour)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() on 1h token error = %v", err)
	}
	if claims.UserID != "user-abc-123" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-abc-123")
	}
}
