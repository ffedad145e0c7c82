package domain

import "time"

// Auth provider identifiers stored in users.provider / accounts.provider.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
	ProviderGitHub      = "github"
)

// User represents a registered founder account.
type User struct {
	ID            string    `json:"id"             db:"id"`
	Email         string    `json:"email"          db:"email"`
	Name          string    `json:"name"           db:"name"`
	PasswordHash  string    `json:"-"              db:"password_hash"` // empty for OAuth-only users
	Provider      string    `json:"provider"       db:"provider"`
	ProviderID    string    `json:"provider_id"    db:"provider_id"`
	ImageURL      string    `json:"image_url"      db:"image_url"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}

// HasPassword reports whether the user can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Account links a user to an OAuth provider identity.
type Account struct {
	ID                string    `json:"id"                  db:"id"`
	UserID            string    `json:"user_id"             db:"user_id"`
	Provider          string    `json:"provider"            db:"provider"`
	ProviderAccountID string    `json:"provider_account_id" db:"provider_account_id"`
	AccessToken       string    `json:"-"                   db:"access_token"`
	RefreshToken      string    `json:"-"                   db:"refresh_token"`
	IDToken           string    `json:"-"                   db:"id_token"`
	TokenType         string    `json:"token_type"          db:"token_type"`
	Scope             string    `json:"scope"               db:"scope"`
	ExpiresAt         time.Time `json:"expires_at"          db:"expires_at"`
	CreatedAt         time.Time `json:"created_at"          db:"created_at"`
}

// Session is a server-side login session referenced by the JWT "sid" claim.
type Session struct {
	Token     string    `json:"-"          db:"session_token"`
	UserID    string    `json:"user_id"    db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenPair holds the OAuth2 tokens returned after code exchange.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// OAuthProfile is the identity returned by an OAuth provider's userinfo endpoint.
type OAuthProfile struct {
	ProviderAccountID string
	Email             string
	Name              string
	ImageURL          string
	EmailVerified     bool
}

// UserContext is the authenticated user context injected into request handlers.
// It is built from a fresh users row on every request.
type UserContext struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ImageURL     string `json:"image_url"`
	Provider     string `json:"provider"`
	SessionToken string `json:"-"`
}
