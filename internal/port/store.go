package port

import (
	"context"
	"time"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// UserRepository persists users and their linked OAuth accounts.
type UserRepository interface {
	// CreateUser inserts u and fills its ID and timestamps. Returns ErrEmailExists on duplicates.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUserByAccount resolves the user owning (provider, providerAccountID).
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*domain.User, error)
	UpdateUserProfile(ctx context.Context, id, name, imageURL string) error
	// LinkAccount attaches an OAuth account to an existing user.
	LinkAccount(ctx context.Context, a *domain.Account) error
	// CreateUserWithAccount inserts a new user and its first account atomically.
	CreateUserWithAccount(ctx context.Context, u *domain.User, a *domain.Account) error
}

// SessionRepository persists login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ProfileStore is the key-value store of per-user profile documents.
type ProfileStore interface {
	// Get returns the document for userID, or nil when none was saved yet.
	Get(ctx context.Context, userID string) (domain.Document, error)
	// Set merges partial into the stored document, stamps id/lastActive and
	// writes it back. Returns the merged document.
	Set(ctx context.Context, userID string, partial domain.Document) (domain.Document, error)
	// Update is Set with a partial computed from the current document, atomically.
	Update(ctx context.Context, userID string, fn func(existing domain.Document) domain.Document) (domain.Document, error)
	Delete(ctx context.Context, userID string) error
}

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(ctx context.Context, entry domain.AuditLog) error
}
