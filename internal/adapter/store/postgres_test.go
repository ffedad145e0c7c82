package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// These tests run against a real database: set TEST_DATABASE_URL to enable them.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, MigrateUp(dsn))

	s, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func uniqueEmail() string {
	return "founder-" + uuid.NewString() + "@example.com"
}

func TestPostgres_UserLifecycle(t *testing.T) {
	s := newTestPostgres(t)
	ctx := t.Context()

	u := &domain.User{Email: uniqueEmail(), Name: "Ada", PasswordHash: "hash", Provider: domain.ProviderCredentials}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	dup := &domain.User{Email: u.Email, Provider: domain.ProviderCredentials}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), port.ErrEmailExists)

	got, err := s.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.HasPassword())

	require.NoError(t, s.UpdateUserProfile(ctx, u.ID, "", "https://img"))
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "https://img", got.ImageURL)

	_, err = s.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, port.ErrUserNotFound)
}

func TestPostgres_AccountsAndSessions(t *testing.T) {
	s := newTestPostgres(t)
	ctx := t.Context()

	u := &domain.User{Email: uniqueEmail(), Provider: domain.ProviderGoogle, ProviderID: uuid.NewString()}
	a := &domain.Account{Provider: domain.ProviderGoogle, ProviderAccountID: u.ProviderID, AccessToken: "at"}
	require.NoError(t, s.CreateUserWithAccount(ctx, u, a))
	assert.Equal(t, u.ID, a.UserID)

	byAcct, err := s.GetUserByAccount(ctx, domain.ProviderGoogle, u.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byAcct.ID)
	assert.False(t, byAcct.HasPassword())

	live := &domain.Session{Token: uuid.NewString(), UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	dead := &domain.Session{Token: uuid.NewString(), UserID: u.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, dead))

	n, err := s.DeleteExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = s.GetSession(ctx, dead.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)

	got, err := s.GetSession(ctx, live.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	require.NoError(t, s.DeleteSession(ctx, live.Token))
	_, err = s.GetSession(ctx, live.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestPostgres_Audit(t *testing.T) {
	s := newTestPostgres(t)
	ctx := t.Context()

	uid := uuid.NewString()
	require.NoError(t, s.WriteAudit(ctx, domain.AuditLog{UserID: uid, Action: domain.AuditActionLogin, Resource: "session"}))

	logs, err := s.ListAuditLogs(ctx, AuditFilter{UserID: uid, Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionLogin, logs[0].Action)
	assert.JSONEq(t, "{}", logs[0].Details)
}
