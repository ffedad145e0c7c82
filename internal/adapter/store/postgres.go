package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// --- Users ---

const userColumns = `id, email, name, password_hash, provider, provider_id, image_url, email_verified, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		hash sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &hash, &u.Provider, &u.ProviderID,
		&u.ImageURL, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateUser inserts u and fills its ID and timestamps.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	return createUser(ctx, s.db, u)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createUser(ctx context.Context, q queryer, u *domain.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, provider, provider_id, image_url, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := q.QueryRowContext(ctx, query,
		u.Email, u.Name, nullable(u.PasswordHash), u.Provider, u.ProviderID, u.ImageURL, u.EmailVerified,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return port.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by (already normalized) email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByAccount resolves the user that owns an OAuth account.
func (s *PostgresStore) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.password_hash, u.provider, u.provider_id, u.image_url, u.email_verified, u.created_at, u.updated_at
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider = $1 AND a.provider_account_id = $2`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, provider, providerAccountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by account: %w", err)
	}
	return u, nil
}

// UpdateUserProfile refreshes name and image, keeping existing values when the new ones are empty.
func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id, name, imageURL string) error {
	query := `
		UPDATE users SET
			name = COALESCE(NULLIF($2, ''), name),
			image_url = COALESCE(NULLIF($3, ''), image_url),
			updated_at = NOW()
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, name, imageURL)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrUserNotFound
	}
	return nil
}

// --- Accounts ---

// LinkAccount attaches an OAuth account to an existing user. Re-linking the
// same provider identity refreshes its tokens.
func (s *PostgresStore) LinkAccount(ctx context.Context, a *domain.Account) error {
	return linkAccount(ctx, s.db, a)
}

func linkAccount(ctx context.Context, q queryer, a *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, provider, provider_account_id, access_token, refresh_token, id_token, token_type, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), accounts.refresh_token),
			id_token = EXCLUDED.id_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at
		RETURNING id, created_at`

	var expires sql.NullTime
	if !a.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: a.ExpiresAt, Valid: true}
	}

	err := q.QueryRowContext(ctx, query,
		a.UserID, a.Provider, a.ProviderAccountID, a.AccessToken, a.RefreshToken,
		a.IDToken, a.TokenType, a.Scope, expires,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	return nil
}

// CreateUserWithAccount inserts a user and its first account in one transaction.
func (s *PostgresStore) CreateUserWithAccount(ctx context.Context, u *domain.User, a *domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := createUser(ctx, tx, u); err != nil {
		return err
	}
	a.UserID = u.ID
	if err := linkAccount(ctx, tx, a); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Sessions ---

// CreateSession stores a new login session.
func (s *PostgresStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	query := `INSERT INTO sessions (session_token, user_id, expires_at)
	          VALUES ($1, $2, $3)
	          RETURNING created_at`
	if err := s.db.QueryRowContext(ctx, query, sess.Token, sess.UserID, sess.ExpiresAt).Scan(&sess.CreatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns a session by token, expired or not.
func (s *PostgresStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT session_token, user_id, expires_at, created_at FROM sessions WHERE session_token = $1`

	var sess domain.Session
	err := s.db.QueryRowContext(ctx, query, token).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now.
func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// --- Audit Logs ---

// WriteAudit implements port.AuditWriter.
func (s *PostgresStore) WriteAudit(ctx context.Context, e domain.AuditLog) error {
	details := e.Details
	if details == "" {
		details = "{}"
	}
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		e.UserID, e.Action, e.Resource, e.ResourceID, details, e.IP, e.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// AuditFilter narrows ListAuditLogs.
type AuditFilter struct {
	Action string
	UserID string
	Limit  int
}

// ListAuditLogs returns recent audit logs with optional filters.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, f AuditFilter) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, f.Action)
		argIdx++
	}
	if f.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
