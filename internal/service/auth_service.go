package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// SignUpInput is the credentials signup payload.
type SignUpInput struct {
	Name            string `json:"name"            validate:"max=100"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=6,max=72,bcryptlen"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignInInput is the credentials sign-in payload.
type SignInInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// AuthService handles credentials and OAuth sign-in plus session lifecycle.
type AuthService struct {
	providers  port.AuthProviderRegistry
	users      port.UserRepository
	sessions   port.SessionRepository
	audit      port.AuditWriter // optional
	jwtCfg     middleware.JWTConfig
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	providers port.AuthProviderRegistry,
	users port.UserRepository,
	sessions port.SessionRepository,
	audit port.AuditWriter,
	jwtCfg middleware.JWTConfig,
	sessionTTL time.Duration,
) *AuthService {
	if providers == nil {
		providers = port.AuthProviderRegistry{}
	}
	return &AuthService{
		providers:  providers,
		users:      users,
		sessions:   sessions,
		audit:      audit,
		jwtCfg:     jwtCfg,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a credentials user. It does not sign the user in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*domain.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Provider:     domain.ProviderCredentials,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, port.ErrEmailExists) {
			return nil, port.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID)
	s.writeAudit(ctx, user.ID, domain.AuditActionSignup, nil)
	return user, nil
}

// SignIn verifies email and password and opens a session. Users created
// through OAuth have no password and cannot sign in this way.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, port.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, port.ErrUserNotFound) {
		return nil, port.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.HasPassword() {
		return nil, port.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, port.ErrInvalidCredentials
	}

	res, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("user signed in", "user_id", user.ID, "provider", domain.ProviderCredentials)
	s.writeAudit(ctx, user.ID, domain.AuditActionLogin, map[string]any{"provider": domain.ProviderCredentials})
	return res, nil
}

// Providers lists the configured OAuth providers.
func (s *AuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAuthURL returns the OAuth2 authorization URL for the given provider.
func (s *AuthService) GetAuthURL(providerName, state string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", port.ErrUnknownProvider
	}
	return provider.AuthURL(state), nil
}

// HandleCallback exchanges the code, resolves or creates the user and opens a session.
func (s *AuthService) HandleCallback(ctx context.Context, providerName, code string) (*AuthResult, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, port.ErrUnknownProvider
	}

	tokens, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	profile, err := provider.GetUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	user, err := s.findOrCreateOAuthUser(ctx, providerName, profile, tokens)
	if err != nil {
		return nil, err
	}

	res, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("user authenticated", "user_id", user.ID, "provider", providerName)
	s.writeAudit(ctx, user.ID, domain.AuditActionLogin, map[string]any{"provider": providerName})
	return res, nil
}

// findOrCreateOAuthUser resolves the OAuth identity in three steps: an
// existing account, then an existing user with the same email (the account
// is linked to it only when the provider verified that email), then a
// brand-new user with its first account.
func (s *AuthService) findOrCreateOAuthUser(ctx context.Context, providerName string, profile *domain.OAuthProfile, tokens *domain.TokenPair) (*domain.User, error) {
	account := &domain.Account{
		Provider:          providerName,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       tokens.AccessToken,
		RefreshToken:      tokens.RefreshToken,
		IDToken:           tokens.IDToken,
		TokenType:         tokens.TokenType,
		Scope:             tokens.Scope,
		ExpiresAt:         tokens.Expiry,
	}

	user, err := s.users.GetUserByAccount(ctx, providerName, profile.ProviderAccountID)
	switch {
	case err == nil:
		account.UserID = user.ID
		if err := s.users.LinkAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("refresh account tokens: %w", err)
		}
		if err := s.users.UpdateUserProfile(ctx, user.ID, profile.Name, profile.ImageURL); err != nil {
			slog.Warn("failed to refresh user profile", "user_id", user.ID, "error", err)
		}
		return user, nil
	case !errors.Is(err, port.ErrUserNotFound):
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	email := NormalizeEmail(profile.Email)
	user, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !profile.EmailVerified {
			slog.Warn("refused to link oauth account with unverified email", "user_id", user.ID, "provider", providerName)
			return nil, fmt.Errorf("%s email is not verified: %w", providerName, port.ErrEmailExists)
		}
		account.UserID = user.ID
		if err := s.users.LinkAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("link account: %w", err)
		}
		slog.Info("linked oauth account to existing user", "user_id", user.ID, "provider", providerName)
		s.writeAudit(ctx, user.ID, domain.AuditActionLinkAccount, map[string]any{"provider": providerName})
		return user, nil
	case !errors.Is(err, port.ErrUserNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	user = &domain.User{
		Email:         email,
		Name:          profile.Name,
		Provider:      providerName,
		ProviderID:    profile.ProviderAccountID,
		ImageURL:      profile.ImageURL,
		EmailVerified: profile.EmailVerified,
	}
	if err := s.users.CreateUserWithAccount(ctx, user, account); err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}
	s.writeAudit(ctx, user.ID, domain.AuditActionSignup, map[string]any{"provider": providerName})
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	signed, err := middleware.GenerateJWT(user, sess.Token, sess.ExpiresAt, s.jwtCfg)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: signed, ExpiresAt: sess.ExpiresAt, User: user}, nil
}

// ResolveSession implements middleware.SessionResolver.
func (s *AuthService) ResolveSession(ctx context.Context, userID, sessionToken string) (*domain.User, error) {
	sess, err := s.sessions.GetSession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, port.ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		return nil, port.ErrSessionExpired
	}
	return s.users.GetUserByID(ctx, userID)
}

// SignOut deletes the session row.
func (s *AuthService) SignOut(ctx context.Context, uc *domain.UserContext) error {
	if err := s.sessions.DeleteSession(ctx, uc.SessionToken); err != nil {
		return err
	}
	s.writeAudit(ctx, uc.UserID, domain.AuditActionLogout, nil)
	return nil
}

// PruneSessions deletes every expired session.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if n > 0 {
		slog.Info("pruned expired sessions", "count", n)
	}
	return n, nil
}

// RunSessionSweeper prunes expired sessions every interval until ctx is done.
func (s *AuthService) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PruneSessions(ctx); err != nil {
				slog.Error("session sweep failed", "error", err)
			}
		}
	}
}

func (s *AuthService) writeAudit(ctx context.Context, userID, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	raw := "{}"
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			raw = string(b)
		}
	}
	if err := s.audit.WriteAudit(ctx, domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Resource: "auth",
		Details:  raw,
	}); err != nil {
		slog.Error("failed to write audit log", "action", action, "error", err)
	}
}

// newSessionToken returns 32 random bytes, base64url encoded.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
