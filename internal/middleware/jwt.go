package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// SessionCookie is the cookie the browser flow stores the JWT in.
const SessionCookie = "session_token"

// JWTConfig holds JWT middleware configuration.
type JWTConfig struct {
	Secret string
	Issuer string
}

// SessionResolver checks a session row and returns a fresh user read.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID, sessionToken string) (*domain.User, error)
}

// Claims represents the JWT payload. Subject is the user id, SessionID the
// server-side session token.
type Claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed HS256 token bound to a session.
func GenerateJWT(user *domain.User, sessionToken string, expiresAt time.Time, cfg JWTConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionToken,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseJWT validates signature, algorithm, issuer and expiry.
func ParseJWT(tokenStr string, cfg JWTConfig) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, port.ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrTokenInvalid, err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sub or sid", port.ErrTokenInvalid)
	}
	return claims, nil
}

// tokenFromRequest looks at the Authorization header, then the session
// cookie, then ?token= (EventSource cannot set headers).
func tokenFromRequest(c fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v := c.Cookies(SessionCookie); v != "" {
		return v
	}
	return c.Query("token")
}

// JWTMiddleware creates a Fiber middleware that validates the JWT, checks
// its session row and injects a UserContext built from a fresh user read.
func JWTMiddleware(cfg JWTConfig, sessions SessionResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return unauthorized(c, "missing authorization")
		}

		claims, err := ParseJWT(token, cfg)
		if err != nil {
			if errors.Is(err, port.ErrTokenExpired) {
				return unauthorized(c, "token expired")
			}
			return unauthorized(c, "invalid token")
		}

		user, err := sessions.ResolveSession(c.Context(), claims.Subject, claims.SessionID)
		if err != nil {
			return unauthorized(c, "session is no longer valid")
		}

		c.Locals("user", &domain.UserContext{
			UserID:       user.ID,
			Email:        user.Email,
			Name:         user.Name,
			ImageURL:     user.ImageURL,
			Provider:     user.Provider,
			SessionToken: claims.SessionID,
		})

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  "UNAUTHORIZED",
	})
}

// GetUserContext extracts the UserContext from Fiber locals.
func GetUserContext(c fiber.Ctx) *domain.UserContext {
	u, ok := c.Locals("user").(*domain.UserContext)
	if !ok {
		return nil
	}
	return u
}
