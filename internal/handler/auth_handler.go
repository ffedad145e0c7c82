package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

const stateCookie = "oauth_state"

// Authenticator is the part of the auth service the HTTP layer needs.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*domain.User, error)
	SignIn(ctx context.Context, in service.SignInInput) (*service.AuthResult, error)
	Providers() []string
	GetAuthURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*service.AuthResult, error)
	SignOut(ctx context.Context, uc *domain.UserContext) error
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth         Authenticator
	frontendURL  string
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth Authenticator, frontendURL string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, frontendURL: frontendURL, cookieSecure: cookieSecure}
}

// Register sets up auth routes. requireAuth guards the session endpoints.
func (h *AuthHandler) Register(router fiber.Router, requireAuth fiber.Handler) {
	auth := router.Group("/auth")
	auth.Post("/signup", h.SignUp)
	auth.Post("/signin", h.SignIn)
	auth.Get("/providers", h.ListProviders)
	auth.Get("/session", requireAuth, h.Session)
	auth.Post("/signout", requireAuth, h.SignOut)
	auth.Get("/:provider/login", h.Login)
	auth.Get("/:provider/callback", h.Callback)
}

// SignUp registers a credentials user.
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var in service.SignUpInput
	if err := c.Bind().JSON(&in); err != nil {
		return respondError(c, errBadRequest)
	}

	user, err := h.auth.SignUp(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// SignIn verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) SignIn(c fiber.Ctx) error {
	var in service.SignInInput
	if err := c.Bind().JSON(&in); err != nil {
		return respondError(c, errBadRequest)
	}

	res, err := h.auth.SignIn(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(res)
}

// ListProviders returns the configured OAuth provider names.
func (h *AuthHandler) ListProviders(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": h.auth.Providers()})
}

// Session returns the signed-in user.
func (h *AuthHandler) Session(c fiber.Ctx) error {
	uc, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": uc})
}

// SignOut deletes the session row and clears the cookie.
func (h *AuthHandler) SignOut(c fiber.Ctx) error {
	uc, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.auth.SignOut(c.Context(), uc); err != nil {
		return respondError(c, err)
	}
	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{"success": true})
}

// Login redirects to the OAuth2 provider's consent screen.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	state := generateState()
	authURL, err := h.auth.GetAuthURL(c.Params("provider"), state)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect().To(authURL)
}

// Callback handles the OAuth2 callback and hands the token to the frontend.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	provider := c.Params("provider")
	if e := c.Query("error"); e != "" {
		return h.redirectError(c, e)
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		slog.Warn("oauth state mismatch", "provider", provider)
		return h.redirectError(c, "invalid_state")
	}
	c.ClearCookie(stateCookie)

	code := c.Query("code")
	if code == "" {
		return h.redirectError(c, "missing_code")
	}

	res, err := h.auth.HandleCallback(c.Context(), provider, code)
	if err != nil {
		slog.Error("oauth callback failed", "provider", provider, "error", err)
		return h.redirectError(c, "callback_failed")
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	q := url.Values{}
	q.Set("token", res.Token)
	q.Set("name", res.User.Name)
	return c.Redirect().To(h.frontendURL + "/auth/callback?" + q.Encode())
}

func (h *AuthHandler) redirectError(c fiber.Ctx, reason string) error {
	q := url.Values{}
	q.Set("error", reason)
	return c.Redirect().To(h.frontendURL + "/auth/error?" + q.Encode())
}

func (h *AuthHandler) setSessionCookie(c fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func generateState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate oauth state", "error", err)
	}
	return hex.EncodeToString(b)
}
