package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ProfileCookie names the cookie that anchors the profile store.
const ProfileCookie = "user_id"

// ProfileCookieConfig controls the user_id cookie.
type ProfileCookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// ProfileCookieMiddleware makes sure every request carries a profile id.
// A missing or malformed cookie is replaced with a fresh uuid.
func ProfileCookieMiddleware(cfg ProfileCookieConfig) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Cookies(ProfileCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     ProfileCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				Expires:  time.Now().Add(cfg.MaxAge),
				Secure:   cfg.Secure,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals("profile_id", id)
		return c.Next()
	}
}

// GetProfileID returns the profile id set by ProfileCookieMiddleware.
func GetProfileID(c fiber.Ctx) string {
	id, _ := c.Locals("profile_id").(string)
	return id
}
