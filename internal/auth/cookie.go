package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName carries the session token.
const SessionCookieName = "token"

// CookieConfig holds the session cookie flags tied to the deployment environment.
type CookieConfig struct {
	Secure   bool
	SameSite string
	TTL      time.Duration
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(c *fiber.Ctx, cfg CookieConfig, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(cfg.TTL.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie instructs the client to discard its session token.
func ClearSessionCookie(c *fiber.Ctx, cfg CookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}
