package handlers

import (
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/dto"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/services"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
	"github.com/gofiber/fiber/v2"
)

const (
	identityCookieMaxAge = 7 * 24 * time.Hour
	gateCookieMaxAge     = 24 * time.Hour
)

// CookiePolicy writes the identity and gate cookies. Secure is set in
// production so the cookies never travel over plain HTTP there.
type CookiePolicy struct {
	Secure bool
}

func (p CookiePolicy) cookie(name, value string, maxAge time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   p.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

func (p CookiePolicy) SetIdentity(c *fiber.Ctx, email string) {
	c.Cookie(p.cookie(session.CookieName, session.EscapeClaim(email), identityCookieMaxAge))
}

func (p CookiePolicy) ClearIdentity(c *fiber.Ctx) {
	ck := p.cookie(session.CookieName, "", 0)
	ck.Expires = time.Unix(0, 0)
	c.Cookie(ck)
}

func (p CookiePolicy) SetGate(c *fiber.Ctx) {
	c.Cookie(p.cookie(services.GateCookieName, services.GateCookieValue, gateCookieMaxAge))
}

// identityClaim returns the decoded email from the identity cookie.
func identityClaim(c *fiber.Ctx) string {
	// c.Cookies aliases the request buffer
	return session.Claim(strings.Clone(c.Cookies(session.CookieName)))
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: message})
}
