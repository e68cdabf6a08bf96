package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/config"
	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/session"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

// SessionMiddleware identifies the browser and binds its token store and auth
// state to the request. The device cookie outlives the browser and keys the
// remembered scope; the tab cookie has no expiry and keys the temporary scope
// and the auth state.
func SessionMiddleware(cfg config.SessionConfig, tokens *tokenstore.Manager, registry *session.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := browserCookie(c, cfg.DeviceCookie, cfg.CookieSecure, cfg.RememberTTL())
		tabID := browserCookie(c, cfg.TabCookie, cfg.CookieSecure, 0)

		store := tokens.For(deviceID, tabID)
		handlers.SetBrowser(c, service.Browser{
			ID:    tabID,
			Store: store,
			State: registry.Get(tabID),
		})
		c.SetUserContext(backend.WithStore(c.UserContext(), store))
		return c.Next()
	}
}

// browserCookie returns the id stored in cookie name, issuing a new one when it
// is missing or not a uuid. A zero ttl issues a browser-session cookie.
func browserCookie(c *fiber.Ctx, name string, secure bool, ttl time.Duration) string {
	if id, err := uuid.Parse(c.Cookies(name)); err == nil {
		return id.String()
	}
	id := uuid.NewString()
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
	return id
}
