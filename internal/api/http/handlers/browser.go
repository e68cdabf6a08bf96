package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/session"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

const browserKey = "storefront_browser"

var detached = tokenstore.NewManager(tokenstore.ManagerConfig{}).For("", "")

// SetBrowser binds the browser handles of the request.
func SetBrowser(c *fiber.Ctx, br service.Browser) {
	c.Locals(browserKey, br)
}

// BrowserFrom returns the handles bound by SetBrowser. Requests that bypassed
// the session middleware get an anonymous browser with no storage.
func BrowserFrom(c *fiber.Ctx) service.Browser {
	br, _ := c.Locals(browserKey).(service.Browser)
	if br.Store == nil {
		br.Store = detached
	}
	if br.State == nil {
		br.State = &session.State{}
	}
	return br
}
