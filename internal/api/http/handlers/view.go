package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-web/internal/domain"
)

// Layout is the wrapping template of every page.
const Layout = "layouts/main"

// NavItem is one visible back-office menu entry.
type NavItem struct {
	Title  string
	Href   string
	Active bool
}

// Renderer fills the data shared by every view.
type Renderer struct {
	lang    string
	appName string
}

// NewRenderer builds a renderer for the display language.
func NewRenderer(appName, lang string) *Renderer {
	if lang == "" {
		lang = domain.LanguageVI
	}
	return &Renderer{lang: lang, appName: appName}
}

// Render writes view with the shared layout data merged into data.
func (r *Renderer) Render(c *fiber.Ctx, status int, view, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	br := BrowserFrom(c)
	user := br.State.User()
	data["AppName"] = r.appName
	data["Title"] = title
	data["Lang"] = r.lang
	data["User"] = user
	if user != nil {
		data["FullName"] = user.FullName(r.lang)
		data["Nav"] = r.nav(c)
	}
	if id, ok := c.Locals("request_id").(string); ok {
		data["RequestID"] = id
	}
	return c.Status(status).Render(view, data, Layout)
}

func (r *Renderer) nav(c *fiber.Ctx) []NavItem {
	state := BrowserFrom(c).State
	current := c.Route().Path
	items := make([]NavItem, 0, len(NavPages))
	for _, p := range NavPages {
		acl := p.ACL()
		if !state.Ability(p.Rule.Permissions).Can(acl.Action, acl.Subject) {
			continue
		}
		items = append(items, NavItem{Title: p.Title, Href: p.Path, Active: p.Path == current})
	}
	return items
}
