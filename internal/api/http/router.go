package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Pages        *handlers.PagesHandler
	Roles        *handlers.RolesHandler
	Guard        *Guard
	LoginLimiter *IPLimiter
	Metrics      *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	page := cfg.Guard.Page

	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get(handlers.PageRoot.Path, page(handlers.PageRoot), cfg.Pages.Root)
	app.Get(handlers.PageHome.Path, page(handlers.PageHome), cfg.Pages.Home)
	app.Get(handlers.PageProduct.Path, page(handlers.PageProduct), cfg.Pages.Product)

	login := []fiber.Handler{page(handlers.PageLogin), cfg.Auth.Login}
	if cfg.LoginLimiter != nil {
		login = append([]fiber.Handler{cfg.LoginLimiter.Handler()}, login...)
	}
	app.Get(handlers.PageLogin.Path, page(handlers.PageLogin), cfg.Auth.LoginPage)
	app.Post(handlers.PageLogin.Path, login...)
	app.Post("/logout", cfg.Auth.Logout)
	app.Post("/auth/unload", cfg.Auth.Unload)

	app.Get(handlers.PageDashboard.Path, page(handlers.PageDashboard), cfg.Pages.Dashboard)
	app.Get(handlers.PageProfile.Path, page(handlers.PageProfile), cfg.Pages.Profile)
	app.Get(handlers.PageUsers.Path, page(handlers.PageUsers), cfg.Pages.Users)
	app.Get(handlers.PageProducts.Path, page(handlers.PageProducts), cfg.Pages.Products)

	app.Get(handlers.PageRoles.Path, page(handlers.PageRoles), cfg.Roles.List)
	app.Get(handlers.PageRole.Path, page(handlers.PageRole), cfg.Roles.Detail)
	app.Post(handlers.PageRolePermissions.Path, page(handlers.PageRolePermissions), cfg.Roles.UpdatePermissions)

	app.Get(handlers.PageNotAuthorized.Path, page(handlers.PageNotAuthorized), cfg.Pages.NotAuthorized)
	app.Get(handlers.PageNotFound.Path, page(handlers.PageNotFound), cfg.Pages.NotFound)
	app.Get(handlers.PageServerError.Path, page(handlers.PageServerError), cfg.Pages.ServerError)

	app.Use(page(handlers.PageNotFound), cfg.Pages.NotFound)
}
