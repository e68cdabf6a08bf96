package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/observability"
	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/session"
)

// Guard runs the page guards in front of a page handler.
type Guard struct {
	auth    *service.AuthService
	users   session.UserSource
	render  *handlers.Renderer
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGuard builds a guard. users is used to load the session user on demand.
func NewGuard(authService *service.AuthService, users session.UserSource, render *handlers.Renderer, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{auth: authService, users: users, render: render, metrics: metrics, logger: logger}
}

// Page returns the handler enforcing the rule of page.
func (g *Guard) Page(page handlers.Page) fiber.Handler {
	return func(c *fiber.Ctx) error {
		br := handlers.BrowserFrom(c)
		ctx := c.UserContext()
		path := returnPath(c)

		if err := br.State.Resolve(ctx, br.Store, g.users); err != nil {
			if re, ok := backend.AsRedirect(err); ok {
				return g.redirectToLogin(c, br, path, string(re.Reason))
			}
			// Resolve cleared the remembered scope; the temporary one goes too.
			g.logger.Warn("resolve session user", zap.String("session_id", br.ID), zap.Error(err))
			br.Store.ClearTemporary(ctx)
		}

		state := br.State
		creds := br.Store.ReadCredentials(ctx)
		decision := auth.Decide(auth.GuardInput{
			Rule:             page.Rule,
			Path:             path,
			ErrorPage:        page.ErrorPage,
			User:             state.User(),
			Loading:          state.Loading(),
			RememberedAccess: creds.AccessToken != "",
			RememberedUser:   creds.UserData != nil,
			Temporary:        br.Store.ReadTemporaryToken(ctx) != "",
			Ability:          state.Ability(page.Rule.Permissions),
		})

		switch decision.Outcome {
		case auth.OutcomeRender:
			g.metrics.RecordGuard(decision.Outcome.String())
			return c.Next()
		case auth.OutcomeFallback:
			g.metrics.RecordGuard(decision.Outcome.String())
			c.Set(fiber.HeaderRetryAfter, "1")
			return g.render.Render(c, fiber.StatusServiceUnavailable, "fallback", page.Title, nil)
		case auth.OutcomeRedirectLogin:
			return g.redirectToLogin(c, br, path, "unauthenticated")
		case auth.OutcomeRedirectHome:
			g.metrics.RecordGuard(decision.Outcome.String())
			return c.Redirect(decision.Location)
		default:
			g.metrics.RecordGuard(auth.OutcomeNotAuthorized.String())
			g.auth.AccessDenied(ctx, br, path)
			return g.render.Render(c, fiber.StatusUnauthorized, "401", handlers.PageNotAuthorized.Title, nil)
		}
	}
}

func (g *Guard) redirectToLogin(c *fiber.Ctx, br service.Browser, path, reason string) error {
	g.metrics.RecordGuard(auth.OutcomeRedirectLogin.String())
	return c.Redirect(g.auth.RedirectToLogin(c.UserContext(), br, path, reason))
}

// returnPath is the location the browser should come back to after logging in.
// Form posts come back to the page that submitted them.
func returnPath(c *fiber.Ctx) string {
	if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
		return c.OriginalURL()
	}
	ref, err := url.Parse(c.Get(fiber.HeaderReferer))
	if err != nil || (ref.Host != "" && ref.Host != c.Hostname()) {
		return auth.RouteRoot
	}
	if p := handlers.LocalPath(ref.RequestURI()); p != "" && ref.Path != "" {
		return p
	}
	return auth.RouteRoot
}
