package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-web/internal/api/dto"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/service"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// publicPrefixes are pages a user may stay on after logging out.
var publicPrefixes = []string{auth.RouteHome, "/product"}

// AuthHandler serves login, logout and the unload beacon.
type AuthHandler struct {
	auth   *service.AuthService
	render *Renderer
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, render *Renderer) *AuthHandler {
	return &AuthHandler{auth: authService, render: render}
}

// LoginPage handles GET /login.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	return h.render.Render(c, http.StatusOK, "login", PageLogin.Title, fiber.Map{
		"ReturnURL": c.Query("returnUrl"),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form", nil)
	}
	if form.ReturnURL == "" {
		form.ReturnURL = c.Query("returnUrl")
	}

	_, err := h.auth.Login(c.UserContext(), BrowserFrom(c), service.LoginInput{
		Email:    form.Email,
		Password: form.Password,
		Remember: form.RememberMe(),
	})
	if err != nil {
		de := apperrors.ToDomainError(err)
		if de.HTTPStatus >= 500 {
			return err
		}
		return h.render.Render(c, de.HTTPStatus, "login", PageLogin.Title, fiber.Map{
			"ReturnURL": form.ReturnURL,
			"Email":     form.Email,
			"Remember":  form.RememberMe(),
			"Error":     de.Message,
		})
	}
	return c.Redirect(AfterLogin(form.ReturnURL))
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var form dto.LogoutForm
	_ = c.BodyParser(&form)
	from := LocalPath(form.From)
	if from == "" {
		from = auth.RouteRoot
	}

	h.auth.Logout(c.UserContext(), BrowserFrom(c))

	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(from, prefix) {
			return c.Redirect(from)
		}
	}
	return c.Redirect(auth.LoginLocation(from))
}

// Unload handles POST /auth/unload, sent as a beacon when a tab closes.
func (h *AuthHandler) Unload(c *fiber.Ctx) error {
	h.auth.Unload(c.UserContext(), BrowserFrom(c))
	return c.SendStatus(http.StatusNoContent)
}

// AfterLogin picks the landing page: the return url unless it is empty or the
// root, which both land on the root.
func AfterLogin(returnURL string) string {
	target := LocalPath(returnURL)
	if target == "" || target == auth.RouteRoot {
		return auth.RouteRoot
	}
	return target
}

// LocalPath returns p when it is a same-site absolute path, otherwise "".
func LocalPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}
