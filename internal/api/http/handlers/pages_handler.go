package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-web/internal/api/dto"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/service"
)

// Storefront is the part of the REST client the content pages read from.
type Storefront interface {
	ListProducts(ctx context.Context, params backend.ListParams) (*backend.ProductPage, error)
	ListManagedProducts(ctx context.Context, params backend.ListParams) (*backend.ProductPage, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListUsers(ctx context.Context, params backend.ListParams) (*backend.UserPage, error)
}

const defaultPageSize = 12

// PagesHandler renders the storefront and back-office content pages.
type PagesHandler struct {
	api    Storefront
	audit  *service.AuditService
	render *Renderer
}

// NewPagesHandler constructs handler.
func NewPagesHandler(api Storefront, audit *service.AuditService, render *Renderer) *PagesHandler {
	return &PagesHandler{api: api, audit: audit, render: render}
}

func listParams(c *fiber.Ctx) backend.ListParams {
	var q dto.ListQuery
	_ = c.QueryParser(&q)
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return backend.ListParams{Page: q.Page, Limit: q.Limit, Search: q.Search, Order: q.Order}
}

// Root handles GET /.
func (h *PagesHandler) Root(c *fiber.Ctx) error {
	return c.Redirect(auth.RouteHome)
}

// Home handles GET /home.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	params := listParams(c)
	page, err := h.api.ListProducts(c.UserContext(), params)
	if err != nil {
		return err
	}
	return h.render.Render(c, http.StatusOK, "home", PageHome.Title, fiber.Map{
		"Products": page.Products,
		"Total":    page.TotalCount,
		"Params":   params,
	})
}

// Product handles GET /product/:slug.
func (h *PagesHandler) Product(c *fiber.Ctx) error {
	product, err := h.api.GetProductBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return h.render.Render(c, http.StatusOK, "product", product.Name, fiber.Map{"Product": product})
}

// Dashboard handles GET /dashboard.
func (h *PagesHandler) Dashboard(c *fiber.Ctx) error {
	return h.render.Render(c, http.StatusOK, "dashboard", PageDashboard.Title, nil)
}

// Profile handles GET /my-profile.
func (h *PagesHandler) Profile(c *fiber.Ctx) error {
	user := BrowserFrom(c).State.User()
	var activity []domain.AuthEvent
	if user != nil && h.audit != nil {
		var err error
		if activity, err = h.audit.Recent(c.UserContext(), user.ID, 10); err != nil {
			return err
		}
	}
	return h.render.Render(c, http.StatusOK, "profile", PageProfile.Title, fiber.Map{
		"Permissions": auth.ResolveEffectivePermissions(user),
		"Activity":    activity,
	})
}

// Users handles GET /system/user.
func (h *PagesHandler) Users(c *fiber.Ctx) error {
	params := listParams(c)
	page, err := h.api.ListUsers(c.UserContext(), params)
	if err != nil {
		return err
	}
	return h.render.Render(c, http.StatusOK, "users", PageUsers.Title, fiber.Map{
		"Users":  page.Users,
		"Total":  page.TotalCount,
		"Params": params,
	})
}

// Products handles GET /manage-product/product.
func (h *PagesHandler) Products(c *fiber.Ctx) error {
	params := listParams(c)
	page, err := h.api.ListManagedProducts(c.UserContext(), params)
	if err != nil {
		return err
	}
	return h.render.Render(c, http.StatusOK, "products", PageProducts.Title, fiber.Map{
		"Products": page.Products,
		"Total":    page.TotalCount,
		"Params":   params,
	})
}

// NotAuthorized handles GET /401.
func (h *PagesHandler) NotAuthorized(c *fiber.Ctx) error {
	return h.render.Render(c, http.StatusUnauthorized, "401", PageNotAuthorized.Title, nil)
}

// NotFound handles GET /404 and unknown routes.
func (h *PagesHandler) NotFound(c *fiber.Ctx) error {
	return h.render.Render(c, http.StatusNotFound, "404", PageNotFound.Title, nil)
}

// ServerError handles GET /500.
func (h *PagesHandler) ServerError(c *fiber.Ctx) error {
	return h.render.Render(c, http.StatusInternalServerError, "500", PageServerError.Title, nil)
}
