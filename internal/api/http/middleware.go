package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/observability"
	"github.com/spec-kit/storefront-web/internal/service"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// MiddlewareConfig bundles the dependencies of the global middlewares.
type MiddlewareConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Timeout time.Duration
	Auth    *service.AuthService
	Render  *handlers.Renderer
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(cfg MiddlewareConfig) fiber.Handler {
	logger := cfg.Logger
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			if re, ok := backend.AsRedirect(err); ok && cfg.Auth != nil {
				br := handlers.BrowserFrom(c)
				cfg.Metrics.RecordGuard(auth.OutcomeRedirectLogin.String())
				err = c.Redirect(cfg.Auth.RedirectToLogin(c.UserContext(), br, returnPath(c), string(re.Reason)))
				return
			}

			domainErr := toDomainError(err)
			cfg.Metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			if domainErr.HTTPStatus >= 500 {
				logger.Error("request failed", zap.Error(domainErr))
			}
			if wantsJSON(c) || cfg.Render == nil {
				err = writeJSONError(c, domainErr)
				return
			}
			if renderErr := renderError(c, cfg.Render, domainErr); renderErr != nil {
				logger.Error("render error page", zap.Error(renderErr))
				err = writeJSONError(c, domainErr)
				return
			}
			err = nil
		}()
		return c.Next()
	}
}

func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return apperrors.FromStatus(fe.Code, fe.Message, "")
	}
	return apperrors.ToDomainError(err)
}

func writeJSONError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	response := fiber.Map{"error": fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}}
	if len(domainErr.Details) > 0 {
		response["error"].(fiber.Map)["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

func renderError(c *fiber.Ctx, render *handlers.Renderer, domainErr *apperrors.DomainError) error {
	switch domainErr.HTTPStatus {
	case fiber.StatusNotFound:
		return render.Render(c, fiber.StatusNotFound, "404", handlers.PageNotFound.Title, nil)
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return render.Render(c, domainErr.HTTPStatus, "401", handlers.PageNotAuthorized.Title, nil)
	}
	title := handlers.PageServerError.Title
	message := "Something went wrong on our side."
	if domainErr.HTTPStatus < 500 {
		title = "Request failed"
		message = domainErr.Message
	}
	return render.Render(c, domainErr.HTTPStatus, "error", title, fiber.Map{
		"Status":  domainErr.HTTPStatus,
		"Code":    domainErr.Code,
		"Message": message,
	})
}

// wantsJSON reports whether the client expects a JSON error instead of a page.
func wantsJSON(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/health/") {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}
