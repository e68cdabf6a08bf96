package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/session"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// AuthBackend is the part of the REST client the login flow needs.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Logout(ctx context.Context) error
}

// Browser bundles the per-browser handles a flow operates on.
type Browser struct {
	ID    string
	Store tokenstore.Store
	State *session.State
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string
	Password string
	Remember bool
}

// AuthService coordinates login, logout and forced re-authentication.
type AuthService struct {
	backend    AuthBackend
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(b AuthBackend, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &AuthService{backend: b, dispatcher: dispatcher, logger: logger}
}

// Login authenticates against the backend and stores the credential in the
// remembered scope when requested, otherwise in the temporary scope.
func (s *AuthService) Login(ctx context.Context, br Browser, in LoginInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	details := map[string]any{}
	if email == "" {
		details["email"] = "required"
	}
	if in.Password == "" {
		details["password"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("email and password are required", details)
	}

	res, err := s.backend.Login(backend.WithStore(ctx, br.Store), email, in.Password)
	if err != nil {
		return nil, err
	}
	if res.User == nil || res.AccessToken == "" {
		return nil, apperrors.NewUnauthorized("login response without credential")
	}

	if in.Remember {
		br.Store.WriteRemembered(ctx, res.User, res.AccessToken, res.RefreshToken)
	} else {
		br.Store.WriteTemporary(ctx, res.AccessToken)
	}
	br.State.SetUser(res.User)

	ev := events.New(events.EventSessionLogin)
	ev.UserID = res.User.ID
	ev.SessionID = br.ID
	ev.Payload = events.LoginPayload(in.Remember)
	s.publish(ctx, ev)
	return res.User, nil
}

// Logout ends the session on the backend and wipes it locally. A backend
// failure is logged; the local session is cleared regardless.
func (s *AuthService) Logout(ctx context.Context, br Browser) {
	user := br.State.User()
	if err := s.backend.Logout(backend.WithStore(ctx, br.Store)); err != nil {
		s.logger.Warn("backend logout failed", zap.Error(err))
	}
	s.wipe(ctx, br)

	ev := events.New(events.EventSessionLogout)
	if user != nil {
		ev.UserID = user.ID
	}
	ev.SessionID = br.ID
	s.publish(ctx, ev)
}

// RedirectToLogin clears the user and both token scopes and returns the login
// location for path.
func (s *AuthService) RedirectToLogin(ctx context.Context, br Browser, path, reason string) string {
	user := br.State.User()
	s.wipe(ctx, br)

	ev := events.New(events.EventLoginRedirect)
	if user != nil {
		ev.UserID = user.ID
	}
	ev.SessionID = br.ID
	ev.Path = path
	ev.Reason = reason
	s.publish(ctx, ev)
	return auth.LoginLocation(path)
}

// Unload drops the temporary scope when the browser tab goes away.
func (s *AuthService) Unload(ctx context.Context, br Browser) {
	br.Store.ClearTemporary(ctx)
	if br.Store.ReadCredentials(ctx).AccessToken == "" {
		br.State.Clear()
	}
}

// AccessDenied records a refused page.
func (s *AuthService) AccessDenied(ctx context.Context, br Browser, path string) {
	ev := events.New(events.EventAccessDenied)
	if user := br.State.User(); user != nil {
		ev.UserID = user.ID
	}
	ev.SessionID = br.ID
	ev.Path = path
	s.publish(ctx, ev)
}

func (s *AuthService) wipe(ctx context.Context, br Browser) {
	br.State.Clear()
	br.Store.ClearRemembered(ctx)
	br.Store.ClearTemporary(ctx)
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
