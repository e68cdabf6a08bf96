package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/api/http/handlers"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/config"
	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/session"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

var testSession = config.SessionConfig{
	DeviceCookie:     "sf_device",
	TabCookie:        "sf_tab",
	RememberTTLHours: 1,
}

// harness runs the whole web tier against a fake REST backend.
type harness struct {
	t       *testing.T
	app     *fiber.App
	backend *httptest.Server
	tokens  *tokenstore.Manager
	device  string
	tab     string

	mu        sync.Mutex
	users     map[string]*domain.User
	roles     map[string]*domain.Role
	auths     []string
	queries   []string
	published []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		device: uuid.NewString(),
		tab:    uuid.NewString(),
		users:  map[string]*domain.User{},
		roles:  map[string]*domain.Role{},
	}
	h.backend = httptest.NewServer(nethttp.HandlerFunc(h.serve))
	t.Cleanup(h.backend.Close)

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	for _, typ := range events.AllTypes {
		dispatcher.Subscribe(typ, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.published = append(h.published, e)
			return nil
		})
	}

	pipeline := backend.NewPipeline(backend.NewRefreshClient(h.backend.URL, h.backend.Client()), logger, backend.WithEvents(dispatcher))
	transport := backend.NewTransport(h.backend.Client().Transport)
	transport.Install(backend.InterceptorName, pipeline)
	client := backend.NewClient(h.backend.URL, &nethttp.Client{Transport: transport})

	h.tokens = tokenstore.NewManager(tokenstore.ManagerConfig{})
	authService := service.NewAuthService(client, dispatcher, logger)
	render := handlers.NewRenderer("storefront", domain.LanguageEN)

	h.app = fiber.New(fiber.Config{Views: NewViewEngine(false)})
	RegisterMiddlewares(h.app, MiddlewareConfig{Logger: logger, Auth: authService, Render: render})
	h.app.Use(SessionMiddleware(testSession, h.tokens, session.NewRegistry(time.Minute)))
	RegisterRoutes(h.app, RouteConfig{
		Auth:         handlers.NewAuthHandler(authService, render),
		Pages:        handlers.NewPagesHandler(client, nil, render),
		Roles:        handlers.NewRolesHandler(service.NewRoleService(client, logger), render),
		Guard:        NewGuard(authService, client, render, nil, logger),
		LoginLimiter: NewIPLimiter(600, 100, time.Minute),
	})
	return h
}

func issue(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func reply(w nethttp.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (h *harness) serve(w nethttp.ResponseWriter, r *nethttp.Request) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.URL.Path != backend.RefreshPath {
		h.auths = append(h.auths, r.Header.Get("Authorization"))
		h.queries = append(h.queries, r.URL.RawQuery)
	}

	switch {
	case r.URL.Path == backend.RefreshPath:
		user, ok := h.users[bearer]
		if !ok {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		fresh := issue(h.t, time.Now().Add(time.Hour))
		h.users[fresh] = user
		reply(w, nethttp.StatusOK, map[string]string{"access_token": fresh})
	case r.URL.Path == "/auth/login":
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials","typeError":"INVALID_CREDENTIALS"}`))
			return
		}
		user := &domain.User{ID: "u-login", Email: body.Email, Role: &domain.Role{Name: "basic", Permissions: []string{auth.PermBasic}}}
		access, refresh := issue(h.t, time.Now().Add(time.Hour)), issue(h.t, time.Now().Add(24*time.Hour))
		h.users[access], h.users[refresh] = user, user
		reply(w, nethttp.StatusOK, domain.LoginResult{User: user, AccessToken: access, RefreshToken: refresh})
	case r.URL.Path == "/auth/logout":
		reply(w, nethttp.StatusOK, nil)
	case r.URL.Path == "/auth/me":
		user, ok := h.users[bearer]
		if !ok {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		reply(w, nethttp.StatusOK, user)
	case r.URL.Path == "/products/public":
		reply(w, nethttp.StatusOK, backend.ProductPage{Products: []domain.Product{{Name: "Lamp", Slug: "lamp"}}, TotalCount: 1})
	case r.URL.Path == "/users":
		reply(w, nethttp.StatusOK, backend.UserPage{})
	case r.URL.Path == "/roles":
		reply(w, nethttp.StatusOK, backend.RolePage{})
	case strings.HasPrefix(r.URL.Path, "/roles/"):
		id := strings.TrimPrefix(r.URL.Path, "/roles/")
		role, ok := h.roles[id]
		if !ok {
			w.WriteHeader(nethttp.StatusNotFound)
			return
		}
		if r.Method == nethttp.MethodPut {
			var body struct {
				Name        string   `json:"name"`
				Permissions []string `json:"permissions"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			role.Permissions = body.Permissions
		}
		reply(w, nethttp.StatusOK, role)
	default:
		w.WriteHeader(nethttp.StatusNotFound)
	}
}

func (h *harness) store() tokenstore.Store {
	return h.tokens.For(h.device, h.tab)
}

// signIn stores a remembered credential for a user with the given permissions.
func (h *harness) signIn(perms ...string) {
	user := &domain.User{ID: "u1", Email: "u1@example.com", FirstName: "Ada", Role: &domain.Role{Name: "custom", Permissions: perms}}
	access, refresh := issue(h.t, time.Now().Add(time.Hour)), issue(h.t, time.Now().Add(24*time.Hour))
	h.mu.Lock()
	h.users[access], h.users[refresh] = user, user
	h.mu.Unlock()
	h.store().WriteRemembered(context.Background(), user, access, refresh)
}

func (h *harness) do(method, target string, form url.Values, header ...string) *nethttp.Response {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	req.AddCookie(&nethttp.Cookie{Name: testSession.DeviceCookie, Value: h.device})
	req.AddCookie(&nethttp.Cookie{Name: testSession.TabCookie, Value: h.tab})
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *nethttp.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.published))
	for _, e := range h.published {
		out = append(out, e.Type)
	}
	return out
}

func TestProtectedPageRedirectsAnonymousToLogin(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodGet, "/dashboard", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?returnUrl=%2Fdashboard", resp.Header.Get(fiber.HeaderLocation))

	resp = h.do(fiber.MethodGet, "/", nil)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestNewBrowserGetsSessionCookies(t *testing.T) {
	h := newHarness(t)
	resp, err := h.app.Test(httptest.NewRequest(fiber.MethodGet, "/home", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	names := map[string]*nethttp.Cookie{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c
	}
	require.Contains(t, names, testSession.DeviceCookie)
	require.Contains(t, names, testSession.TabCookie)
	assert.False(t, names[testSession.DeviceCookie].Expires.IsZero())
	assert.True(t, names[testSession.TabCookie].Expires.IsZero())
}

func TestDashboardRendersForBasicRole(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermBasic)

	resp := h.do(fiber.MethodGet, "/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Welcome back")
}

func TestAclPageDeniedRendersNotAuthorized(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermBasic)

	resp := h.do(fiber.MethodGet, "/system/user", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "not authorized")
	assert.Contains(t, h.eventTypes(), events.EventAccessDenied)
}

func TestAclPageAllowedWithViewPermission(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermSystemUserView)

	resp := h.do(fiber.MethodGet, "/system/user", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoginPageBouncesRememberedSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermBasic)

	resp := h.do(fiber.MethodGet, "/login", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}

func TestLoginWithRememberWritesRememberedScope(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodPost, "/login", url.Values{
		"email":     {"a@example.com"},
		"password":  {"secret"},
		"remember":  {"on"},
		"returnUrl": {"/dashboard"},
	})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))

	creds := h.store().ReadCredentials(context.Background())
	assert.NotEmpty(t, creds.AccessToken)
	assert.NotEmpty(t, creds.RefreshToken)
	require.NotNil(t, creds.UserData)
	assert.Equal(t, "a@example.com", creds.UserData.Email)
	assert.Empty(t, h.store().ReadTemporaryToken(context.Background()))
	assert.Contains(t, h.eventTypes(), events.EventSessionLogin)
}

func TestLoginWithoutRememberWritesTemporaryScopeOnly(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodPost, "/login", url.Values{
		"email":    {"a@example.com"},
		"password": {"secret"},
	})
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	assert.Empty(t, h.store().ReadCredentials(context.Background()).AccessToken)
	assert.NotEmpty(t, h.store().ReadTemporaryToken(context.Background()))

	resp = h.do(fiber.MethodGet, "/dashboard", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoginRejectedRendersFormWithMessage(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodPost, "/login", url.Values{
		"email":    {"a@example.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid credentials")
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t)
	h.app = fiber.New(fiber.Config{Views: NewViewEngine(false)})
	limiter := NewIPLimiter(1, 1, time.Minute)
	render := handlers.NewRenderer("storefront", domain.LanguageEN)
	RegisterMiddlewares(h.app, MiddlewareConfig{Logger: zap.NewNop(), Render: render})
	h.app.Post("/login", limiter.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	assert.Equal(t, fiber.StatusNoContent, h.do(fiber.MethodPost, "/login", url.Values{}).StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, h.do(fiber.MethodPost, "/login", url.Values{}).StatusCode)
}

func TestExpiredSessionRedirectsToLoginAndWipes(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Minute)
	h.store().WriteRemembered(context.Background(), &domain.User{ID: "u1"}, issue(t, past), issue(t, past))
	h.store().WriteTemporary(context.Background(), issue(t, past))

	resp := h.do(fiber.MethodGet, "/system/role?page=2", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?returnUrl=%2Fsystem%2Frole%3Fpage%3D2", resp.Header.Get(fiber.HeaderLocation))

	creds := h.store().ReadCredentials(context.Background())
	assert.Empty(t, creds.AccessToken)
	assert.Nil(t, creds.UserData)
	assert.Empty(t, h.store().ReadTemporaryToken(context.Background()))
	assert.Contains(t, h.eventTypes(), events.EventLoginRedirect)
}

func TestExpiredAccessIsRefreshedTransparently(t *testing.T) {
	h := newHarness(t)
	user := &domain.User{ID: "u1", Role: &domain.Role{Permissions: []string{auth.PermDashboard}}}
	stale, refresh := issue(t, time.Now().Add(-time.Minute)), issue(t, time.Now().Add(time.Hour))
	h.mu.Lock()
	h.users[refresh] = user
	h.mu.Unlock()
	h.store().WriteRemembered(context.Background(), user, stale, refresh)

	resp := h.do(fiber.MethodGet, "/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	creds := h.store().ReadCredentials(context.Background())
	assert.NotEqual(t, stale, creds.AccessToken)
	assert.Equal(t, refresh, creds.RefreshToken)
	assert.Contains(t, h.eventTypes(), events.EventTokenRefreshed)
}

func TestLogoutFromPublicPageStaysThere(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermBasic)

	resp := h.do(fiber.MethodPost, "/logout", url.Values{"from": {"/home?page=2"}})
	assert.Equal(t, "/home?page=2", resp.Header.Get(fiber.HeaderLocation))
	assert.Empty(t, h.store().ReadCredentials(context.Background()).AccessToken)
	assert.Contains(t, h.eventTypes(), events.EventSessionLogout)
}

func TestLogoutFromPrivatePageGoesToLogin(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermBasic)

	resp := h.do(fiber.MethodPost, "/logout", url.Values{"from": {"/dashboard"}})
	assert.Equal(t, "/login?returnUrl=%2Fdashboard", resp.Header.Get(fiber.HeaderLocation))

	resp = h.do(fiber.MethodPost, "/logout", url.Values{"from": {"https://evil.example/x"}})
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestUnloadDropsTemporaryScope(t *testing.T) {
	h := newHarness(t)
	h.store().WriteTemporary(context.Background(), issue(t, time.Now().Add(time.Hour)))

	resp := h.do(fiber.MethodPost, "/auth/unload", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, h.store().ReadTemporaryToken(context.Background()))
}

func TestPublicCatalogIsCalledWithoutMarker(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodGet, "/home", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Lamp")

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.queries)
	for _, q := range h.queries {
		assert.NotContains(t, q, backend.PublicParam)
	}
	assert.Equal(t, []string{""}, h.auths)
}

func TestRoleGroupToggleSavesFlattenedGroup(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermSystemRoleView, auth.PermSystemRoleEdit)
	h.roles["r2"] = &domain.Role{ID: "r2", Name: "editor", Permissions: []string{auth.PermSystemUserView}}

	resp := h.do(fiber.MethodPost, "/system/role/r2/permissions", url.Values{
		"permission":   {auth.PermSystemUserView},
		"toggle_group": {"SYSTEM.USER"},
	})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/system/role/r2", resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, []string{
		"SYSTEM.USER.CREATE",
		"SYSTEM.USER.DELETE",
		"SYSTEM.USER.UPDATE",
		"SYSTEM.USER.VIEW",
	}, h.roles["r2"].Permissions)
}

func TestRolePermissionsRequireUpdate(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermSystemRoleView)
	h.roles["r2"] = &domain.Role{ID: "r2", Name: "editor"}

	resp := h.do(fiber.MethodGet, "/system/role/r2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "disabled")

	resp = h.do(fiber.MethodPost, "/system/role/r2/permissions", url.Values{"permission": {auth.PermDashboard}},
		fiber.HeaderReferer, "http://example.com/system/role/r2")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, h.roles["r2"].Permissions)
}

func TestBuiltInRoleIsLocked(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermSystemRoleView, auth.PermSystemRoleEdit)
	h.roles["admin"] = &domain.Role{ID: "admin", Name: "admin", Permissions: []string{auth.PermAdmin}}

	resp := h.do(fiber.MethodPost, "/system/role/admin/permissions", url.Values{"permission": {auth.PermDashboard}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{auth.PermAdmin}, h.roles["admin"].Permissions)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	h := newHarness(t)

	resp := h.do(fiber.MethodGet, "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "does not exist")
}

func TestBackendNotFoundIsJSONForJSONClients(t *testing.T) {
	h := newHarness(t)
	h.signIn(auth.PermSystemRoleView)

	resp := h.do(fiber.MethodGet, "/system/role/missing", nil, fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
}
