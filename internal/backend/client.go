package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spec-kit/storefront-web/internal/domain"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// Client is the typed REST client of the storefront backend. Every call goes
// through the transport the client was built with, so the token pipeline
// authorizes it.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client over httpClient, whose transport should carry the
// pipeline.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ListParams are the paging and search parameters of list endpoints.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Order  string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	return v
}

// UserPage is one page of users.
type UserPage struct {
	Users      []domain.User `json:"users"`
	TotalPage  int           `json:"totalPage"`
	TotalCount int           `json:"totalCount"`
}

// RolePage is one page of roles.
type RolePage struct {
	Roles      []domain.Role `json:"roles"`
	TotalPage  int           `json:"totalPage"`
	TotalCount int           `json:"totalCount"`
}

// ProductPage is one page of products.
type ProductPage struct {
	Products   []domain.Product `json:"products"`
	TotalPage  int              `json:"totalPage"`
	TotalCount int              `json:"totalCount"`
}

// Me returns the user owning the current credential.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges email and password for a credential pair.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res domain.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", public(nil), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout invalidates the current credential on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// ListUsers returns a page of users.
func (c *Client) ListUsers(ctx context.Context, params ListParams) (*UserPage, error) {
	var page UserPage
	if err := c.do(ctx, http.MethodGet, "/users", params.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListRoles returns a page of roles.
func (c *Client) ListRoles(ctx context.Context, params ListParams) (*RolePage, error) {
	var page RolePage
	if err := c.do(ctx, http.MethodGet, "/roles", params.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRole returns one role.
func (c *Client) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	var role domain.Role
	if err := c.do(ctx, http.MethodGet, "/roles/"+url.PathEscape(id), nil, nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRolePermissions replaces the permission list of a role.
func (c *Client) UpdateRolePermissions(ctx context.Context, role domain.Role) (*domain.Role, error) {
	body := map[string]any{"name": role.Name, "permissions": role.Permissions}
	var updated domain.Role
	if err := c.do(ctx, http.MethodPut, "/roles/"+url.PathEscape(role.ID), nil, body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListProducts returns a page of the public catalog. It needs no credential.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	var page ProductPage
	if err := c.do(ctx, http.MethodGet, "/products/public", public(params.values()), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListManagedProducts returns a page of products for the back-office.
func (c *Client) ListManagedProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	var page ProductPage
	if err := c.do(ctx, http.MethodGet, "/products", params.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProductBySlug returns one public product.
func (c *Client) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var product domain.Product
	path := "/products/public/slug/" + url.PathEscape(slug)
	if err := c.do(ctx, http.MethodGet, path, public(nil), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func public(v url.Values) url.Values {
	if v == nil {
		v = url.Values{}
	}
	v.Set(PublicParam, "true")
	return v
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	TypeErr string          `json:"typeError"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.FromStatus(resp.StatusCode, env.Message, env.TypeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
