package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-web/internal/api/dto"
	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/service"
	apperrors "github.com/spec-kit/storefront-web/pkg/util/errorutil"
)

// PermissionCell is one checkbox of the permission table.
type PermissionCell struct {
	Value   string
	Checked bool
}

// PermissionRow is one entity of the permission table, or a domain header.
type PermissionRow struct {
	Key     string
	Path    string
	Header  bool
	Checked bool
	// Cells holds VIEW, CREATE, UPDATE and DELETE in that order; absent actions
	// have an empty Value.
	Cells []PermissionCell
}

var tableActions = []auth.Action{auth.ActionView, auth.ActionCreate, auth.ActionUpdate, auth.ActionDelete}

// PermissionTable lays the catalog out as rows with the selection applied.
func PermissionTable(selected []string) []PermissionRow {
	var rows []PermissionRow
	for _, top := range auth.Catalog().Children {
		if top.IsLeaf() {
			if top.Value == auth.PermAdmin || top.Value == auth.PermBasic {
				continue
			}
			cells := make([]PermissionCell, len(tableActions))
			cells[0] = PermissionCell{Value: top.Value, Checked: containsValue(selected, top.Value)}
			rows = append(rows, PermissionRow{Key: top.Key, Path: top.Key, Checked: cells[0].Checked, Cells: cells})
			continue
		}
		rows = append(rows, PermissionRow{
			Key:     top.Key,
			Path:    top.Key,
			Header:  true,
			Checked: service.GroupChecked(selected, top.Key),
		})
		for _, entity := range top.Children {
			path := top.Key + "." + entity.Key
			row := PermissionRow{
				Key:     entity.Key,
				Path:    path,
				Checked: service.GroupChecked(selected, path),
				Cells:   make([]PermissionCell, len(tableActions)),
			}
			for i, action := range tableActions {
				if v := auth.Lookup(path, string(action)); v != "" {
					row.Cells[i] = PermissionCell{Value: v, Checked: containsValue(selected, v)}
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func containsValue(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

// RolesHandler serves role administration.
type RolesHandler struct {
	roles  *service.RoleService
	render *Renderer
}

// NewRolesHandler constructs handler.
func NewRolesHandler(roles *service.RoleService, render *Renderer) *RolesHandler {
	return &RolesHandler{roles: roles, render: render}
}

// List handles GET /system/role.
func (h *RolesHandler) List(c *fiber.Ctx) error {
	params := listParams(c)
	page, err := h.roles.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return h.render.Render(c, http.StatusOK, "roles", PageRoles.Title, fiber.Map{
		"Roles":  page.Roles,
		"Total":  page.TotalCount,
		"Params": params,
	})
}

// Detail handles GET /system/role/:id.
func (h *RolesHandler) Detail(c *fiber.Ctx) error {
	view, err := h.roles.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return h.renderRole(c, http.StatusOK, view, "")
}

// UpdatePermissions handles POST /system/role/:id/permissions.
func (h *RolesHandler) UpdatePermissions(c *fiber.Ctx) error {
	var form dto.RolePermissionsForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form", nil)
	}
	id := c.Params("id")
	if _, err := h.roles.UpdatePermissions(c.UserContext(), id, form.Permissions, form.ToggleGroup); err != nil {
		de := apperrors.ToDomainError(err)
		if de.HTTPStatus != http.StatusBadRequest && de.HTTPStatus != http.StatusForbidden {
			return err
		}
		view, getErr := h.roles.Get(c.UserContext(), id)
		if getErr != nil {
			return getErr
		}
		return h.renderRole(c, de.HTTPStatus, view, de.Message)
	}
	return c.Redirect("/system/role/" + id)
}

func (h *RolesHandler) renderRole(c *fiber.Ctx, status int, view *service.RoleView, message string) error {
	state := BrowserFrom(c).State
	canEdit := state.Ability(PageRolePermissions.Rule.Permissions).Can(auth.ActionManage, auth.SubjectAll)
	return h.render.Render(c, status, "role", view.Role.Name, fiber.Map{
		"Role":    view.Role,
		"Locked":  view.Locked,
		"CanEdit": canEdit && !view.Locked,
		"Rows":    PermissionTable(view.Selected),
		"Error":   message,
	})
}
