package dto

import "strings"

// LoginForm is the login page form.
type LoginForm struct {
	Email     string `form:"email"`
	Password  string `form:"password"`
	Remember  string `form:"remember"`
	ReturnURL string `form:"returnUrl"`
}

// RememberMe reports whether the checkbox was ticked.
func (f LoginForm) RememberMe() bool {
	switch strings.ToLower(f.Remember) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// LogoutForm carries the page the user logged out from.
type LogoutForm struct {
	From string `form:"from"`
}

// RolePermissionsForm is the permission table of a role page.
type RolePermissionsForm struct {
	Permissions []string `form:"permission"`
	ToggleGroup string   `form:"toggle_group"`
}

// ListQuery holds paging and search query parameters.
type ListQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Order  string `query:"order"`
}
