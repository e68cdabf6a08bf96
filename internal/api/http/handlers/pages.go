package handlers

import (
	"github.com/spec-kit/storefront-web/internal/auth"
)

// Page is a routable view with its access rule.
type Page struct {
	Path  string
	Title string
	Rule  auth.PageRule
	// ErrorPage pages render regardless of the ability check.
	ErrorPage bool
	// Nav pages are listed in the back-office menu.
	Nav bool
}

// ACL returns the pair checked for the page.
func (p Page) ACL() auth.ACL {
	if p.Rule.ACL == (auth.ACL{}) {
		return auth.DefaultACL
	}
	return p.Rule.ACL
}

var signedIn = auth.PageRule{AuthGuard: true}

var (
	PageRoot    = Page{Path: auth.RouteRoot, Rule: signedIn}
	PageHome    = Page{Path: auth.RouteHome, Title: "Home"}
	PageProduct = Page{Path: "/product/:slug", Title: "Product"}
	PageLogin   = Page{Path: auth.RouteLogin, Title: "Login", Rule: auth.PageRule{AuthGuard: true, GuestGuard: true}}
	PageProfile = Page{Path: "/my-profile", Title: "My profile", Rule: signedIn}

	PageDashboard = Page{
		Path:  "/dashboard",
		Title: "Dashboard",
		Rule:  auth.PageRule{AuthGuard: true, Permissions: []string{auth.PermDashboard}},
		Nav:   true,
	}
	PageUsers = Page{
		Path:  "/system/user",
		Title: "Users",
		Rule: auth.PageRule{
			AuthGuard:   true,
			ACL:         auth.ACL{Action: "view", Subject: "SYSTEM.USER"},
			Permissions: []string{auth.PermSystemUserView},
		},
		Nav: true,
	}
	PageRoles = Page{
		Path:  "/system/role",
		Title: "Roles",
		Rule:  auth.PageRule{AuthGuard: true, Permissions: []string{auth.PermSystemRoleView}},
		Nav:   true,
	}
	PageRole = Page{
		Path:  "/system/role/:id",
		Title: "Role",
		Rule:  auth.PageRule{AuthGuard: true, Permissions: []string{auth.PermSystemRoleView}},
	}
	PageRolePermissions = Page{
		Path:  "/system/role/:id/permissions",
		Title: "Role permissions",
		Rule:  auth.PageRule{AuthGuard: true, Permissions: []string{auth.PermSystemRoleView, auth.PermSystemRoleEdit}},
	}
	PageProducts = Page{
		Path:  "/manage-product/product",
		Title: "Products",
		Rule:  auth.PageRule{AuthGuard: true, Permissions: []string{auth.PermProductView}},
		Nav:   true,
	}

	PageNotAuthorized = Page{Path: "/401", Title: "Not authorized", ErrorPage: true}
	PageNotFound      = Page{Path: "/404", Title: "Not found", ErrorPage: true}
	PageServerError   = Page{Path: "/500", Title: "Server error", ErrorPage: true}
)

// NavPages lists the back-office menu in display order.
var NavPages = []Page{PageDashboard, PageUsers, PageRoles, PageProducts}
