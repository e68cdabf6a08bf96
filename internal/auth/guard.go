package auth

import (
	"net/url"

	"github.com/spec-kit/storefront-web/internal/domain"
)

// Well-known routes used by the guards.
const (
	RouteRoot  = "/"
	RouteLogin = "/login"
	RouteHome  = "/home"
)

// PageRule is the access declaration attached to a page.
type PageRule struct {
	// AuthGuard requires an authenticated session. Pages default to true.
	AuthGuard bool
	// GuestGuard restricts the page to anonymous sessions.
	GuestGuard bool
	// ACL is the pair checked by the ability guard; zero value means DefaultACL.
	ACL ACL
	// Permissions are the permission values the page declares.
	Permissions []string
}

// Outcome is the terminal state of a guarded navigation.
type Outcome int

const (
	OutcomeRender Outcome = iota
	OutcomeFallback
	OutcomeRedirectLogin
	OutcomeRedirectHome
	OutcomeNotAuthorized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRender:
		return "render"
	case OutcomeFallback:
		return "fallback"
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeRedirectHome:
		return "redirect_home"
	case OutcomeNotAuthorized:
		return "not_authorized"
	default:
		return "unknown"
	}
}

// GuardInput is the session snapshot a guard decision is made from.
type GuardInput struct {
	Rule PageRule
	// Path is the requested path including its query string.
	Path string
	// ErrorPage marks the 404/500 pages, which always render.
	ErrorPage bool
	User      *domain.User
	Loading   bool
	// RememberedAccess and RememberedUser report the remembered scope fields.
	RememberedAccess bool
	RememberedUser   bool
	Temporary        bool
	Ability          *Ability
}

// Decision is the guard result. Location is set for redirect outcomes.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide runs the base guard selected by the rule and layers the ability guard on
// top of a render outcome.
func Decide(in GuardInput) Decision {
	var base Decision
	switch {
	case in.Rule.GuestGuard:
		base = guestGuard(in)
	case !in.Rule.AuthGuard:
		base = noGuard(in)
	default:
		base = authGuard(in)
	}
	if base.Outcome != OutcomeRender {
		return base
	}
	return aclGuard(in)
}

func authGuard(in GuardInput) Decision {
	if in.User == nil && !in.RememberedAccess && !in.RememberedUser && !in.Temporary {
		return Decision{Outcome: OutcomeRedirectLogin, Location: LoginLocation(in.Path)}
	}
	if in.Loading || in.User == nil {
		return Decision{Outcome: OutcomeFallback}
	}
	return Decision{Outcome: OutcomeRender}
}

// guestGuard only looks at the remembered scope; a temporary session may still
// open guest pages.
func guestGuard(in GuardInput) Decision {
	if in.RememberedAccess && in.RememberedUser {
		return Decision{Outcome: OutcomeRedirectHome, Location: RouteRoot}
	}
	if in.Loading {
		return Decision{Outcome: OutcomeFallback}
	}
	return Decision{Outcome: OutcomeRender}
}

func noGuard(in GuardInput) Decision {
	if in.Loading {
		return Decision{Outcome: OutcomeFallback}
	}
	return Decision{Outcome: OutcomeRender}
}

func aclGuard(in GuardInput) Decision {
	if in.Rule.GuestGuard || !in.Rule.AuthGuard || in.ErrorPage {
		return Decision{Outcome: OutcomeRender}
	}
	acl := in.Rule.ACL
	if acl == (ACL{}) {
		acl = DefaultACL
	}
	if in.User != nil && in.Ability != nil && in.Ability.Can(acl.Action, acl.Subject) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{Outcome: OutcomeNotAuthorized}
}

// LoginLocation builds the login redirect target, keeping path as returnUrl
// unless the user is already at the root or on the login page.
func LoginLocation(path string) string {
	if path == "" || path == RouteRoot || path == RouteLogin {
		return RouteLogin
	}
	return RouteLogin + "?" + url.Values{"returnUrl": {path}}.Encode()
}
