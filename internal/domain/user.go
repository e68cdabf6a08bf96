package domain

import "strings"

// UserStatus mirrors the backend's numeric account status.
type UserStatus int

const (
	UserStatusBlocked UserStatus = 0
	UserStatusActive  UserStatus = 1
)

// User is the account snapshot returned by the backend for the current session.
type User struct {
	ID         string     `json:"_id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName,omitempty"`
	MiddleName string     `json:"middleName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	Avatar     string     `json:"avatar,omitempty"`
	Status     UserStatus `json:"status"`
	Role       *Role      `json:"role,omitempty"`
}

// RolePermissions returns the raw permission list of the user's role, or nil.
func (u *User) RolePermissions() []string {
	if u == nil || u.Role == nil {
		return nil
	}
	return u.Role.Permissions
}

// FullName joins the name parts in the order used by the given language.
// Vietnamese puts the family name first; every other language puts it last.
func (u *User) FullName(lang string) string {
	if u == nil {
		return ""
	}
	var parts []string
	if lang == LanguageVI {
		parts = []string{u.LastName, u.MiddleName, u.FirstName}
	} else {
		parts = []string{u.FirstName, u.MiddleName, u.LastName}
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
