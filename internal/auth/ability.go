package auth

import "strings"

// Wildcard pair used by pages that declare no explicit ACL.
const (
	ActionManage = "manage"
	SubjectAll   = "all"
)

// ACL is the (action, subject) pair a page requires.
type ACL struct {
	Action  string
	Subject string
}

// DefaultACL is applied to pages without an explicit ACL.
var DefaultACL = ACL{Action: ActionManage, Subject: SubjectAll}

// Ability answers capability checks for one session and one page requirement.
type Ability struct {
	granted  map[string]struct{}
	required []string
}

// BuildAbility creates an ability from the effective permission set and the
// permissions the requesting page declares.
func BuildAbility(effective, required []string) *Ability {
	a := &Ability{
		granted:  make(map[string]struct{}, len(effective)),
		required: append([]string(nil), required...),
	}
	for _, p := range effective {
		a.granted[p] = struct{}{}
	}
	return a
}

// Can reports whether the pair is allowed. Pages without requirements are open to
// any authenticated user; the manage/all wildcard requires every declared
// permission; any other pair is resolved through the catalog.
func (a *Ability) Can(action, subject string) bool {
	if a == nil {
		return false
	}
	if len(a.required) == 0 {
		return true
	}
	if strings.EqualFold(action, ActionManage) && strings.EqualFold(subject, SubjectAll) {
		for _, p := range a.required {
			if !a.Has(p) {
				return false
			}
		}
		return true
	}
	value := Lookup(subject, action)
	if value == "" {
		return false
	}
	return a.Has(value)
}

// Has reports whether value is part of the effective permission set.
func (a *Ability) Has(value string) bool {
	if a == nil {
		return false
	}
	_, ok := a.granted[value]
	return ok
}
