package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbilityWithoutRequirementAllowsEverything(t *testing.T) {
	a := BuildAbility(nil, nil)

	assert.True(t, a.Can("view", "SYSTEM.USER"))
	assert.True(t, a.Can(ActionManage, SubjectAll))
}

func TestAbilityChecksCanonicalPermission(t *testing.T) {
	a := BuildAbility([]string{PermSystemUserView}, []string{PermSystemUserView})

	assert.True(t, a.Can("view", "SYSTEM.USER"))
	assert.False(t, a.Can("delete", "SYSTEM.USER"))
	assert.False(t, a.Can("view", "SYSTEM.UNKNOWN"))
}

func TestAbilityWildcardNeedsEveryRequirement(t *testing.T) {
	required := []string{PermSystemRoleView, PermSystemRoleEdit}

	assert.False(t, BuildAbility([]string{PermSystemRoleView}, required).Can(ActionManage, SubjectAll))
	assert.True(t, BuildAbility([]string{PermSystemRoleEdit, PermSystemRoleView}, required).Can(ActionManage, SubjectAll))
}

func TestAbilityNil(t *testing.T) {
	var a *Ability
	assert.False(t, a.Can("view", "DASHBOARD"))
	assert.False(t, a.Has(PermDashboard))
}

func TestBuildAbilityIsIdempotent(t *testing.T) {
	effective := ResolveEffectivePermissions(userWith(PermSystemUserView, PermProductView))
	required := []string{PermSystemUserView}

	first := BuildAbility(effective, required)
	second := BuildAbility(effective, required)

	var walk func(prefix string, n Node)
	walk = func(prefix string, n Node) {
		for _, c := range n.Children {
			subject := c.Key
			if prefix != "" {
				subject = prefix + "." + c.Key
			}
			if c.IsLeaf() {
				continue
			}
			for _, action := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete} {
				assert.Equalf(t, first.Can(string(action), subject), second.Can(string(action), subject), "%s %s", action, subject)
			}
			walk(subject, c)
		}
	}
	walk("", Catalog())
	assert.Equal(t, first.Can(ActionManage, SubjectAll), second.Can(ActionManage, SubjectAll))
}

func TestBuildAbilityCopiesRequirement(t *testing.T) {
	required := []string{PermSystemUserView}
	a := BuildAbility([]string{PermSystemUserView}, required)
	required[0] = PermAdmin

	assert.True(t, a.Can(ActionManage, SubjectAll))
}
