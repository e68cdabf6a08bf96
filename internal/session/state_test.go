package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

type fakeSource struct {
	user  *domain.User
	err   error
	calls int
	store bool
}

func (f *fakeSource) Me(ctx context.Context) (*domain.User, error) {
	f.calls++
	f.store = backend.StoreFrom(ctx) != nil
	return f.user, f.err
}

func withRole(perms ...string) *domain.User {
	return &domain.User{ID: "u1", Role: &domain.Role{Permissions: perms}}
}

func TestAbilityNilWithoutUser(t *testing.T) {
	var s State
	assert.Nil(t, s.Ability([]string{auth.PermDashboard}))
}

func TestAbilityIsMemoizedOnRolePermissions(t *testing.T) {
	var s State
	s.SetUser(withRole(auth.PermSystemUserView, auth.PermProductView))
	first := s.Ability([]string{auth.PermSystemUserView})

	s.SetUser(withRole(auth.PermProductView, auth.PermSystemUserView))
	assert.Same(t, first, s.Ability([]string{auth.PermSystemUserView}))

	assert.NotSame(t, first, s.Ability([]string{auth.PermProductView}))

	s.SetUser(withRole(auth.PermBasic))
	basic := s.Ability([]string{auth.PermSystemUserView})
	assert.False(t, basic.Can("view", "SYSTEM.USER"))
}

func TestClearDropsUserAndAbility(t *testing.T) {
	var s State
	s.SetUser(withRole(auth.PermAdmin))
	require.NotNil(t, s.Ability(nil))

	s.Clear()
	assert.Nil(t, s.User())
	assert.Nil(t, s.Ability(nil))
}

func newStore() tokenstore.Store {
	return tokenstore.NewManager(tokenstore.ManagerConfig{}).For("dev", "tab")
}

func TestResolveSkipsWithoutCredential(t *testing.T) {
	var s State
	src := &fakeSource{user: withRole()}

	require.NoError(t, s.Resolve(context.Background(), newStore(), src))
	assert.Zero(t, src.calls)
	assert.Nil(t, s.User())
}

func TestResolveLoadsUser(t *testing.T) {
	var s State
	store := newStore()
	store.WriteTemporary(context.Background(), "temp")
	src := &fakeSource{user: withRole(auth.PermDashboard)}

	require.NoError(t, s.Resolve(context.Background(), store, src))
	assert.Equal(t, "u1", s.User().ID)
	assert.False(t, s.Loading())
	assert.True(t, src.store)

	require.NoError(t, s.Resolve(context.Background(), store, src))
	assert.Equal(t, 1, src.calls)
}

func TestResolveFailureClearsRememberedScope(t *testing.T) {
	var s State
	store := newStore()
	store.WriteRemembered(context.Background(), nil, "a", "r")
	src := &fakeSource{err: errors.New("backend down")}

	assert.Error(t, s.Resolve(context.Background(), store, src))
	assert.Equal(t, tokenstore.Credentials{}, store.ReadCredentials(context.Background()))
	assert.Nil(t, s.User())
	assert.False(t, s.Loading())
}

func TestResolvePassesRedirectThrough(t *testing.T) {
	var s State
	store := newStore()
	store.WriteRemembered(context.Background(), nil, "a", "r")
	src := &fakeSource{err: &backend.RedirectError{Reason: backend.ReasonExpiredRefresh}}

	err := s.Resolve(context.Background(), store, src)
	_, ok := backend.AsRedirect(err)
	assert.True(t, ok)
	assert.Equal(t, "a", store.ReadCredentials(context.Background()).AccessToken)
}

func TestRegistryEvictsIdleStates(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	a := r.Get("a")
	r.Get("b")
	assert.Same(t, a, r.Get("a"))

	now = now.Add(45 * time.Second)
	r.Get("a")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, r.Evict())
	assert.Equal(t, 1, r.Len())

	r.Drop("a")
	assert.Zero(t, r.Len())
	assert.Zero(t, NewRegistry(0).Evict())
}
