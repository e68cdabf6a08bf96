// Package session holds the per-browser auth state: the resolved user, the
// loading flag and the memoized ability.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/storefront-web/internal/auth"
	"github.com/spec-kit/storefront-web/internal/backend"
	"github.com/spec-kit/storefront-web/internal/domain"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

// UserSource loads the user owning the stored credential.
type UserSource interface {
	Me(ctx context.Context) (*domain.User, error)
}

// State is the auth state of one browser.
type State struct {
	mu      sync.Mutex
	user    *domain.User
	loading bool

	abilityKey string
	ability    *auth.Ability
}

// User returns the current user or nil.
func (s *State) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Loading reports whether the user is being resolved.
func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SetUser replaces the current user. The ability memo survives as long as the
// role permissions stay the same.
func (s *State) SetUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.loading = false
}

// SetLoading flips the loading flag.
func (s *State) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// Clear forgets the user and the memoized ability.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.loading = false
	s.ability = nil
	s.abilityKey = ""
}

// Ability returns the ability of the current user for a page declaring
// required. It is nil without a user and is rebuilt only when the role
// permissions or the requirement change.
func (s *State) Ability(required []string) *auth.Ability {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	key := memoKey(s.user.RolePermissions(), required)
	if s.ability != nil && s.abilityKey == key {
		return s.ability
	}
	s.ability = auth.BuildAbility(auth.ResolveEffectivePermissions(s.user), required)
	s.abilityKey = key
	return s.ability
}

func memoKey(perms, required []string) string {
	return sortedJoin(perms) + "|" + sortedJoin(required)
}

func sortedJoin(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Resolve loads the user when a credential is stored but no user is known yet.
// A redirect error is returned untouched so the caller can send the browser to
// the login page. Any other failure wipes the remembered scope and the user.
func (s *State) Resolve(ctx context.Context, store tokenstore.Store, src UserSource) error {
	if s.User() != nil {
		return nil
	}
	creds := store.ReadCredentials(ctx)
	if creds.AccessToken == "" && store.ReadTemporaryToken(ctx) == "" {
		return nil
	}

	s.SetLoading(true)
	user, err := src.Me(backend.WithStore(ctx, store))
	if err != nil {
		if _, ok := backend.AsRedirect(err); ok {
			s.SetLoading(false)
			return err
		}
		store.ClearRemembered(ctx)
		s.Clear()
		return err
	}
	s.SetUser(user)
	return nil
}
