package service

import (
	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

var _ ports.AuthGuard = (*SessionGuard)(nil)

// SessionGuard resolves the current user from a request's session. It reads
// the session lazily, at most once, and caches both the authenticated and the
// anonymous outcome. Create one per request; it is not safe for concurrent use.
type SessionGuard struct {
	store    ports.SessionStore
	user     *domainauth.Identity
	resolved bool
}

// NewSessionGuard creates a guard over store.
func NewSessionGuard(store ports.SessionStore) *SessionGuard {
	return &SessionGuard{store: store}
}

// CurrentUser returns the authenticated identity, if any.
func (g *SessionGuard) CurrentUser() (*domainauth.Identity, bool) {
	if !g.resolved {
		g.user = g.loadUser()
		g.resolved = true
	}
	return g.user, g.user != nil
}

func (g *SessionGuard) loadUser() *domainauth.Identity {
	raw, ok := g.store.Get(domainauth.SessionKeyUserData)
	if !ok {
		return nil
	}
	attrs, ok := raw.(map[string]any)
	if !ok || len(attrs) == 0 {
		return nil
	}
	return domainauth.NewIdentity(attrs)
}

// IsAuthenticated reports whether a user is resolved for this request.
func (g *SessionGuard) IsAuthenticated() bool {
	_, ok := g.CurrentUser()
	return ok
}

// IsGuest is the negation of IsAuthenticated.
func (g *SessionGuard) IsGuest() bool {
	return !g.IsAuthenticated()
}

// Identifier returns the current user's id attribute.
func (g *SessionGuard) Identifier() (any, bool) {
	user, ok := g.CurrentUser()
	if !ok {
		return nil, false
	}
	return user.Identifier()
}

// Validate reports whether the session holds both the upstream token and the
// user data. It reads the session on every call and ignores the cached user.
func (g *SessionGuard) Validate() bool {
	return g.store.Has(domainauth.SessionKeyToken) && g.store.Has(domainauth.SessionKeyUserData)
}

// SetUser replaces the cached identity without touching the session. A nil
// user resolves the guard as anonymous.
func (g *SessionGuard) SetUser(user *domainauth.Identity) ports.AuthGuard {
	g.user = user
	g.resolved = true
	return g
}

// Logout forgets every guard-owned session key and resolves the guard as anonymous.
func (g *SessionGuard) Logout() {
	g.store.Forget(domainauth.SessionKeys()...)
	g.user = nil
	g.resolved = true
}
