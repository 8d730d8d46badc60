package httpx

import (
	"context"

	"github.com/target/panel-auth/internal/ports"
	"github.com/target/panel-auth/internal/session"
)

// Unexported context key types to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same keys.
type (
	sessionKey struct{}
	guardKey   struct{}
)

// SetSessionInContext returns a child context that carries the request session.
// If sess is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, sess *session.Session) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sess)
}

// GetSessionFromContext returns the request session and a boolean indicating presence.
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	if sess, ok := ctx.Value(sessionKey{}).(*session.Session); ok && sess != nil {
		return sess, true
	}
	return nil, false
}

// SetGuardInContext returns a child context that carries the request's auth guard.
func SetGuardInContext(ctx context.Context, guard ports.AuthGuard) context.Context {
	if guard == nil {
		return ctx
	}
	return context.WithValue(ctx, guardKey{}, guard)
}

// GetGuardFromContext returns the request's auth guard and a boolean indicating presence.
func GetGuardFromContext(ctx context.Context) (ports.AuthGuard, bool) {
	if guard, ok := ctx.Value(guardKey{}).(ports.AuthGuard); ok && guard != nil {
		return guard, true
	}
	return nil, false
}

// IsGuestUser reports whether the current request context has no authenticated user.
func IsGuestUser(ctx context.Context) bool {
	guard, ok := GetGuardFromContext(ctx)
	if !ok {
		return true
	}
	return guard.IsGuest()
}
