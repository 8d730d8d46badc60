package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/session; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
)

// Authenticator validates credentials against an external identity provider.
// The boolean is false when no result could be produced, for any reason.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domainauth.AuthResult, bool)
}

// SessionStore is the request-scoped key/value view of a user's session.
type SessionStore interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (any, bool)
	// Has reports whether key is present.
	Has(key string) bool
	// Put stores val under key.
	Put(key string, val any)
	// Forget removes all given keys.
	Forget(keys ...string)
}

// AuthGuard answers who the current request's user is and whether the session is valid.
type AuthGuard interface {
	CurrentUser() (*domainauth.Identity, bool)
	IsAuthenticated() bool
	IsGuest() bool
	Identifier() (any, bool)
	Validate() bool
	SetUser(user *domainauth.Identity) AuthGuard
	Logout()
}

// SessionBackend persists whole session payloads by session id.
type SessionBackend interface {
	// Load returns the attributes for id, or domainauth.ErrSessionNotFound.
	Load(ctx context.Context, id string) (map[string]any, error)
	// Save stores attrs under id for ttl.
	Save(ctx context.Context, id string, attrs map[string]any, ttl time.Duration) error
	// Destroy removes id. Destroying a missing session is not an error.
	Destroy(ctx context.Context, id string) error
}
