package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

var (
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrAuthenticationFailed is returned for every upstream failure. It carries no upstream detail.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Projections are JMESPath expressions evaluated against the identity's
// attributes to fill the convenience session keys.
type Projections struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// DefaultProjections returns the projections used when none are configured.
// Operator accounts carry operator_id, which takes precedence over id.
func DefaultProjections() Projections {
	return Projections{
		UserID: "operator_id || id",
		Email:  "email",
		Name:   "username",
		Role:   "role",
	}
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Authenticator ports.Authenticator
	Projections   Projections // zero fields fall back to DefaultProjections
	Logger        *slog.Logger
}

// AuthService writes and clears the guard's session keys around the external authenticator.
type AuthService struct {
	authenticator ports.Authenticator
	projections   []projection
	logger        *slog.Logger
}

type projection struct {
	key  string
	expr string
}

// NewAuthService constructs an AuthService. Every projection expression is
// compiled up front so a bad expression fails at startup rather than at login.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Authenticator == nil {
		return nil, errors.New("authenticator is required")
	}

	defaults := DefaultProjections()
	exprs := []projection{
		{domainauth.SessionKeyUserID, firstNonEmpty(opts.Projections.UserID, defaults.UserID)},
		{domainauth.SessionKeyEmail, firstNonEmpty(opts.Projections.Email, defaults.Email)},
		{domainauth.SessionKeyName, firstNonEmpty(opts.Projections.Name, defaults.Name)},
		{domainauth.SessionKeyRole, firstNonEmpty(opts.Projections.Role, defaults.Role)},
	}
	for _, p := range exprs {
		if _, err := jmespath.Compile(p.expr); err != nil {
			return nil, fmt.Errorf("compile projection for %s (%q): %w", p.key, p.expr, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		authenticator: opts.Authenticator,
		projections:   exprs,
		logger:        logger.With("component", "auth_service"),
	}, nil
}

// Login authenticates the credentials and, on success, writes all six guard
// keys to store. On failure store is left untouched.
func (s *AuthService) Login(ctx context.Context, store ports.SessionStore, email, password string) (*domainauth.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	result, ok := s.authenticator.Authenticate(ctx, email, password)
	if !ok {
		return nil, ErrAuthenticationFailed
	}

	identity := result.Identity()
	attrs := identity.RawAttributes()

	store.Put(domainauth.SessionKeyToken, result.Token)
	store.Put(domainauth.SessionKeyUserData, attrs)
	for _, p := range s.projections {
		store.Put(p.key, s.project(ctx, p, attrs))
	}

	s.logger.InfoContext(ctx, "user logged in", "email", email, "has_token", result.Token != "")
	return identity, nil
}

// Logout clears the session through the guard.
func (s *AuthService) Logout(ctx context.Context, guard ports.AuthGuard) {
	var id any
	if user, ok := guard.CurrentUser(); ok {
		id, _ = user.Identifier()
	}
	guard.Logout()
	s.logger.InfoContext(ctx, "user logged out", "user_id", id)
}

func (s *AuthService) project(ctx context.Context, p projection, attrs map[string]any) any {
	v, err := jmespath.Search(p.expr, attrs)
	if err != nil {
		s.logger.WarnContext(ctx, "session projection failed", "key", p.key, "expr", p.expr, "error", err)
		return nil
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
