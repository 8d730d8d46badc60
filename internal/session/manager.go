package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

// DefaultLifetime is used when no lifetime is configured.
const DefaultLifetime = 120 * time.Minute

// Manager loads and persists sessions through a backend.
type Manager struct {
	backend  ports.SessionBackend
	lifetime time.Duration
}

// NewManager creates a Manager. A non-positive lifetime falls back to DefaultLifetime.
func NewManager(backend ports.SessionBackend, lifetime time.Duration) *Manager {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Manager{backend: backend, lifetime: lifetime}
}

// Lifetime returns how long an idle session is kept.
func (m *Manager) Lifetime() time.Duration { return m.lifetime }

// Start loads the session for id. An empty, unknown or expired id yields a
// fresh session under a newly generated id; the client-supplied id is never adopted.
func (m *Manager) Start(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return newSession(NewID(), nil, true), nil
	}

	attrs, err := m.backend.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return newSession(NewID(), nil, true), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	return newSession(id, attrs, false), nil
}

// Save persists s. A regenerated session has its previous id destroyed, an
// emptied session is destroyed rather than stored, and a new session with no
// data is never written.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}

	if s.previousID != "" {
		if err := m.backend.Destroy(ctx, s.previousID); err != nil {
			return fmt.Errorf("destroy previous session: %w", err)
		}
		s.previousID = ""
	}

	switch {
	case s.Len() == 0 && s.isNew:
		// nothing to persist
	case s.Len() == 0:
		if err := m.backend.Destroy(ctx, s.id); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	default:
		if err := m.backend.Save(ctx, s.id, s.All(), m.lifetime); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	s.dirty = false
	s.isNew = false
	return nil
}
