package memory

// Package memory provides an in-process session backend for development and tests.

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

var _ ports.SessionBackend = (*SessionBackend)(nil)

type entry struct {
	attrs     map[string]any
	expiresAt time.Time
}

// SessionBackend keeps sessions in a map. Safe for concurrent use. Data is
// lost on restart and is not shared between instances.
type SessionBackend struct {
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time
}

// NewSessionBackend creates an empty in-memory backend.
func NewSessionBackend() *SessionBackend {
	return &SessionBackend{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

func (b *SessionBackend) Load(_ context.Context, id string) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.sessions[id]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if !b.now().Before(e.expiresAt) {
		delete(b.sessions, id)
		return nil, domainauth.ErrSessionNotFound
	}

	out := make(map[string]any, len(e.attrs))
	maps.Copy(out, e.attrs)
	return out, nil
}

func (b *SessionBackend) Save(_ context.Context, id string, attrs map[string]any, ttl time.Duration) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	cp := make(map[string]any, len(attrs))
	maps.Copy(cp, attrs)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[id] = entry{attrs: cp, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *SessionBackend) Destroy(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet evicted.
func (b *SessionBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
