package session

// Package session provides request-scoped session state persisted through a ports.SessionBackend.

import (
	"maps"

	"github.com/google/uuid"

	"github.com/target/panel-auth/internal/ports"
)

var _ ports.SessionStore = (*Session)(nil)

// Session is the mutable key/value state of one browser session for the
// duration of a request. It is not safe for concurrent use.
type Session struct {
	id         string
	previousID string
	attrs      map[string]any
	dirty      bool
	isNew      bool
}

func newSession(id string, attrs map[string]any, isNew bool) *Session {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Session{id: id, attrs: attrs, isNew: isNew}
}

// NewID returns a fresh random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the current session identifier.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// Dirty reports whether the session has unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.attrs[key]
	return ok
}

// Put stores val under key.
func (s *Session) Put(key string, val any) {
	s.attrs[key] = val
	s.dirty = true
}

// Forget removes keys. Missing keys are ignored.
func (s *Session) Forget(keys ...string) {
	for _, k := range keys {
		if _, ok := s.attrs[k]; ok {
			delete(s.attrs, k)
			s.dirty = true
		}
	}
}

// All returns a copy of every stored attribute.
func (s *Session) All() map[string]any {
	out := make(map[string]any, len(s.attrs))
	maps.Copy(out, s.attrs)
	return out
}

// Regenerate assigns a new identifier while keeping the data. The old
// identifier is destroyed on the next save.
func (s *Session) Regenerate() {
	if s.previousID == "" && !s.isNew {
		s.previousID = s.id
	}
	s.id = NewID()
	s.dirty = true
}

// Invalidate drops all data and assigns a new identifier.
func (s *Session) Invalidate() {
	clear(s.attrs)
	s.Regenerate()
}

// Len returns the number of stored attributes.
func (s *Session) Len() int { return len(s.attrs) }
