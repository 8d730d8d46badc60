package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"maps"
	"sync"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator = (*StubAuthenticator)(nil)
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
)

// StubAuthenticator accepts a fixed set of credentials and records every call.
type StubAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, email, password string) (domainauth.AuthResult, bool)

	// Accepted maps email to the password that succeeds and the result returned.
	Accepted map[string]StubAccount

	mu    sync.Mutex
	calls []string
}

// StubAccount is a credential pair known to a StubAuthenticator.
type StubAccount struct {
	Password string
	Result   domainauth.AuthResult
}

// NewStubAuthenticator creates a StubAuthenticator that knows one account.
func NewStubAuthenticator(email, password string, result domainauth.AuthResult) *StubAuthenticator {
	return &StubAuthenticator{
		Accepted: map[string]StubAccount{email: {Password: password, Result: result}},
	}
}

func (s *StubAuthenticator) Authenticate(ctx context.Context, email, password string) (domainauth.AuthResult, bool) {
	s.mu.Lock()
	s.calls = append(s.calls, email)
	s.mu.Unlock()

	if s.AuthenticateFunc != nil {
		return s.AuthenticateFunc(ctx, email, password)
	}

	acct, ok := s.Accepted[email]
	if !ok || acct.Password != password {
		return domainauth.AuthResult{}, false
	}
	return acct.Result, true
}

// Calls returns the emails passed to Authenticate, in order.
func (s *StubAuthenticator) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// MemorySessionStore is an in-memory session store for unit tests. It counts
// reads so tests can assert memoization.
type MemorySessionStore struct {
	attrs map[string]any

	GetCalls    int
	HasCalls    int
	PutCalls    int
	ForgetCalls int
}

// NewMemorySessionStore creates a new in-memory session store seeded with attrs.
func NewMemorySessionStore(attrs map[string]any) *MemorySessionStore {
	m := &MemorySessionStore{attrs: make(map[string]any, len(attrs))}
	maps.Copy(m.attrs, attrs)
	return m
}

func (m *MemorySessionStore) Get(key string) (any, bool) {
	m.GetCalls++
	v, ok := m.attrs[key]
	return v, ok
}

func (m *MemorySessionStore) Has(key string) bool {
	m.HasCalls++
	_, ok := m.attrs[key]
	return ok
}

func (m *MemorySessionStore) Put(key string, val any) {
	m.PutCalls++
	m.attrs[key] = val
}

func (m *MemorySessionStore) Forget(keys ...string) {
	m.ForgetCalls++
	for _, k := range keys {
		delete(m.attrs, k)
	}
}

// Snapshot returns a copy of the stored attributes without counting as a read.
func (m *MemorySessionStore) Snapshot() map[string]any {
	out := make(map[string]any, len(m.attrs))
	maps.Copy(out, m.attrs)
	return out
}

// Reads returns the total number of Get and Has calls.
func (m *MemorySessionStore) Reads() int {
	return m.GetCalls + m.HasCalls
}
