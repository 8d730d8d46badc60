// Package mocks provides mock implementations of the auth ports for tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the interfaces in internal/ports.
// Use them when a test needs to assert call counts or ordering; the hand-written doubles in
// internal/mocks/auth are simpler when only state matters.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockSessionStore(ctrl)
//	store.EXPECT().Get("external_auth_token").Return("t", true).Times(1)
package mocks

// Generate mock for Authenticator interface from internal/ports package.
// This creates MockAuthenticator with methods for all Authenticator interface methods:
// Authenticate
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=authenticator_mock.go github.com/target/panel-auth/internal/ports Authenticator

// Generate mock for SessionStore interface from internal/ports package.
// This creates MockSessionStore with methods for all SessionStore interface methods:
// Get, Has, Put, Forget
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/panel-auth/internal/ports SessionStore

// Generate mock for SessionBackend interface from internal/ports package.
// This creates MockSessionBackend with methods for all SessionBackend interface methods:
// Load, Save, Destroy
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_backend_mock.go github.com/target/panel-auth/internal/ports SessionBackend
