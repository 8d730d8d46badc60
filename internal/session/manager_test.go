package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/panel-auth/internal/adapters/memory"
	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/mocks"
)

func TestNewManager_DefaultLifetime(t *testing.T) {
	m := NewManager(memory.NewSessionBackend(), 0)
	assert.Equal(t, DefaultLifetime, m.Lifetime())

	m = NewManager(memory.NewSessionBackend(), time.Hour)
	assert.Equal(t, time.Hour, m.Lifetime())
}

func TestManager_StartWithoutIDCreatesNewSession(t *testing.T) {
	m := NewManager(memory.NewSessionBackend(), time.Hour)

	s, err := m.Start(context.Background(), "")

	require.NoError(t, err)
	assert.True(t, s.IsNew())
	assert.NotEmpty(t, s.ID())
}

func TestManager_StartUnknownIDIsNotAdopted(t *testing.T) {
	m := NewManager(memory.NewSessionBackend(), time.Hour)

	s, err := m.Start(context.Background(), "attacker-chosen")

	require.NoError(t, err)
	assert.True(t, s.IsNew())
	assert.NotEqual(t, "attacker-chosen", s.ID())
}

func TestManager_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSessionBackend()
	m := NewManager(backend, time.Hour)

	s, err := m.Start(ctx, "")
	require.NoError(t, err)
	s.Put(domainauth.SessionKeyToken, "t1")
	require.NoError(t, m.Save(ctx, s))
	assert.False(t, s.Dirty())
	assert.False(t, s.IsNew())

	loaded, err := m.Start(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), loaded.ID())
	assert.False(t, loaded.IsNew())
	tok, ok := loaded.Get(domainauth.SessionKeyToken)
	assert.True(t, ok)
	assert.Equal(t, "t1", tok)
}

func TestManager_SaveEmptyNewSessionWritesNothing(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSessionBackend()
	m := NewManager(backend, time.Hour)

	s, err := m.Start(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, s))

	assert.Equal(t, 0, backend.Len())
}

func TestManager_SaveEmptiedSessionDestroysIt(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSessionBackend()
	require.NoError(t, backend.Save(ctx, "s1", map[string]any{"k": "v"}, time.Hour))
	m := NewManager(backend, time.Hour)

	s, err := m.Start(ctx, "s1")
	require.NoError(t, err)
	s.Forget("k")
	require.NoError(t, m.Save(ctx, s))

	_, err = backend.Load(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestManager_SaveRegeneratedSessionDestroysPreviousID(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSessionBackend()
	require.NoError(t, backend.Save(ctx, "s1", map[string]any{"k": "v"}, time.Hour))
	m := NewManager(backend, time.Hour)

	s, err := m.Start(ctx, "s1")
	require.NoError(t, err)
	s.Regenerate()
	require.NoError(t, m.Save(ctx, s))

	_, err = backend.Load(ctx, "s1")
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	attrs, err := backend.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "v", attrs["k"])
}

func TestManager_BackendErrorsAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockSessionBackend(ctrl)
	boom := errors.New("connection reset")
	ctx := context.Background()

	backend.EXPECT().Load(gomock.Any(), "s1").Return(nil, boom)
	m := NewManager(backend, time.Hour)

	_, err := m.Start(ctx, "s1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load session")

	s := newSession("s2", map[string]any{"k": "v"}, false)
	backend.EXPECT().Save(gomock.Any(), "s2", map[string]any{"k": "v"}, time.Hour).Return(boom)
	err = m.Save(ctx, s)
	require.ErrorIs(t, err, boom)
}
