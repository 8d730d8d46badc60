package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/testutil"
)

func TestSessionBackend_SaveAndLoad(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")
	ctx := context.Background()

	attrs := map[string]any{
		domainauth.SessionKeyToken:    "t1",
		domainauth.SessionKeyUserData: map[string]any{"id": 42, "email": "a@b.com"},
		domainauth.SessionKeyUserID:   42,
	}
	require.NoError(t, backend.Save(ctx, "s1", attrs, 30*time.Minute))

	assert.True(t, mr.Exists(DefaultKeyPrefix+"s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL(DefaultKeyPrefix+"s1"))

	loaded, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t1", loaded[domainauth.SessionKeyToken])
	assert.Equal(t, json.Number("42"), loaded[domainauth.SessionKeyUserID])
	assert.Equal(t, map[string]any{"id": json.Number("42"), "email": "a@b.com"}, loaded[domainauth.SessionKeyUserData])
}

func TestSessionBackend_LoadMissing(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")

	_, err := backend.Load(context.Background(), "non-existent")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	_, err = backend.Load(context.Background(), "")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestSessionBackend_TTLExpiry(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "s1", map[string]any{"k": "v"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := backend.Load(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestSessionBackend_StaleEnvelopeIsCleanedUp(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "custom:")
	now := time.Now()
	backend.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "s1", map[string]any{"k": "v"}, time.Hour))
	now = now.Add(2 * time.Hour)

	_, err := backend.Load(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	assert.False(t, mr.Exists("custom:s1"))
}

func TestSessionBackend_Destroy(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "s1", map[string]any{"k": "v"}, time.Minute))
	require.NoError(t, backend.Destroy(ctx, "s1"))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"s1"))

	require.NoError(t, backend.Destroy(ctx, "s1"))
	require.NoError(t, backend.Destroy(ctx, ""))
}

func TestSessionBackend_SaveValidation(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")
	ctx := context.Background()

	require.Error(t, backend.Save(ctx, "", map[string]any{}, time.Minute))
	require.Error(t, backend.Save(ctx, "s1", map[string]any{}, 0))
}

func TestSessionBackend_CorruptPayload(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	backend := NewSessionBackend(client, "")

	require.NoError(t, mr.Set(DefaultKeyPrefix+"s1", "not json"))

	_, err := backend.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainauth.ErrSessionNotFound)
}
