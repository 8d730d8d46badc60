package redis

// Package redis provides Redis-based adapters for panel session storage.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/ports"
)

// DefaultKeyPrefix namespaces session keys when no prefix is configured.
const DefaultKeyPrefix = "panel_session:"

var _ ports.SessionBackend = (*SessionBackend)(nil)

// SessionBackend stores session payloads as JSON strings with a Redis TTL.
type SessionBackend struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// envelope is the stored representation of a session.
type envelope struct {
	Attributes map[string]any `json:"attributes"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

// NewSessionBackend creates a Redis session backend. An empty prefix uses DefaultKeyPrefix.
func NewSessionBackend(client redis.UniversalClient, prefix string) *SessionBackend {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionBackend{client: client, prefix: prefix, now: time.Now}
}

func (s *SessionBackend) Save(ctx context.Context, id string, attrs map[string]any, ttl time.Duration) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	data, err := json.Marshal(envelope{Attributes: attrs, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SessionBackend) Load(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, domainauth.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	// Numbers stay json.Number so identifiers keep their exact representation.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if !env.ExpiresAt.IsZero() && s.now().After(env.ExpiresAt) {
		if err := s.Destroy(ctx, id); err != nil {
			return nil, fmt.Errorf("cleanup expired session: %w", err)
		}
		return nil, domainauth.ErrSessionNotFound
	}

	if env.Attributes == nil {
		env.Attributes = make(map[string]any)
	}
	return env.Attributes, nil
}

func (s *SessionBackend) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
