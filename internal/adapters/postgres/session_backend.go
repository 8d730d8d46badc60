package postgres

// Package postgres provides a PostgreSQL session backend over database/sql and the pgx driver.

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	apperrors "github.com/target/panel-auth/internal/errors"
	"github.com/target/panel-auth/internal/ports"
)

var _ ports.SessionBackend = (*SessionBackend)(nil)

const (
	selectSessionSQL = `SELECT payload, expires_at FROM sessions WHERE id = $1`
	upsertSessionSQL = `
		INSERT INTO sessions (id, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = now()`
	deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`
	purgeSessionsSQL = `DELETE FROM sessions WHERE expires_at <= $1`
)

// SessionBackend stores sessions in the sessions table (see internal/migrate).
type SessionBackend struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionBackend creates a PostgreSQL session backend.
func NewSessionBackend(db *sql.DB) *SessionBackend {
	return &SessionBackend{db: db, now: time.Now}
}

func (s *SessionBackend) Load(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, domainauth.ErrSessionNotFound
	}

	var (
		payload   []byte
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx, selectSessionSQL, id).Scan(&payload, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", apperrors.MapDBError(err))
	}

	if !s.now().Before(expiresAt) {
		if err := s.Destroy(ctx, id); err != nil {
			return nil, fmt.Errorf("cleanup expired session: %w", err)
		}
		return nil, domainauth.ErrSessionNotFound
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return attrs, nil
}

func (s *SessionBackend) Save(ctx context.Context, id string, attrs map[string]any, ttl time.Duration) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, upsertSessionSQL, id, payload, s.now().Add(ttl)); err != nil {
		return fmt.Errorf("save session: %w", apperrors.MapDBError(err))
	}
	return nil
}

func (s *SessionBackend) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, deleteSessionSQL, id); err != nil {
		return fmt.Errorf("destroy session: %w", apperrors.MapDBError(err))
	}
	return nil
}

// PurgeExpired deletes every session whose expiry has passed and returns how many were removed.
func (s *SessionBackend) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, purgeSessionsSQL, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
