package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/panel-auth/config"
	"github.com/target/panel-auth/internal/adapters/memory"
	"github.com/target/panel-auth/internal/adapters/postgres"
	redisadapter "github.com/target/panel-auth/internal/adapters/redis"
	"github.com/target/panel-auth/internal/ports"
)

// SessionDeps groups what the configured session driver may need.
type SessionDeps struct {
	Session config.SessionConfig
	DB      *sql.DB
	Redis   redis.UniversalClient
	Logger  *slog.Logger
}

// SessionPurger deletes expired sessions from backends without native expiry.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// BuildSessionBackend returns the backend selected by SESSION_DRIVER.
//
//nolint:ireturn // the driver is chosen at runtime.
func BuildSessionBackend(deps SessionDeps) (ports.SessionBackend, error) {
	switch deps.Session.Driver {
	case config.SessionDriverRedis:
		if deps.Redis == nil {
			return nil, errors.New("redis session driver requires a redis client")
		}
		return redisadapter.NewSessionBackend(deps.Redis, deps.Session.KeyPrefix), nil
	case config.SessionDriverPostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres session driver requires a database")
		}
		return postgres.NewSessionBackend(deps.DB), nil
	case config.SessionDriverMemory, "":
		if deps.Logger != nil {
			deps.Logger.Warn("using in-memory sessions; sessions are lost on restart and not shared between instances")
		}
		return memory.NewSessionBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported session driver %q", deps.Session.Driver)
	}
}

// RunSessionPurger calls PurgeExpired every interval until ctx is cancelled.
// Purge failures are logged and retried on the next tick.
func RunSessionPurger(ctx context.Context, purger SessionPurger, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		return fmt.Errorf("invalid purge interval %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.ErrorContext(ctx, "purge expired sessions failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}
