package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/panel-auth/config"
	httpx "github.com/target/panel-auth/internal/http"
	"github.com/target/panel-auth/internal/session"
	"golang.org/x/sync/errgroup"
)

// infrastructure holds the connections opened for the configured session driver.
type infrastructure struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (i *infrastructure) Close() error {
	var errs []error
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// healthChecks checks whichever connections are open.
func (i *infrastructure) healthChecks() map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck)
	if i.redis != nil {
		client := i.redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if i.db != nil {
		db := i.db
		checks["postgres"] = db.PingContext
	}
	return checks
}

func connectInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	switch cfg.Session.Driver {
	case config.SessionDriverRedis:
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.redis = client
	case config.SessionDriverPostgres:
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.db = db

		if !cfg.Postgres.RunMigrationsOnStart {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
			break
		}
		if err := RunMigrations(ctx, db, logger); err != nil {
			return nil, errors.Join(err, infra.Close())
		}
	}
	return infra, nil
}

// Run wires every component from cfg and serves HTTP until ctx is cancelled
// or a component fails.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "starting panel-auth",
		"session_driver", cfg.Session.Driver,
		"external_auth_endpoint", cfg.Auth.APIURL,
		"dev", cfg.IsDev,
	)

	infra, err := connectInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure failed", "error", cerr)
		}
	}()

	authCfg := AuthConfig{Auth: cfg.Auth, Logger: logger}
	if metricsClient := BuildMetricsClient(cfg.Observability.Metrics, logger); metricsClient != nil {
		defer func() { _ = metricsClient.Close() }()
		authCfg.Metrics = metricsClient
	}

	authSvc, err := BuildAuthService(authCfg)
	if err != nil {
		return err
	}

	backend, err := BuildSessionBackend(SessionDeps{
		Session: cfg.Session,
		DB:      infra.db,
		Redis:   infra.redis,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	server := NewHTTPServer(HTTPServerConfig{
		Config:       cfg,
		Auth:         authSvc,
		Sessions:     session.NewManager(backend, cfg.Session.Lifetime),
		HealthChecks: infra.healthChecks(),
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ServeHTTP(gctx, server, logger) })

	if purger, ok := backend.(SessionPurger); ok {
		g.Go(func() error { return RunSessionPurger(gctx, purger, cfg.Session.PurgeInterval, logger) })
	}

	return g.Wait()
}
