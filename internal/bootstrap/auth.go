package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/panel-auth/config"
	"github.com/target/panel-auth/internal/adapters/externalapi"
	"github.com/target/panel-auth/internal/observability/statsd"
	"github.com/target/panel-auth/internal/service"
)

// AuthConfig contains configuration for the auth service.
type AuthConfig struct {
	Auth    config.ExternalAuthConfig
	Metrics statsd.Sink // optional
	Logger  *slog.Logger
}

// BuildAuthService wires the external API client into the login service.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := externalapi.NewClient(externalapi.Config{
		APIURL:             cfg.Auth.APIURL,
		Timeout:            cfg.Auth.Timeout(),
		LogFailures:        cfg.Auth.LogFailures,
		InsecureSkipVerify: cfg.Auth.InsecureSkipVerify,
		Logger:             logger,
		Metrics:            cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build external auth client: %w", err)
	}

	if cfg.Auth.InsecureSkipVerify {
		logger.Warn("external auth TLS verification disabled", "endpoint", cfg.Auth.APIURL)
	}

	svc, err := service.NewAuthService(service.AuthServiceOptions{
		Authenticator: client,
		Projections: service.Projections{
			UserID: cfg.Auth.UserIDExpr,
			Email:  cfg.Auth.EmailExpr,
			Name:   cfg.Auth.NameExpr,
			Role:   cfg.Auth.RoleExpr,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}
	return svc, nil
}

// BuildMetricsClient returns a StatsD client when metrics are enabled, or nil.
func BuildMetricsClient(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
