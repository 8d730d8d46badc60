package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionDriver selects where session data is stored.
type SessionDriver string

const (
	// SessionDriverMemory keeps sessions in process memory (single instance only).
	SessionDriverMemory SessionDriver = "memory"
	// SessionDriverRedis stores sessions in Redis.
	SessionDriverRedis SessionDriver = "redis"
	// SessionDriverPostgres stores sessions in the sessions table.
	SessionDriverPostgres SessionDriver = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionDriver.
func (d *SessionDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis", "postgres":
		*d = SessionDriver(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionDriver: %q (valid options: memory, redis, postgres)", v)
	}
}

const (
	defaultSessionCookieName = "panel_session"
	defaultSessionLifetime   = 120 * time.Minute
	defaultSessionKeyPrefix  = "panel_session:"
	minSessionPurgeInterval  = time.Minute
)

// SessionConfig controls session storage and the session cookie.
type SessionConfig struct {
	Driver     SessionDriver `env:"DRIVER"      envDefault:"memory"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"panel_session"`
	Lifetime   time.Duration `env:"LIFETIME"    envDefault:"120m"`
	// KeyPrefix namespaces session keys in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"panel_session:"`
	// PurgeInterval controls how often expired rows are deleted (postgres driver only).
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"10m"`
}

// Sanitize restores defaults for empty or out-of-range values.
func (c *SessionConfig) Sanitize() {
	if c.Driver == "" {
		c.Driver = SessionDriverMemory
	}
	c.CookieName = strings.TrimSpace(c.CookieName)
	if c.CookieName == "" {
		c.CookieName = defaultSessionCookieName
	}
	if c.Lifetime <= 0 {
		c.Lifetime = defaultSessionLifetime
	}
	if strings.TrimSpace(c.KeyPrefix) == "" {
		c.KeyPrefix = defaultSessionKeyPrefix
	}
	if c.PurgeInterval < minSessionPurgeInterval {
		c.PurgeInterval = minSessionPurgeInterval
	}
}
