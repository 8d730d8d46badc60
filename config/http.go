package config

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CSRFCookieName names the double-submit cookie guarding form posts to
	// login and logout.
	CSRFCookieName string `env:"APP_CSRF_COOKIE_NAME" envDefault:"csrf_token"`

	// LoginPath is where unauthenticated browser requests are redirected.
	LoginPath string `env:"APP_LOGIN_PATH" envDefault:"/login"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	h.CSRFCookieName = strings.TrimSpace(h.CSRFCookieName)
	h.LoginPath = strings.TrimSpace(h.LoginPath)
	if h.LoginPath == "" || !strings.HasPrefix(h.LoginPath, "/") {
		h.LoginPath = "/login"
	}
}

// Validate rejects a cookie domain that is itself a public suffix, which
// browsers refuse and which would otherwise scope the cookie to every site
// under that suffix.
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain == "" || h.CookieDomain == "localhost" {
		return nil
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(h.CookieDomain); err != nil {
		return fmt.Errorf("invalid APP_COOKIE_DOMAIN %q: %w", h.CookieDomain, err)
	}
	return nil
}
