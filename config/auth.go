package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultExternalAuthTimeoutSeconds = 30

// ExternalAuthConfig configures the external credential API used for login.
type ExternalAuthConfig struct {
	// APIURL is the endpoint that receives {"email","password"} POSTs.
	APIURL string `env:"API_URL,required"`

	// TimeoutSeconds bounds each outbound call.
	TimeoutSeconds int `env:"TIMEOUT" envDefault:"30"`

	// LogFailures controls logging of rejected and failed authentication calls.
	LogFailures bool `env:"LOG_FAILURES" envDefault:"true"`

	// InsecureSkipVerify disables TLS verification (development only).
	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`

	// JMESPath expressions that derive the session projections from the user attributes.
	// Empty values use the built-in defaults.
	UserIDExpr string `env:"USER_ID_EXPR"`
	EmailExpr  string `env:"EMAIL_EXPR"`
	NameExpr   string `env:"NAME_EXPR"`
	RoleExpr   string `env:"ROLE_EXPR"`
}

// Timeout returns the configured timeout as a duration.
func (c ExternalAuthConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Sanitize trims values and restores the default timeout when it is not positive.
func (c *ExternalAuthConfig) Sanitize() {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultExternalAuthTimeoutSeconds
	}
	c.UserIDExpr = strings.TrimSpace(c.UserIDExpr)
	c.EmailExpr = strings.TrimSpace(c.EmailExpr)
	c.NameExpr = strings.TrimSpace(c.NameExpr)
	c.RoleExpr = strings.TrimSpace(c.RoleExpr)
}

// Validate checks that the API URL is an absolute http(s) URL.
func (c ExternalAuthConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid EXTERNAL_AUTH_API_URL: %q (must be an absolute http or https URL)", c.APIURL)
	}
	return nil
}
