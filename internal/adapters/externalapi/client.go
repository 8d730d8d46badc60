// Package externalapi authenticates panel users against an external HTTP credential API.
package externalapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	"github.com/target/panel-auth/internal/observability/metrics"
	"github.com/target/panel-auth/internal/observability/statsd"
	"github.com/target/panel-auth/internal/ports"
)

const (
	// DefaultTimeout bounds the outbound call when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
	maxLoggedBody    = 512
)

var _ ports.Authenticator = (*Client)(nil)

// Config holds configuration for the external authentication client.
type Config struct {
	APIURL             string
	Timeout            time.Duration
	LogFailures        bool
	InsecureSkipVerify bool
	HTTPClient         *http.Client // Optional, built from Timeout/InsecureSkipVerify when nil
	Logger             *slog.Logger
	Metrics            statsd.Sink
}

// Client posts credentials to the configured endpoint and normalizes the response.
// It is safe for concurrent use; every call issues exactly one request.
type Client struct {
	apiURL      string
	timeout     time.Duration
	logFailures bool
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("api url is required")
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", cfg.APIURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		// #nosec G402 -- InsecureSkipVerify is user-configurable for development/testing
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiURL:      cfg.APIURL,
		timeout:     timeout,
		logFailures: cfg.LogFailures,
		httpClient:  httpClient,
		logger:      logger.With("component", "external_auth"),
		metrics:     cfg.Metrics,
	}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate verifies credentials against the external API. The boolean is
// false on any failure: transport errors, non-2xx statuses and unusable bodies
// all collapse to the same outcome.
func (c *Client) Authenticate(ctx context.Context, email, password string) (domainauth.AuthResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, body, err := c.post(ctx, credentials{Email: email, Password: password})
	elapsed := time.Since(start)

	if err != nil {
		c.emit(metrics.AuthAttempt{Outcome: metrics.OutcomeTransportError, Duration: elapsed, Err: err})
		if c.logFailures {
			c.logger.ErrorContext(ctx, "external API authentication error",
				"endpoint", c.apiURL,
				"email", email,
				"error", err,
			)
		}
		return domainauth.AuthResult{}, false
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.emit(metrics.AuthAttempt{Outcome: metrics.OutcomeRejected, Status: status, Duration: elapsed})
		c.logRejected(ctx, email, status, body)
		return domainauth.AuthResult{}, false
	}

	result, shape := normalize(body)
	if shape == shapeNone {
		c.emit(metrics.AuthAttempt{Outcome: metrics.OutcomeMalformed, Status: status, Duration: elapsed})
		c.logRejected(ctx, email, status, body)
		return domainauth.AuthResult{}, false
	}

	if shape == shapePassthrough && c.logFailures {
		c.logger.WarnContext(ctx, "external API response has no recognized shape; passing body through without a token",
			"endpoint", c.apiURL,
			"email", email,
		)
	}

	c.emit(metrics.AuthAttempt{Outcome: metrics.OutcomeSuccess, Status: status, Duration: elapsed})
	return result, true
}

func (c *Client) post(ctx context.Context, creds credentials) (int, []byte, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("post credentials: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logRejected(ctx context.Context, email string, status int, body []byte) {
	if !c.logFailures {
		return
	}
	preview := truncateForLog(body)
	c.logger.WarnContext(ctx, "external API authentication failed",
		"endpoint", c.apiURL,
		"email", email,
		"status", status,
		"response", preview,
	)
}

func (c *Client) emit(in metrics.AuthAttempt) {
	if c.metrics == nil {
		return
	}
	metrics.EmitAuthAttempt(c.metrics, in)
}

// truncateForLog caps body at maxLoggedBody bytes without splitting a UTF-8 sequence.
func truncateForLog(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	cut := maxLoggedBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
