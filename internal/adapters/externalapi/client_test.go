package externalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, opts ...func(*Config)) (*Client, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	cfg := Config{
		APIURL:      url,
		Timeout:     5 * time.Second,
		LogFailures: true,
		Logger:      slog.New(slog.NewJSONHandler(&logs, nil)),
	}
	for _, o := range opts {
		o(&cfg)
	}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client, &logs
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{APIURL: "not a url"})
	require.Error(t, err)

	_, err = NewClient(Config{APIURL: "ftp://idp.example.com/auth"})
	require.Error(t, err)

	client, err := NewClient(Config{APIURL: "https://idp.example.com/auth"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, client.timeout)
}

func TestAuthenticate_NestedFormat(t *testing.T) {
	server := jsonServer(t, http.StatusOK,
		`{"token":"t1","data":{"id":1,"email":"a@b.com","username":"u"}}`)
	client, _ := newTestClient(t, server.URL)

	result, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	require.True(t, ok)
	assert.Equal(t, "t1", result.Token)
	assert.Equal(t, map[string]any{
		"id":       json.Number("1"),
		"email":    "a@b.com",
		"username": "u",
	}, result.Data)
}

func TestAuthenticate_FlatLegacyFormat(t *testing.T) {
	server := jsonServer(t, http.StatusOK,
		`{"token":"t1","username":"u","email":"a@b.com","role":"admin"}`)
	client, _ := newTestClient(t, server.URL)

	result, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	require.True(t, ok)
	assert.Equal(t, "t1", result.Token)
	assert.Equal(t, map[string]any{
		"token":    "t1",
		"username": "u",
		"email":    "a@b.com",
		"role":     "admin",
	}, result.Data)
}

func TestAuthenticate_UnrecognizedShapePassesThroughWithoutToken(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"invalid":"response"}`)
	client, logs := newTestClient(t, server.URL)

	result, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	require.True(t, ok)
	assert.Empty(t, result.Token)
	assert.Equal(t, map[string]any{"invalid": "response"}, result.Data)
	assert.Contains(t, logs.String(), "without a token")
}

func TestAuthenticate_NoResult(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"invalid credentials", http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
		{"server error", http.StatusInternalServerError, `Server Error`},
		{"redirect status", http.StatusFound, `{"token":"t1","data":{"id":1}}`},
		{"empty object", http.StatusOK, `{}`},
		{"empty body", http.StatusOK, ``},
		{"json array", http.StatusOK, `[{"token":"t1"}]`},
		{"json string", http.StatusOK, `"ok"`},
		{"invalid json", http.StatusOK, `invalid json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, tt.status, tt.body)
			client, logs := newTestClient(t, server.URL)

			result, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

			assert.False(t, ok)
			assert.Empty(t, result.Token)
			assert.Nil(t, result.Data)
			assert.Contains(t, logs.String(), "external API authentication failed")
		})
	}
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, logs := newTestClient(t, url)

	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
	assert.Contains(t, logs.String(), "external API authentication error")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestAuthenticate_TimeoutIsRespected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"late","data":{"id":1}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, func(c *Config) { c.Timeout = 100 * time.Millisecond })

	start := time.Now()
	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAuthenticate_SendsExpectedRequest(t *testing.T) {
	var got struct {
		method      string
		accept      string
		contentType string
		body        map[string]string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.accept = r.Header.Get("Accept")
		got.contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"test-token","data":{"id":1}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	_, ok := client.Authenticate(context.Background(), "test@example.com", "password123")

	require.True(t, ok)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.accept)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, map[string]string{"email": "test@example.com", "password": "password123"}, got.body)
}

func TestAuthenticate_EveryCallHitsUpstream(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	for range 3 {
		_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")
		assert.False(t, ok)
	}

	assert.Equal(t, int32(3), calls.Load())
}

func TestAuthenticate_LoggingCanBeDisabled(t *testing.T) {
	server := jsonServer(t, http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
	client, logs := newTestClient(t, server.URL, func(c *Config) { c.LogFailures = false })

	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
	assert.Empty(t, logs.String())
}

func TestAuthenticate_LogsTruncatedBody(t *testing.T) {
	long := bytes.Repeat([]byte("x"), maxLoggedBody*2)
	server := jsonServer(t, http.StatusBadGateway, string(long))
	client, logs := newTestClient(t, server.URL)

	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
	assert.Contains(t, logs.String(), `"status":502`)
	assert.NotContains(t, logs.String(), string(long))
}

func TestAuthenticate_LogsValidUTF8WhenTruncating(t *testing.T) {
	body := strings.Repeat("é", maxLoggedBody)
	server := jsonServer(t, http.StatusBadGateway, body)
	client, logs := newTestClient(t, server.URL)

	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
	assert.True(t, utf8.ValidString(logs.String()))
	assert.NotContains(t, logs.String(), `\ufffd`)
	assert.NotContains(t, logs.String(), body)
}

func TestAuthenticate_TrailingGarbageIsNoResult(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"token":"t","data":{"id":1}}garbage`)
	client, _ := newTestClient(t, server.URL)

	_, ok := client.Authenticate(context.Background(), "a@b.com", "secret")

	assert.False(t, ok)
}

func TestTruncateForLog(t *testing.T) {
	short := []byte("ok")
	assert.Equal(t, "ok", truncateForLog(short))

	ascii := bytes.Repeat([]byte("a"), maxLoggedBody+10)
	assert.Equal(t, strings.Repeat("a", maxLoggedBody)+"...", truncateForLog(ascii))

	// "é" is two bytes, so an odd prefix lands mid-rune.
	multi := []byte("a" + strings.Repeat("é", maxLoggedBody))
	got := truncateForLog(multi)
	require.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxLoggedBody+len("..."))
}
