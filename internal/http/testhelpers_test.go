package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/panel-auth/internal/adapters/memory"
	domainauth "github.com/target/panel-auth/internal/domain/auth"
	authmocks "github.com/target/panel-auth/internal/mocks/auth"
	"github.com/target/panel-auth/internal/service"
	"github.com/target/panel-auth/internal/session"
)

const (
	testEmail     = "a@b.com"
	testPassword  = "secret"
	testCSRFToken = "test-csrf-token"
)

type testApp struct {
	handler http.Handler
	backend *memory.SessionBackend
	authn   *authmocks.StubAuthenticator
}

func newTestApp(t *testing.T, mutate ...func(*RouterServices)) *testApp {
	t.Helper()

	authn := authmocks.NewStubAuthenticator(testEmail, testPassword, domainauth.AuthResult{
		Token: "t1",
		Data: map[string]any{
			"id":       json.Number("1"),
			"email":    testEmail,
			"username": "u",
			"role":     "admin",
		},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.NewAuthService(service.AuthServiceOptions{Authenticator: authn, Logger: logger})
	require.NoError(t, err)

	backend := memory.NewSessionBackend()
	services := RouterServices{
		Auth:     svc,
		Sessions: session.NewManager(backend, time.Hour),
		Logger:   logger,
	}
	for _, m := range mutate {
		m(&services)
	}

	return &testApp{handler: NewRouter(services), backend: backend, authn: authn}
}

type testRequest struct {
	method  string
	path    string
	body    string
	headers map[string]string
	cookie  *http.Cookie
	// withCSRFCookie sends the double-submit cookie holding testCSRFToken.
	withCSRFCookie bool
}

func (a *testApp) do(t *testing.T, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if tr.body != "" {
		body = strings.NewReader(tr.body)
	}
	req := httptest.NewRequest(tr.method, tr.path, body)
	for k, v := range tr.headers {
		req.Header.Set(k, v)
	}
	if tr.cookie != nil {
		req.AddCookie(tr.cookie)
	}
	if tr.withCSRFCookie {
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := a.do(t, testRequest{
		method:  http.MethodPost,
		path:    "/auth/login",
		body:    `{"email":"a@b.com","password":"secret"}`,
		headers: map[string]string{"Content-Type": "application/json"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

var (
	jsonHeaders = map[string]string{"Accept": "application/json"}
	formHeaders = map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
)

// jsonCSRFHeaders accepts JSON and echoes the CSRF token in the header.
var jsonCSRFHeaders = map[string]string{"Accept": "application/json", DefaultCSRFHeaderName: testCSRFToken}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultSessionCookieName {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seedSession(t *testing.T, backend *memory.SessionBackend, id string, attrs map[string]any) {
	t.Helper()
	require.NoError(t, backend.Save(context.Background(), id, attrs, time.Hour))
}
