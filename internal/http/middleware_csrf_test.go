package httpx

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfHandler(cfg CSRFConfig) http.Handler {
	return CSRFProtection(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(GetCSRFToken(r)))
	}))
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	resp := rec.Result()
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFProtection_GetIssuesToken(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler(CSRFConfig{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	c := csrfCookie(t, rec)
	if c == nil || c.Value == "" {
		t.Fatal("CSRF cookie not set")
	}
	if rec.Body.String() != c.Value {
		t.Errorf("context token %q does not match cookie %q", rec.Body.String(), c.Value)
	}
	if c.HttpOnly {
		t.Error("CSRF cookie must be readable by the login page")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("expected SameSite=Strict, got %v", c.SameSite)
	}
}

func TestCSRFProtection_ExistingCookieIsReused(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "existing"})
	rec := httptest.NewRecorder()

	csrfHandler(CSRFConfig{}).ServeHTTP(rec, req)

	if c := csrfCookie(t, rec); c != nil {
		t.Errorf("cookie should not be reissued, got %q", c.Value)
	}
	if rec.Body.String() != "existing" {
		t.Errorf("expected context token %q, got %q", "existing", rec.Body.String())
	}
}

func TestCSRFProtection_Validation(t *testing.T) {
	form := func(vals url.Values) string { return vals.Encode() }

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		cookie      string
		header      string
		want        int
	}{
		{"post without anything", http.MethodPost, "", "", "", "", http.StatusForbidden},
		{"post with cookie only", http.MethodPost, "", "", "tok", "", http.StatusForbidden},
		{"valid header", http.MethodPost, "", "", "tok", "tok", http.StatusOK},
		{"mismatched header", http.MethodPost, "", "", "tok", "other", http.StatusForbidden},
		{"header wins over form field", http.MethodPost, "application/x-www-form-urlencoded",
			form(url.Values{"csrf_token": {"tok"}}), "tok", "other", http.StatusForbidden},
		{"valid form field", http.MethodPost, "application/x-www-form-urlencoded",
			form(url.Values{"csrf_token": {"tok"}, "email": {"a@b.com"}}), "tok", "", http.StatusOK},
		{"mismatched form field", http.MethodPost, "application/x-www-form-urlencoded",
			form(url.Values{"csrf_token": {"other"}}), "tok", "", http.StatusForbidden},
		{"form field ignored for text body", http.MethodPost, "text/plain",
			"csrf_token=tok", "tok", "", http.StatusForbidden},
		{"json body exempt", http.MethodPost, "application/json", `{"email":"a@b.com"}`, "", "", http.StatusOK},
		{"json with charset exempt", http.MethodPost, "application/json; charset=utf-8", `{}`, "", "", http.StatusOK},
		{"head exempt", http.MethodHead, "", "", "", "", http.StatusOK},
		{"options exempt", http.MethodOptions, "", "", "", "", http.StatusOK},
		{"delete checked", http.MethodDelete, "", "", "tok", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/auth/login", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(DefaultCSRFHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()

			csrfHandler(CSRFConfig{}).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want == http.StatusForbidden && !strings.Contains(rec.Body.String(), `"error":"csrf_failed"`) {
				t.Errorf("unexpected 403 body: %s", rec.Body.String())
			}
		})
	}
}

func TestCSRFProtection_FormStillReadableDownstream(t *testing.T) {
	var email string
	handler := CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		email = r.PostForm.Get("email")
	}))

	body := url.Values{"csrf_token": {"tok"}, "email": {"a@b.com"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})

	handler.ServeHTTP(httptest.NewRecorder(), req)

	if email != "a@b.com" {
		t.Errorf("expected email to reach the handler, got %q", email)
	}
}

func TestCSRFProtection_CookieAttributes(t *testing.T) {
	tests := []struct {
		name       string
		tls        bool
		forwarded  string
		wantSecure bool
	}{
		{"plain http", false, "", false},
		{"tls", true, "", true},
		{"forwarded https", false, "https", true},
		{"forwarded list", false, "http, https", true},
		{"forwarded http", false, "http", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			rec := httptest.NewRecorder()

			csrfHandler(CSRFConfig{CookieDomain: "panel.example.com"}).ServeHTTP(rec, req)

			c := csrfCookie(t, rec)
			if c == nil {
				t.Fatal("CSRF cookie not set")
			}
			if c.Secure != tt.wantSecure {
				t.Errorf("expected Secure=%v, got %v", tt.wantSecure, c.Secure)
			}
			if c.Domain != "panel.example.com" {
				t.Errorf("expected domain panel.example.com, got %q", c.Domain)
			}
			if c.MaxAge != csrfCookieMaxAge {
				t.Errorf("expected MaxAge %d, got %d", csrfCookieMaxAge, c.MaxAge)
			}
		})
	}
}

func TestCSRFProtection_CustomNames(t *testing.T) {
	cfg := CSRFConfig{CookieName: "xsrf", HeaderName: "X-Xsrf", FormFieldName: "_token"}
	handler := csrfHandler(cfg)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("_token=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "xsrf", Value: "abc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("form field: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Xsrf", "abc")
	req.AddCookie(&http.Cookie{Name: "xsrf", Value: "abc"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("header: expected 200, got %d", rec.Code)
	}
}

func TestGetCSRFToken_NoToken(t *testing.T) {
	if got := GetCSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
