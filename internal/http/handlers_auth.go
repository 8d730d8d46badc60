package httpx

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
	apperrors "github.com/target/panel-auth/internal/errors"
	"github.com/target/panel-auth/internal/ports"
	"github.com/target/panel-auth/internal/service"
)

// Messages shown to users. Upstream detail is never included.
const (
	msgInvalidCredentials = "These credentials do not match our records."
	msgMissingCredentials = "The email and password fields are required."

	loginErrorField = "data.email"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, store ports.SessionStore, email, password string) (*domainauth.Identity, error)
	Logout(ctx context.Context, guard ports.AuthGuard)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc       AuthServiceInterface
	LoginPath string // browser redirect target after logout and failed form logins
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) loginPath() string {
	if h.LoginPath != "" {
		return h.LoginPath
	}
	return "/login"
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri"`
}

// Login authenticates credentials against the external API and stores the
// identity in the session.
// POST /auth/login (JSON or form-encoded).
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	sess, guard, ok := requestSession(w, r)
	if !ok {
		return
	}

	isJSON := isJSONBody(r)
	var req loginRequest
	if isJSON {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
		req.RedirectURI = r.PostForm.Get("redirect_uri")
	}
	redirectURI := safeRedirectPath(req.RedirectURI)

	user, err := h.Svc.Login(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		h.loginFailed(w, r, loginFailure{err: err, browser: !isJSON && !wantsJSON(r), redirectURI: redirectURI})
		return
	}

	// New identifier after privilege change.
	sess.Regenerate()
	guard.SetUser(user)

	if isJSON || wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          userSummary(user),
			"redirect_to":   redirectURI,
		})
		return
	}
	http.Redirect(w, r, redirectURI, http.StatusSeeOther)
}

type loginFailure struct {
	err         error
	browser     bool
	redirectURI string
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, f loginFailure) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(f.err, service.ErrMissingCredentials):
		appErr = apperrors.ValidationField(loginErrorField, msgMissingCredentials)
	case errors.Is(f.err, service.ErrAuthenticationFailed):
		appErr = apperrors.ValidationField(loginErrorField, msgInvalidCredentials)
	default:
		h.logger().ErrorContext(r.Context(), "login failed", "error", f.err)
		WriteAppError(w, f.err)
		return
	}

	if f.browser {
		u := url.URL{Path: h.loginPath()}
		q := url.Values{}
		q.Set("error", appErr.Message)
		q.Set("redirect_uri", f.redirectURI)
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusSeeOther)
		return
	}
	WriteAppError(w, appErr)
}

// Logout clears the guard's session keys and rotates the session identifier.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess, guard, ok := requestSession(w, r)
	if !ok {
		return
	}

	h.Svc.Logout(r.Context(), guard)
	sess.Regenerate()

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": h.loginPath(),
		})
		return
	}
	http.Redirect(w, r, h.loginPath(), http.StatusSeeOther)
}

// CSRF returns the token that form posts to login and logout must echo in
// the csrf_token field. The matching cookie is set by CSRFProtection.
// GET /auth/csrf.
func (h *AuthHandlers) CSRF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": GetCSRFToken(r)})
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	guard, ok := GetGuardFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	user, authenticated := guard.CurrentUser()
	if !authenticated || !guard.Validate() {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          userSummary(user),
	})
}

// Me returns the full attribute mapping of the authenticated user.
// GET /auth/me (behind RequireAuth).
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	guard, ok := GetGuardFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Unauthorized("authentication required"))
		return
	}
	user, ok := guard.CurrentUser()
	if !ok {
		WriteAppError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	id, _ := user.Identifier()
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"attributes": user.RawAttributes(),
	})
}

func userSummary(user *domainauth.Identity) map[string]any {
	id, _ := user.Identifier()
	return map[string]any{
		"id":    id,
		"email": user.Email(),
		"name":  user.DisplayName(),
		"role":  user.Role(),
	}
}

// requestSession fetches the session and guard installed by the Sessions
// middleware, writing a 500 when the route was mounted without it.
func requestSession(w http.ResponseWriter, r *http.Request) (sessionStore, ports.AuthGuard, bool) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Internal("session middleware not installed"))
		return nil, nil, false
	}
	guard, ok := GetGuardFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Internal("session middleware not installed"))
		return nil, nil, false
	}
	return sess, guard, true
}

// sessionStore is the part of *session.Session the handlers use.
type sessionStore interface {
	ports.SessionStore
	Regenerate()
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
