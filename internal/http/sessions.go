package httpx

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/target/panel-auth/internal/errors"
	"github.com/target/panel-auth/internal/service"
	"github.com/target/panel-auth/internal/session"
)

// DefaultSessionCookieName is used when no cookie name is configured.
const DefaultSessionCookieName = "panel_session"

// SessionConfig configures the Sessions middleware.
type SessionConfig struct {
	Manager      *session.Manager
	CookieName   string
	CookieDomain string
	Logger       *slog.Logger
}

// Sessions returns a middleware that loads the request's session from its
// cookie, attaches the session and a fresh auth guard to the request context,
// and persists the session before the first response byte is written.
func Sessions(cfg SessionConfig) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = DefaultSessionCookieName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var incoming string
			if c, err := r.Cookie(name); err == nil {
				incoming = c.Value
			}

			sess, err := cfg.Manager.Start(r.Context(), incoming)
			if err != nil {
				logger.ErrorContext(r.Context(), "session load failed", "error", err)
				WriteAppError(w, err)
				return
			}

			sw := &sessionWriter{
				ResponseWriter: w,
				r:              r,
				cfg:            cfg,
				name:           name,
				incoming:       incoming,
				sess:           sess,
				logger:         logger,
			}

			ctx := SetSessionInContext(r.Context(), sess)
			ctx = SetGuardInContext(ctx, service.NewSessionGuard(sess))
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.finish()
		})
	}
}

// sessionWriter saves the session and writes its cookie exactly once, just
// before headers are sent. When the save fails the handler's response is
// replaced by a 500 so clients never see a success without a session.
type sessionWriter struct {
	http.ResponseWriter
	r         *http.Request
	cfg       SessionConfig
	name      string
	incoming  string
	sess      *session.Session
	logger    *slog.Logger
	committed bool
	saveErr   error
	failed    bool
}

func (w *sessionWriter) WriteHeader(status int) {
	if w.commit() != nil {
		w.fail()
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if w.commit() != nil {
		w.fail()
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// finish runs after the handler returns.
func (w *sessionWriter) finish() {
	if w.commit() != nil {
		w.fail()
	}
}

func (w *sessionWriter) commit() error {
	if w.committed {
		return w.saveErr
	}
	w.committed = true

	if err := w.cfg.Manager.Save(w.r.Context(), w.sess); err != nil {
		w.logger.ErrorContext(w.r.Context(), "session save failed", "error", err)
		w.saveErr = err
		return err
	}

	switch {
	case w.sess.Len() > 0:
		w.setCookie(w.sess.ID(), int(w.cfg.Manager.Lifetime()/time.Second))
	case w.incoming != "":
		w.setCookie("", -1)
	}
	return nil
}

// fail writes the 500 once and drops whatever the handler writes afterwards.
func (w *sessionWriter) fail() {
	if w.failed {
		return
	}
	w.failed = true
	w.ResponseWriter.Header().Del("Location")
	WriteAppError(w.ResponseWriter, apperrors.Internal("session could not be saved"))
}

func (w *sessionWriter) setCookie(value string, maxAge int) {
	c := &http.Cookie{
		Name:     w.name,
		Value:    value,
		Path:     "/",
		Domain:   w.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(w.r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w.ResponseWriter, c)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}
