package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/panel-auth/internal/session"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Sessions     *session.Manager
	CookieName   string
	CookieDomain string
	CSRFCookie   string // optional; defaults to DefaultCSRFCookieName
	LoginPath    string
	HealthChecks map[string]HealthCheck
	Logger       *slog.Logger // optional
}

// NewRouter creates the HTTP router. Auth routes run behind the Sessions
// middleware; /healthz does not touch sessions.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	health := healthHandler(services.HealthChecks, logger)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	authHandlers := &AuthHandlers{Svc: services.Auth, LoginPath: services.LoginPath, Logger: logger}
	registerAuthRoutes(mux, authHandlers, SessionConfig{
		Manager:      services.Sessions,
		CookieName:   services.CookieName,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}, CSRFConfig{
		CookieName:   services.CSRFCookie,
		CookieDomain: services.CookieDomain,
	})

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, cfg SessionConfig, csrfCfg CSRFConfig) {
	withSession := Sessions(cfg)
	withCSRF := CSRFProtection(csrfCfg)
	requireAuth := RequireAuth(h.loginPath())

	mux.Handle("GET /auth/csrf", withCSRF(http.HandlerFunc(h.CSRF)))
	mux.Handle("POST /auth/login", withCSRF(withSession(http.HandlerFunc(h.Login))))
	mux.Handle("POST /auth/logout", withCSRF(withSession(http.HandlerFunc(h.Logout))))
	mux.Handle("GET /auth/status", withSession(http.HandlerFunc(h.Status)))
	mux.Handle("GET /auth/me", withSession(requireAuth(http.HandlerFunc(h.Me))))
}
