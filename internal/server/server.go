package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leadbox/leadbox/internal/handler"
	"github.com/leadbox/leadbox/internal/server/middleware"
	"github.com/leadbox/leadbox/internal/service"
	"github.com/leadbox/leadbox/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	// CORSOrigins may embed the contact form. Empty disables CORS.
	CORSOrigins []string
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that sets these headers.
	TrustProxy     bool
	CookieSecure   bool
	LoginPerMinute int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		CookieSecure:    true,
		LoginPerMinute:  10,
	}
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store    *store.Store
	Auth     *service.AuthService
	Limiter  middleware.Limiter
	Renderer handler.Renderer
	Backup   handler.BackupTrigger
	// OpenAPI is served at /openapi.json when set.
	OpenAPI *openapi3.T
}

// Server is the top-level HTTP server. It owns the Chi router and the
// collaborators every request is dispatched to.
type Server struct {
	cfg        Config
	deps       Deps
	sessions   *middleware.Sessions
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		sessions: middleware.NewSessions(deps.Auth, cfg.CookieSecure),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)

	contactHandler := handler.NewContactHandler(s.deps.Store, s.deps.Renderer, s.logger)
	adminHandler := handler.NewAdminHandler(s.deps.Store, s.deps.Auth, s.sessions, s.deps.Renderer, s.logger)
	backupHandler := handler.NewBackupHandler(s.deps.Auth, s.deps.Backup, s.logger)
	healthHandler := handler.NewHealthHandler(s.deps.Store)

	// --- Health checks (no auth required) ---
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	if s.deps.OpenAPI != nil {
		r.Get("/openapi.json", handler.NewOpenAPIHandler(s.deps.OpenAPI).ServeSpec)
	}

	// --- Public pages and API ---
	r.Get("/", contactHandler.Home)
	r.Route("/contact", func(r chi.Router) {
		if len(s.cfg.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.cfg.CORSOrigins,
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
				ExposedHeaders: []string{"X-Request-ID"},
				MaxAge:         300,
			}))
		}
		// Throttled before validation: a rejected submission still uses the slot.
		r.With(middleware.Throttle(s.deps.Limiter, s.logger)).Post("/", contactHandler.Submit)
	})

	// --- Admin ---
	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", adminHandler.LoginPage)
		if s.cfg.LoginPerMinute > 0 {
			r.With(middleware.LoginRateLimit(s.cfg.LoginPerMinute)).Post("/login", adminHandler.Login)
		} else {
			r.Post("/login", adminHandler.Login)
		}

		// Authorized by pre-shared key rather than session.
		r.Get("/backup", backupHandler.Trigger)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.sessions, handler.LoginPath))

			r.Get("/", adminHandler.Dashboard)
			r.Get("/mark/{id}", adminHandler.MarkContacted)
			r.Get("/delete/{id}", adminHandler.Delete)
			r.Get("/download", adminHandler.Download)
			r.Get("/logout", adminHandler.Logout)
		})
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests. Backups already running in the background are not waited for.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
