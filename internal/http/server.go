package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bilancio/internal/core"
	"bilancio/internal/export"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/services"
)

// Budget is what the API needs from the budget service.
type Budget interface {
	core.Persistence
	Report(ctx context.Context, year int) (*services.YearReport, error)
	Ready(ctx context.Context) error
}

// Options configures the API server. WriteRateLimit is the per-client
// budget of mutating requests per minute; zero disables limiting.
type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	WriteRateLimit     int
	SessionIdleTimeout time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	budget   Budget
	sessions *SessionRegistry
	exporter *export.Exporter
	limiter  *ratelimit.Limiter
	logger   *applog.Logger

	shutdownOnce sync.Once
}

func NewServer(budget Budget, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		budget:   budget,
		sessions: NewSessionRegistry(budget, opts.SessionIdleTimeout, opts.Logger),
		exporter: export.NewExporter(),
		logger:   opts.Logger.WithComponent(applog.ComponentHTTP),
	}
	if opts.WriteRateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{Limit: opts.WriteRateLimit, Window: time.Minute})
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// sweep at a fraction of the timeout so sessions expire close to on time
	sweep := s.sessions.idleTimeout / 4
	if sweep < time.Second {
		sweep = time.Second
	}
	s.sessions.StartSweeper(sweep)
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(opts.Logger))
	r.Use(applog.RequestIDMiddleware)
	r.Use(applog.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w, r)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			resolver := security.NewClientIPResolver()
			r.Use(s.limiter.Middleware(resolver.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w, r)
			}))
		}

		r.Get("/hierarchy", s.handleHierarchy)

		r.Route("/years/{year}", func(r chi.Router) {
			r.Get("/values", s.handleGetValues)
			r.Get("/notes", s.handleGetNotes)
			r.Get("/rollup", s.handleRollup)
			r.Get("/cashflow", s.handleCashflow)
			r.Get("/variance", s.handleVariance)
			r.Get("/export.xlsx", s.handleExport)
		})

		r.Route("/components/{id}/years/{year}", func(r chi.Router) {
			r.Put("/values", s.handlePutValues)
			r.Put("/notes", s.handlePutNotes)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/cashflow-anchor", s.handleGetAnchor)
			r.Put("/cashflow-anchor", s.handlePutAnchor)
			r.Get("/actuals-cutoff", s.handleGetCutoff)
			r.Put("/actuals-cutoff", s.handlePutCutoff)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCloseSession)
				r.Post("/begin", s.handleBegin)
				r.Post("/keystroke", s.handleKeystroke)
				r.Post("/notes", s.handleSetNote)
				r.Post("/paste-preview", s.handlePastePreview)
				r.Post("/paste", s.handlePaste)
				r.Post("/fill", s.handleFill)
				r.Post("/commit", s.handleCommit)
				r.Post("/discard", s.handleDiscard)
			})
		})
	})

	return r
}

// Sessions exposes the registry, mainly for shutdown ordering and tests.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Shutdown stops accepting requests, then closes every edit session so its
// pending edits are flushed. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
		s.sessions.Close(ctx)
		if s.limiter != nil {
			s.limiter.Stop()
		}
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 while the store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.budget.Ready(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
