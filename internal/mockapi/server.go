// Package mockapi is an in-memory implementation of the course API used for
// local development and end-to-end tests. It speaks the same envelope as
// the real backend and can inject server faults and dropped connections.
package mockapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/me/coursebook/internal/logging"
)

// Config controls token signing and password hashing.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns a development configuration.
func DefaultConfig() Config {
	return Config{
		Secret:     []byte("coursebook-dev-secret"),
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Server is the fake course API.
type Server struct {
	router chi.Router
	logger *slog.Logger
	config Config
	data   *database
	faults *faults
	now    func() time.Time
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithClock replaces time.Now, which decides whether a course is past.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server with all routes registered and no data.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = DefaultConfig().Secret
	}
	s := &Server{
		router: chi.NewRouter(),
		logger: logging.OrDiscard(logger).With("component", "mockapi"),
		config: cfg,
		data:   newDatabase(),
		faults: &faults{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.faultMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/profile", s.handleGetProfile)
				r.Put("/profile", s.handleUpdateProfile)

				r.With(s.requireAdmin).Get("/", s.handleListUsers)
				r.With(s.requireAdmin).Get("/{id}", s.handleGetUser)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/user/courses", s.handleMyCourses)
				r.Get("/user/past-courses", s.handlePastCourses)
				r.Post("/{id}/join", s.handleJoin)
				r.Post("/{id}/leave", s.handleLeave)
			})

			r.Get("/{id}", s.handleGetCourse)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)

			r.Route("/courses", func(r chi.Router) {
				r.Get("/", s.handleAdminListCourses)
				r.Post("/", s.handleAdminCreateCourse)
				r.Put("/{id}", s.handleAdminUpdateCourse)
				r.Delete("/{id}", s.handleAdminDeleteCourse)
			})
			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Put("/{id}/role", s.handleAdminUpdateRole)
				r.Delete("/{id}", s.handleAdminDeleteUser)
			})
		})
	})
}
