// Package server provides the HTTP server for the pageforge API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/generator"
	"github.com/pageforge-ai/pageforge/internal/project"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// StreamDelay paces generation streaming. Zero streams at full speed.
	StreamDelay time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
		StreamDelay:  20 * time.Millisecond,
	}
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	projects  *project.Service
	generator *generator.Generator
	budget    *generator.Budget
	bus       *event.Bus
}

// New creates a new Server instance. planner drives generation; budget is
// the server-side token ledger shared with the generator.
func New(cfg *Config, projects *project.Service, planner generator.Planner, budget *generator.Budget, bus *event.Bus) *Server {
	if bus == nil {
		bus = event.Default()
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		projects:  projects,
		generator: generator.New(planner, projects, budget, cfg.StreamDelay),
		budget:    budget,
		bus:       bus,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and drains pending file writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.projects.Close()
	return err
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
