// Package server exposes the recommendation engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yamori/assessrec/internal/auth"
	"github.com/yamori/assessrec/internal/cache"
	"github.com/yamori/assessrec/internal/catalog"
	"github.com/yamori/assessrec/internal/engine"
)

// Config holds configuration for the HTTP server
type Config struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins

	// TopK and TopN are the default retrieval parameters for requests that
	// do not override them.
	TopK int
	TopN int

	// JWT guards the admin routes. When nil, admin routes are not mounted.
	JWT *auth.JWTManager

	// Catalog is the record source used by the rebuild endpoint.
	Catalog catalog.Store
}

// Server wraps an HTTP server around the recommendation engine.
type Server struct {
	server  *http.Server
	router  *chi.Mux
	engine  *engine.Engine
	catalog catalog.Store
	results *cache.Store
	logger  *slog.Logger
	topK    int
	topN    int
}

// New creates a new HTTP server.
func New(eng *engine.Engine, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	s := &Server{
		engine:  eng,
		catalog: cfg.Catalog,
		results: cache.DefaultStore(),
		logger:  logger,
		topK:    cfg.TopK,
		topN:    cfg.TopN,
		router:  router,
	}

	router.Get("/health", s.handleHealth)
	router.Get("/healthz", s.handleHealth)
	router.Get("/stats", s.handleStats)
	router.Post("/recommend", s.handleRecommend)

	if cfg.JWT != nil {
		router.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(cfg.JWT))
			r.Post("/rebuild", s.handleRebuild)
		})
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // generative reranking can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	s.results.Close()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
