// Package mockd is a self-contained UrbanPatch backend for development and
// integration testing. It speaks the same REST surface and websocket event
// stream the hosted service does, backed by an embedded SQLite database, so
// the CLI and the client libraries can run against something real without
// network access or credentials.
//
// It is a faithful double, not a toy: auth is real JWT over bcrypt hashes,
// permissions are enforced, status transitions are checked, and every
// mutation broadcasts the corresponding event to connected sockets.
package mockd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string // SQLite file, or ":memory:" for a throwaway instance
	JWTSecret string
	UploadDir string // where photo uploads land; empty disables uploads
}

// Server is the HTTP server and all its dependencies. New wires the whole
// chain in one place (db → services → handlers → routes), which keeps
// main.go down to config parsing.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *DB
	hub    *Hub
}

// New creates a Server with the given config. The returned server owns the
// database connection and closes it on shutdown.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    NewHub(logger),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router so tests can mount the full server on an
// httptest.Server without going through Start.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB exposes the storage layer for test seeding.
func (s *Server) DB() *DB {
	return s.db
}

// Close releases the server's resources without the graceful-shutdown
// dance. Tests use this; Start handles it on its own.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	tokens, err := NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := NewPasswordService()

	// Middleware order: request ID first so everything downstream can
	// reference it, recovery before logging so panics still produce a
	// request log line.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(requestLogger(s.logger))

	authH := &authHandler{db: s.db, tokens: tokens, passwords: passwords, logger: s.logger}
	issueH := &issueHandler{db: s.db, hub: s.hub, logger: s.logger}
	commentH := &commentHandler{db: s.db, hub: s.hub, logger: s.logger}
	uploadH := &uploadHandler{dir: s.config.UploadDir, logger: s.logger}
	statsH := &statsHandler{db: s.db}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.handleRegister)
			r.Post("/login", authH.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth(tokens))
				r.Get("/me", authH.handleMe)
				r.Put("/profile", authH.handleUpdateProfile)
				r.Put("/change-password", authH.handleChangePassword)
			})
		})

		r.Route("/issues", func(r chi.Router) {
			// Reads are public. OptionalAuth lets signed-in reads carry
			// identity without blocking anonymous ones.
			r.Group(func(r chi.Router) {
				r.Use(OptionalAuth(tokens))
				r.Get("/", issueH.handleList)
				r.Get("/nearby", issueH.handleNearby)
				r.Get("/search", issueH.handleSearch)
				r.Get("/export", issueH.handleExport)
				r.Get("/{id}", issueH.handleGet)
				r.Get("/{id}/comments", commentH.handleList)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth(tokens))
				r.Post("/", issueH.handleCreate)
				r.Put("/{id}", issueH.handleUpdate)
				r.Delete("/{id}", issueH.handleDelete)
				r.Post("/{id}/upvote", issueH.handleUpvote)
				r.Put("/{id}/verify", issueH.handleVerify)
				r.Put("/{id}/close", issueH.handleClose)
				r.Post("/{id}/comments", commentH.handleCreate)
				r.Put("/{id}/comments/{commentId}", commentH.handleUpdate)
				r.Delete("/{id}/comments/{commentId}", commentH.handleDelete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(tokens))
			r.Post("/upload", uploadH.handleUpload)
			r.Delete("/upload", uploadH.handleDelete)
		})

		r.Get("/stats", statsH.handleStats)
		r.Get("/stats/user/{id}", statsH.handleUserStats)
	})

	// The event stream lives outside /api — it is a websocket, not REST.
	s.router.Get("/ws", s.hub.handleWS)

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the sockets,
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("mockd starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.hub.CloseAll()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("mockd stopped gracefully")
	}

	return nil
}
