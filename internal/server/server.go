// Package server wires the store, services, handlers and routes together and
// runs the HTTP server.
//
// DEPENDENCY CHAIN:
//
//	config.Config → store (sqlite or mongo) → AuthService → AuthHandler → routes
//
// This is the composition root: nothing below it constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/config"
	"github.com/sakif/auth-backend/internal/handler"
	"github.com/sakif/auth-backend/internal/middleware"
	"github.com/sakif/auth-backend/internal/repository"
	mongoRepo "github.com/sakif/auth-backend/internal/repository/mongo"
	sqliteRepo "github.com/sakif/auth-backend/internal/repository/sqlite"
	"github.com/sakif/auth-backend/internal/service"
)

const storeConnectTimeout = 10 * time.Second

// userStore is a repository the server owns and closes on shutdown.
type userStore interface {
	repository.UserRepository
	io.Closer
}

// Server owns the user store; Start closes it on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  userStore
	tokens *auth.TokenService
}

// New opens the store named by cfg.DBLocation and builds the router.
// verifier checks federated ID tokens; pass auth.DisabledVerifier() to
// keep /google-auth registered but always failing.
func New(cfg config.Config, logger *slog.Logger, verifier auth.IdentityVerifier) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.SecretAccessKey, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		tokens: tokens,
	}

	authService := service.NewAuthService(
		store,
		auth.NewPasswordService(cfg.BcryptCost),
		tokens,
		verifier,
		logger,
	)
	s.setupRoutes(handler.NewAuthHandler(authService, logger))

	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (userStore, error) {
	if cfg.IsMongo() {
		return mongoRepo.New(ctx, cfg.DBLocation, cfg.MongoDatabase)
	}

	if cfg.DBLocation != ":memory:" {
		dir := filepath.Dir(cfg.DBLocation)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	return sqliteRepo.New(cfg.DBLocation)
}

// setupRoutes configures middleware and handlers.
//
// ROUTES:
//
//	POST /signup       → credential signup
//	POST /signin       → credential signin
//	POST /google-auth  → federated sign-in
//	GET  /api/me       → current user's profile (bearer token)
//	GET  /health       → liveness
//
// MIDDLEWARE ORDER: RequestID, RealIP, Logger, Recoverer. Logger sits outside
// Recoverer so recovered panics are logged as 500s.
func (s *Server) setupRoutes(authHandler *handler.AuthHandler) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	s.router.Post("/signup", authHandler.HandleSignup)
	s.router.Post("/signin", authHandler.HandleSignin)
	s.router.Post("/google-auth", authHandler.HandleGoogleAuth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))
		r.Get("/me", authHandler.HandleMe)
	})
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(s.router)
}

// Close releases the store. Start calls it on its way out.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.Bool("mongo", s.config.IsMongo()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
