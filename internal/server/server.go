// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go reads config → passed to Server
// Server.New() creates: sqlite.DB → services → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

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

	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/handler"
	"github.com/sakif/startup-nation/internal/middleware"
	sqliteRepo "github.com/sakif/startup-nation/internal/repository/sqlite"
	"github.com/sakif/startup-nation/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port    int
	DBPath  string // path to the SQLite database file
	BaseURL string // public origin, used by the safe redirect policy

	JWTSecret string // signs session tokens; at least 16 characters

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the auth primitives (token, password, OAuth providers)
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not repositories or the DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
//
// AUTH TIERS:
// - public routes: no session middleware at all
// - OptionalAuth: the session is decoded if present (feed personalisation)
// - RequireAuth: a missing or invalid session is a 401 before the handler runs
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	// === AUTH PRIMITIVES ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	providers := make(map[string]*auth.Provider)
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		providers["github"] = auth.NewGitHubProvider(
			s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		providers["google"] = auth.NewGoogleProvider(
			s.config.GoogleClientID, s.config.GoogleClientSecret, s.config.GoogleCallbackURL)
	}

	// === SERVICES ===
	// s.db implements every repository interface, so it plugs into each
	// service directly. Services never see the concrete type.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	followService := service.NewFollowService(s.db, s.logger)
	postService := service.NewPostService(s.db, s.logger)
	chatService := service.NewChatService(s.db, s.logger)

	// === HANDLERS ===
	authHandler := handler.NewAuthHandler(authService, providers, s.config.BaseURL, s.logger)
	userHandler := handler.NewUserHandler(userService, followService, postService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)

	// Every authenticated request gets its claim bundle re-read from the
	// database, keyed by email, so stale usernames/roles in old tokens
	// self-heal on the next request.
	requireAuth := auth.RequireAuth(tokens, authService.RefreshClaims)
	optionalAuth := auth.OptionalAuth(tokens, authService.RefreshClaims)

	// === AUTH FLOWS (outside /api — browsers navigate here directly) ===
	s.router.Get("/auth/{provider}/login", authHandler.HandleOAuthLogin)
	s.router.Get("/auth/{provider}/callback", authHandler.HandleOAuthCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// === API ROUTES ===
	s.router.Route("/api", func(r chi.Router) {
		// Public: account creation and credentials sign-in
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		// Public with optional personalisation: the feed
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/posts", postHandler.HandleList)
			r.Get("/posts/slug/{slug}", postHandler.HandleGetBySlug)
			r.Get("/posts/{postId}/comments", postHandler.HandleListComments)
			r.Get("/users/{userId}", userHandler.HandleProfile)
			r.Get("/users/{userId}/posts", userHandler.HandleUserPosts)
			r.Get("/users/{userId}/follow", userHandler.HandleFollowStatus)
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)

			r.Get("/onboarding", userHandler.HandleOnboardingStatus)
			r.Post("/onboarding", userHandler.HandleCompleteOnboarding)
			r.Get("/users/check-username", userHandler.HandleCheckUsername)
			r.Get("/users/search", userHandler.HandleSearch)
			r.Patch("/users/{userId}", userHandler.HandleUpdateProfile)
			r.Post("/users/{userId}/follow", userHandler.HandleFollowToggle)

			r.Post("/posts", postHandler.HandleCreate)
			r.Post("/posts/{postId}/comments", postHandler.HandleAddComment)
			r.Post("/posts/{postId}/vote", postHandler.HandleToggleVote)

			r.Get("/chat/rooms", chatHandler.HandleListRooms)
			r.Post("/chat/rooms", chatHandler.HandleCreateRoom)
			r.Get("/chat/rooms/{roomId}/messages", chatHandler.HandleListMessages)
			r.Post("/chat/rooms/{roomId}/messages", chatHandler.HandleSendMessage)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
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
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
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

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
