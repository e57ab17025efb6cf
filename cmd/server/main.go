// Package main is the entry point for the Startup Nation API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars, flags, or config files)
// 2. Create dependencies (logger, database connections, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
// This separation makes the app testable and its components reusable.
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// A project might have multiple executables (e.g., cmd/server, cmd/migrate, cmd/cli).
// Each gets its own directory with its own main.go.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/startup-nation/internal/server"
)

func main() {
	// === 1. LOAD .env ===
	// godotenv.Load reads a .env file in the working directory into the
	// process environment, so local development doesn't need exported vars.
	// A missing file is fine — production sets real env vars.
	_ = godotenv.Load()

	// === 2. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs human-readable logs.
	//
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	// In production, you'd use LevelInfo or LevelWarn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 3. READ CONFIGURATION ===
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// BASE_URL is the public origin of this deployment. The safe redirect
	// policy compares post-login redirect targets against it.
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	// === 4. DATABASE PATH ===
	// DB_PATH env var allows overriding for production deployments.
	// Example: DB_PATH=/var/lib/startup-nation/prod.db
	dbPath := "data/startup-nation.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// Ensure the data directory exists.
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 5. AUTH CONFIGURATION ===
	// JWT_SECRET must be a long random string. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// Sessions cannot work without it, so a missing secret is fatal.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET not set — refusing to start without a session signing key")
		os.Exit(1)
	}

	// OAuth providers are optional: any provider with missing credentials is
	// simply not registered, and the server runs with credentials auth only.
	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = baseURL + "/auth/github/callback"
	}
	googleCallbackURL := os.Getenv("GOOGLE_CALLBACK_URL")
	if googleCallbackURL == "" {
		googleCallbackURL = baseURL + "/auth/google/callback"
	}

	// === 6. CREATE AND START THE SERVER ===
	cfg := server.Config{
		Port:      port,
		DBPath:    dbPath,
		BaseURL:   baseURL,
		JWTSecret: jwtSecret,

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  githubCallbackURL,

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  googleCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
