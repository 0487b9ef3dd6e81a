// Command urbanpatch-mockd runs the local UrbanPatch development server:
// the full REST surface plus the websocket event stream, backed by a
// SQLite file. Point the urbanpatch CLI at it and everything works
// offline.
//
// Configuration is flags with environment fallbacks. The JWT secret is
// env-only (JWT_SECRET) so it never shows up in `ps` output.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/urbanpatch/urbanpatch-go/internal/mockd"
)

func main() {
	var (
		port      = pflag.Int("port", envInt("PORT", 5000), "port to listen on")
		dbPath    = pflag.String("db", envOr("DB_PATH", "data/urbanpatch.db"), "SQLite database file (\":memory:\" for throwaway)")
		uploadDir = pflag.String("upload-dir", envOr("UPLOAD_DIR", "data/uploads"), "directory for photo uploads (empty disables uploads)")
		verbose   = pflag.Bool("verbose", false, "enable debug logging")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// A fixed fallback keeps tokens valid across restarts, which is
		// what you want on a laptop and never what you want anywhere else.
		secret = "urbanpatch-dev-secret"
		logger.Warn("JWT_SECRET not set, using the built-in development secret")
	}

	if *dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", filepath.Dir(*dbPath)),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := mockd.New(mockd.Config{
		Port:      *port,
		DBPath:    *dbPath,
		JWTSecret: secret,
		UploadDir: *uploadDir,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and shuts down gracefully.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
