// Package main is the entry point for the KaviosPix API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (environment variables, see internal/config)
// 2. Create dependencies (logger, store, blob store)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prateek1361/kaviosApp-backend/internal/config"
	"github.com/prateek1361/kaviosApp-backend/internal/logger"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
	"github.com/prateek1361/kaviosApp-backend/internal/repository/postgres"
	sqliteRepo "github.com/prateek1361/kaviosApp-backend/internal/repository/sqlite"
	"github.com/prateek1361/kaviosApp-backend/internal/server"
	"github.com/prateek1361/kaviosApp-backend/internal/storage/minio"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.NewConfig()
	if err != nil {
		// No logger yet; the config decides its level and format.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// === 3. OPEN THE STORE ===
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to open store",
			slog.String("driver", cfg.Database.Driver),
			slog.String("error", err.Error()),
		)
	}

	// === 4. CONNECT THE BLOB STORE ===
	// The bucket is created (and made publicly readable) if missing.
	blobs, err := minio.NewClient(ctx, minio.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		store.Close()
		log.Fatal("failed to connect blob store",
			slog.String("endpoint", cfg.Storage.Endpoint),
			slog.String("error", err.Error()),
		)
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, log.Logger, store, blobs)
	if err != nil {
		store.Close()
		log.Fatal("failed to create server", slog.String("error", err.Error()))
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	// and closes the store on the way out.
	if err := srv.Start(); err != nil {
		log.Fatal("server error", slog.String("error", err.Error()))
	}
}

// openStore returns the repository.Store selected by DATABASE_DRIVER.
func openStore(ctx context.Context, db config.Database) (repository.Store, error) {
	switch db.Driver {
	case "postgres":
		conn, err := postgres.NewConnection(ctx, db.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(conn), nil

	default:
		// os.MkdirAll is a no-op when the directory exists (like `mkdir -p`).
		if dir := filepath.Dir(db.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return sqliteRepo.New(db.Path)
	}
}
