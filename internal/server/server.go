// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config → logger → repository.Store (sqlite or postgres) → storage.BlobStore
//
// Server.New() creates:
//
//	TokenService → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/prateek1361/kaviosApp-backend/internal/auth"
	"github.com/prateek1361/kaviosApp-backend/internal/config"
	"github.com/prateek1361/kaviosApp-backend/internal/handler"
	"github.com/prateek1361/kaviosApp-backend/internal/middleware"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
	"github.com/prateek1361/kaviosApp-backend/internal/service"
	"github.com/prateek1361/kaviosApp-backend/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. When the server shuts down it closes the store
// after in-flight requests have finished.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	blobs  storage.BlobStore
	tokens *auth.TokenService
}

// New creates a Server and wires every route.
//
// Each layer only receives what it needs:
//   - services get repository interfaces, never a concrete store
//   - handlers get services, never a repository
func New(cfg *config.Config, logger *slog.Logger, store repository.Store, blobs storage.BlobStore) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		blobs:  blobs,
		tokens: tokens,
	}

	s.setupRoutes()

	return s, nil
}

// Router returns the root handler. Tests drive it with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                                            → banner
// GET    /healthz                                     → store ping
// POST   /login                                       → email login
// GET    /auth/google/login, /auth/google/callback    → Google OAuth (when configured)
// GET    /api/me                                      → caller's user record
// POST   /albums, GET /albums                         → create / list
// GET    /albums/{albumId}, PATCH, DELETE             → read / edit / delete
// POST   /albums/{albumId}/share                      → share by email
// POST   /albums/{albumId}/images, GET                → upload / list
// PUT    /albums/{albumId}/images/{imageId}/favorite|tags|person
// POST   /albums/{albumId}/images/{imageId}/comments
// DELETE /albums/{albumId}/images/{imageId}
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info and the request ID
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	identityService := service.NewIdentityService(s.store, s.tokens, s.logger)
	albumService := service.NewAlbumService(s.store, s.store, s.logger)
	imageService := service.NewImageService(s.store, s.store, s.logger)
	ingestor := service.NewIngestor(s.store, s.store, s.blobs,
		s.config.Upload.MaxBytes, s.config.Storage.Folder, s.logger)

	var google *auth.GoogleProvider
	if s.config.Google.Enabled() {
		google = auth.NewGoogleProvider(
			s.config.Google.ClientID,
			s.config.Google.ClientSecret,
			s.config.GoogleCallbackURL(),
		)
	}

	healthHandler := handler.NewHealthHandler(s.store, s.logger)
	authHandler := handler.NewAuthHandler(identityService, google, s.logger)
	albumHandler := handler.NewAlbumHandler(albumService, s.logger)
	imageHandler := handler.NewImageHandler(imageService, ingestor, s.logger)

	// === Public Routes ===
	s.router.Get("/", healthHandler.HandleBanner)
	s.router.Get("/healthz", healthHandler.HandleHealthz)
	s.router.Post("/login", authHandler.HandleLogin)

	if google != nil {
		s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	} else {
		s.logger.Info("Google login disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	// === Protected Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/api/me", authHandler.HandleMe)

		r.Route("/albums", func(r chi.Router) {
			r.Post("/", albumHandler.HandleCreate)
			r.Get("/", albumHandler.HandleList)

			r.Route("/{albumId}", func(r chi.Router) {
				r.Get("/", albumHandler.HandleGet)
				r.Patch("/", albumHandler.HandleEdit)
				r.Delete("/", albumHandler.HandleDelete)
				r.Post("/share", albumHandler.HandleShare)

				r.Post("/images", imageHandler.HandleUpload)
				r.Get("/images", imageHandler.HandleList)

				r.Route("/images/{imageId}", func(r chi.Router) {
					r.Delete("/", imageHandler.HandleDelete)
					r.Put("/favorite", imageHandler.HandleSetFavorite)
					r.Put("/tags", imageHandler.HandleSetTags)
					r.Put("/person", imageHandler.HandleSetPerson)
					r.Post("/comments", imageHandler.HandleAddComment)
				})
			})
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests (uploads included) to finish, 30s at most
// 3. Close the store
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads stream the body to the blob store while it is being read.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.Database.Driver),
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
