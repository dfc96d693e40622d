// Package server wires handlers, middleware, and routes, and owns the
// HTTP server lifecycle. It is the composition root below main: all
// dependencies are assembled in New, nothing is constructed ad hoc inside
// handlers.
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

	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/config"
	"github.com/nahiyan/tasktrail/internal/handler"
	"github.com/nahiyan/tasktrail/internal/mailer"
	"github.com/nahiyan/tasktrail/internal/middleware"
	sqliteRepo "github.com/nahiyan/tasktrail/internal/repository/sqlite"
	"github.com/nahiyan/tasktrail/internal/service"
)

// Server holds the router and the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency graph:
// repositories → services → handlers → routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
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
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var notifier mailer.Notifier
	if s.config.SMTP.Host != "" {
		notifier = mailer.New(s.config.SMTP, s.config.AppBaseURL)
	} else {
		s.logger.Warn("SMTP_HOST not set — emails will be logged, not sent")
		notifier = &mailer.LogNotifier{Logger: s.logger}
	}

	authService := service.NewAuthService(
		s.db.Users(), tokens, passwords, notifier, s.logger,
		service.AuthConfig{
			VerificationTTL: s.config.VerificationTTL,
			ResetTTL:        s.config.ResetTTL,
		},
	)
	todoService := service.NewTodoService(s.db.Todos(), s.logger)
	activityService := service.NewActivityService(s.db.Activities(), s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	todoHandler := handler.NewTodoHandler(todoService, s.logger)
	activityHandler := handler.NewActivityHandler(activityService, s.logger)

	// Public auth routes.
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/verify-email", authHandler.HandleVerifyEmail)
		r.Post("/resend-verification", authHandler.HandleResendVerification)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/reset-password", authHandler.HandleResetPassword)
	})

	// Protected resource routes. RequireAuth validates the Bearer token
	// and injects the account id into the request context.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", authHandler.HandleMe)

		r.Get("/todos", todoHandler.HandleList)
		r.Post("/todos", todoHandler.HandleCreate)
		r.Get("/todos/{id}", todoHandler.HandleGet)
		r.Put("/todos/{id}", todoHandler.HandleUpdate)
		r.Delete("/todos/{id}", todoHandler.HandleDelete)

		r.Get("/activities", activityHandler.HandleList)
		r.Post("/activities", activityHandler.HandleLog)
		r.Get("/activities/streak", activityHandler.HandleStreak)
		r.Delete("/activities/{id}", activityHandler.HandleDelete)
	})

	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
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

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
