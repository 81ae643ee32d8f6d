// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mentorloop/relationship-engine/internal/config"
	"github.com/mentorloop/relationship-engine/internal/handler"
	"github.com/mentorloop/relationship-engine/internal/middleware"
	natsclient "github.com/mentorloop/relationship-engine/internal/nats"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/pkg/logger"
	"github.com/mentorloop/relationship-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "relationship-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to Postgres and migrate
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}

	// Connect to NATS
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer nc.Close()

	events := natsclient.NewPublisher(nc)
	if err := events.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure event stream", zap.Error(err))
		os.Exit(1)
	}

	// Initialize repositories
	connectionRepo := store.NewConnectionRepo(db)
	conversationRepo := store.NewConversationRepo(db)
	mentorshipRepo := store.NewMentorshipRepo(db)

	// Initialize services
	connectionSvc := service.NewConnectionService(connectionRepo, events, log)
	conversationSvc := service.NewConversationService(conversationRepo, events, log)
	mentorshipSvc := service.NewMentorshipService(mentorshipRepo, events, log)
	sessionSvc := service.NewSessionService(db, mentorshipSvc, events, log)
	orchestrator := service.NewOrchestrator(db, events, cfg.MentorshipAutoEngage, cfg.DefaultPlannedSessions, log)

	// Start the expiration sweeper
	sweeper := service.NewSweeper(sessionSvc, cfg.SweepInterval, cfg.SweepTimeout, log)
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, nc)
	connectionHandler := handler.NewConnectionHandler(connectionSvc, orchestrator, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	mentorshipHandler := handler.NewMentorshipHandler(mentorshipSvc, sessionSvc, log)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/connections", func(r chi.Router) {
			r.Post("/", connectionHandler.Create)
			r.Get("/", connectionHandler.List)
			r.Put("/{id}/respond", connectionHandler.Respond)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", conversationHandler.ListMessages)
				r.Post("/messages", conversationHandler.Send)
				r.Post("/read", conversationHandler.MarkRead)
			})
		})

		r.Route("/mentorships", func(r chi.Router) {
			r.Get("/", mentorshipHandler.List)
			r.Get("/sessions/check-expired", mentorshipHandler.CheckExpired)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/status", mentorshipHandler.SetStatus)
				r.Post("/sessions", mentorshipHandler.ScheduleSession)
				r.Get("/sessions", mentorshipHandler.ListSessions)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Put("/{id}/complete", sessionHandler.Complete)
			r.Put("/{id}/cancel", sessionHandler.Cancel)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
