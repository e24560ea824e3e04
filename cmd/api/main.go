package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/support-gateway/internal/adapters/primary/http"
	mw "github.com/lorrc/support-gateway/internal/adapters/primary/http/middleware"
	"github.com/lorrc/support-gateway/internal/adapters/primary/websocket"
	"github.com/lorrc/support-gateway/internal/adapters/secondary/alerting"
	"github.com/lorrc/support-gateway/internal/adapters/secondary/postgres"
	"github.com/lorrc/support-gateway/internal/adapters/secondary/ticketapi"
	"github.com/lorrc/support-gateway/internal/auth"
	"github.com/lorrc/support-gateway/internal/config"
	"github.com/lorrc/support-gateway/internal/core/ports"
	"github.com/lorrc/support-gateway/internal/core/services"
	"github.com/lorrc/support-gateway/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool (optional; run history only)
	ctx := context.Background()
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}

		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
		poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")
	} else {
		logger.Warn("DATABASE_URL not set, assignment run history is disabled")
	}

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 5. Initialize Rate Limiters
	var generalRateLimiter, runRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		runRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RunRPS,
			BurstSize:         cfg.RateLimit.RunBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Ticketing backend client (Secondary Adapter)
	backendClient := ticketapi.NewClient(ticketapi.Config{
		BaseURL: cfg.Backend.URL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
	}, logger)

	// Alert notifier (Secondary Adapter)
	notifier := alerting.NewNotifier(alerting.Config{
		URL:     cfg.Notify.URL,
		Timeout: cfg.Notify.Timeout,
	}, logger)

	// Run history store (Secondary Adapter, optional)
	var runStore ports.RunStore
	var dbCheck httpAdapter.HealthChecker
	if pool != nil {
		runStore = postgres.NewRunRepository(pool)
		dbCheck = pool
	}

	// Services (Core)
	accessService := services.NewAccessService()
	assignmentService := services.NewAssignmentService(services.AssignmentServiceParams{
		Backend:        backendClient,
		Notifier:       notifier,
		RunStore:       runStore,
		Broadcaster:    hub,
		Regions:        cfg.Assignment.GroupRegions,
		ExcludedEmails: cfg.Assignment.ExcludedEmails,
		Logger:         logger,
	})

	// Handlers (Primary Adapters)
	ticketHandler := httpAdapter.NewTicketHandler(backendClient, accessService, errorHandler, logger)
	assignmentHandler := httpAdapter.NewAssignmentHandler(assignmentService, cfg.Scheduler.Secret, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(backendClient, dbCheck, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httpAdapter.SchedulerTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Ticket proxy behind the access decision engine
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/tickets", ticketHandler.RegisterRoutes)
		})

		// Assignment engine: the run trigger also accepts the scheduler
		// secret, so the JWT here is optional and checked per endpoint.
		r.Group(func(r chi.Router) {
			r.Use(mw.OptionalJWT(tokenManager))
			if runRateLimiter != nil {
				r.Use(runRateLimiter.Middleware)
			}
			r.Route("/assignment", assignmentHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
