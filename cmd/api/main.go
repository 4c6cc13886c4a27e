package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinkeep/coinkeep/internal/infra/postgres"
	infraRedis "github.com/coinkeep/coinkeep/internal/infra/redis"
	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/platform/user"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/handler"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
	"github.com/coinkeep/coinkeep/pkg/config"
	"github.com/coinkeep/coinkeep/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting CoinKeep API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	dbCfg := postgres.Config{
		URL: cfg.DatabaseURL,
	}
	db, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize Redis client for balance caching
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)

	// Initialize balance cache
	balanceCache := infraRedis.NewBalanceCacheWithTTL(
		redisClient,
		time.Duration(cfg.BalanceCacheTTLSeconds)*time.Second,
		log,
	)

	// Initialize services
	userSvc := user.NewService(userRepo, log)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	ledgerSvc := ledger.NewService(ledgerRepo, balanceCache, log)

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(userSvc, jwtSvc)
	accountHandler := handler.NewAccountHandler(ledgerSvc)
	categoryHandler := handler.NewCategoryHandler(ledgerSvc)
	entryHandler := handler.NewEntryHandler(ledgerSvc)
	reportHandler := handler.NewReportHandler(ledgerSvc)
	loanHandler := handler.NewLoanHandler(ledgerSvc)
	eventHandler := handler.NewEventHandler(ledgerSvc)
	healthHandler := handler.NewHealthHandler(db, balanceCache)

	// Create JWT middleware
	jwtMiddleware := middleware.JWTMiddleware(jwtSvc)

	// Create HTTP router
	routerCfg := httpapi.Config{
		Logger:          log,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthHandler:     authHandler,
		AccountHandler:  accountHandler,
		CategoryHandler: categoryHandler,
		EntryHandler:    entryHandler,
		ReportHandler:   reportHandler,
		LoanHandler:     loanHandler,
		EventHandler:    eventHandler,
		HealthHandler:   healthHandler,
		JWTMiddleware:   jwtMiddleware,
	}
	r := httpapi.NewRouter(routerCfg)

	// Create HTTP server. WriteTimeout stays unset: the /events stream
	// holds its connection open indefinitely.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
