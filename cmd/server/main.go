package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbridge/internal/config"
	"chatbridge/internal/database"
	"chatbridge/internal/handlers"
	"chatbridge/internal/middleware"
	"chatbridge/internal/repository"
	"chatbridge/internal/router"
	"chatbridge/internal/services"
	"chatbridge/internal/websocket"
)

func main() {
	log.Println("🚀 Starting chatbridge server...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if err := cfg.RequireAPIKey(); err != nil {
		log.Fatalf("✗ %v", err)
	}
	log.Println("✓ Environment variables loaded")

	ctx := context.Background()

	// ──── Step 2: Attempt Audit (optional) ────
	var recorder services.AttemptRecorder
	var statsHandler *handlers.StatsHandler
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		attemptRepo := repository.NewAttemptRepo(pool)
		recorder = attemptRepo
		statsHandler = handlers.NewStatsHandler(attemptRepo)
	} else {
		log.Println("  DATABASE_URL not set, attempt audit disabled")
	}

	// ──── Step 3: Inbound Rate Limiter ────
	var chatLimiter func(http.Handler) http.Handler
	switch {
	case cfg.RateLimitPerMin <= 0:
		log.Println("  RATE_LIMIT_PER_MINUTE is 0, inbound rate limiting disabled")
	case cfg.RedisURL != "":
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		chatLimiter = middleware.NewRedisRateLimiter(redisClient, cfg.RateLimitPerMin, time.Minute).Middleware
		log.Printf("✓ Redis rate limiter enabled (%d req/min per IP)", cfg.RateLimitPerMin)
	default:
		limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
		defer limiter.Stop()
		chatLimiter = limiter.Middleware
		log.Printf("✓ In-memory rate limiter enabled (%d req/min per IP)", cfg.RateLimitPerMin)
	}

	// ──── Step 4: Response Fetcher ────
	fetcher := services.NewFetcherFromConfig(cfg, recorder)
	log.Printf("✓ Response fetcher ready (models: %v)", fetcher.Models())

	// ──── Step 5: WebSocket Relay Hub ────
	wsHub := websocket.NewHub(fetcher)
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Start HTTP Server ────
	fetchTimeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	if fetchTimeout <= 0 {
		fetchTimeout = 120 * time.Second
	}

	r := router.New(
		handlers.NewChatHandler(fetcher, fetchTimeout),
		handlers.NewPageHandler(),
		statsHandler,
		wsHub,
		chatLimiter,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Leaves room to write the reply once a fetch hits its deadline.
		WriteTimeout: fetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ chatbridge ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
