package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/repairit-app/repairit-platform/internal/api/router"
	"github.com/repairit-app/repairit-platform/internal/bookings"
	appconfig "github.com/repairit-app/repairit-platform/internal/config"
	"github.com/repairit-app/repairit-platform/internal/diagnostic"
	"github.com/repairit-app/repairit-platform/internal/observability/metrics"
	"github.com/repairit-app/repairit-platform/internal/rewards"
	"github.com/repairit-app/repairit-platform/internal/webchat"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting repairit-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Redis backs the message log, expert index and coin ledger.
	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOptions)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis not available", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	// Metrics registry with process and Go collectors plus engine metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	// Expert client is optional; without a key every delegated turn serves
	// the unavailable fallback.
	var expertClient diagnostic.ExpertClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := diagnostic.NewGeminiExpertClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		expertClient = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, expert replies will use fallback text")
	}

	invoker := diagnostic.NewInvoker(expertClient, logger).
		WithMaxRetries(cfg.ExpertMaxRetries).
		WithBaseDelay(cfg.ExpertRetryBaseDelay).
		WithMetrics(engineMetrics)

	engine := diagnostic.NewEngine(
		diagnostic.NewMessageStore(redisClient),
		diagnostic.NewExpertIndex(redisClient),
		invoker,
		logger,
	).WithMetrics(engineMetrics)

	// Rewards ledger shares the Redis instance.
	rewardStore := rewards.NewStore(redisClient)

	// Postgres booking archive is optional; without DATABASE_URL confirmed
	// bookings are logged and dropped.
	bookingService := bookings.NewService(nil, logger)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		bookingService = bookings.NewService(bookings.NewRepository(pool), logger)
	} else {
		logger.Warn("DATABASE_URL not set, booking archive disabled")
	}
	bookingService = bookingService.WithRewards(rewardStore, cfg.BookingCoinBonus)
	engine.WithBookings(bookingService)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		DiagnosticHandler:  diagnostic.NewHandler(engine, logger),
		BookingsHandler:    bookings.NewHandler(bookingService, logger),
		RewardsHandler:     rewards.NewHandler(rewardStore, logger),
		WebchatHandler:     webchat.NewHandler(engine, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
