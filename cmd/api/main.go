package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/quickbooking/qr-booking/internal/api/router"
	"github.com/quickbooking/qr-booking/internal/booking"
	appconfig "github.com/quickbooking/qr-booking/internal/config"
	"github.com/quickbooking/qr-booking/internal/http/handlers"
	"github.com/quickbooking/qr-booking/internal/observability/metrics"
	"github.com/quickbooking/qr-booking/internal/schedapi"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting qr-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Session storage: Redis when configured, in-process otherwise.
	var store booking.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		defer redisClient.Close()
		store = booking.NewRedisStore(redisClient, logger)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		store = booking.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, sessions are in-process only")
	}

	scheduler := schedapi.NewClient(cfg.SchedulingAPIBaseURL, cfg.SchedulingAPITimeout, logger, bookingMetrics)
	flow := booking.NewFlow(scheduler, logger)
	manager := booking.NewManager(flow, store, cfg.SessionTTL, bookingMetrics, logger)

	wizardHandler := handlers.NewWizardHandler(manager, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		WizardHandler:      wizardHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
