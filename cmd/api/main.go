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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/scheduling-engine/internal/api/router"
	"github.com/clinicore/scheduling-engine/internal/appointments"
	"github.com/clinicore/scheduling-engine/internal/availability"
	"github.com/clinicore/scheduling-engine/internal/booking"
	appconfig "github.com/clinicore/scheduling-engine/internal/config"
	"github.com/clinicore/scheduling-engine/internal/observability/metrics"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/stats"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

func main() {
	// Local development convenience; the file is absent in deployments.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisClient := newRedisClient(ctx, cfg, logger)

	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	scheduleStore := schedule.NewStore(pool)
	resolver := schedule.NewResolver(scheduleStore)

	var cache *availability.Cache
	var invalidator schedule.AvailabilityInvalidator
	if redisClient != nil {
		cache = availability.NewCache(redisClient, cfg.AvailabilityCacheTTL)
		invalidator = cache
	}

	statsStore := stats.NewStore(pool)
	aggregator := stats.NewAggregator(statsStore, resolver, cfg.VacationEntitlementDays, schedulingMetrics, logger)

	scheduleService := schedule.NewService(scheduleStore, aggregator, invalidator, logger)

	appointmentStore := appointments.NewStore(pool)
	availabilityService := availability.NewService(resolver, scheduleStore, appointmentStore, cache, schedulingMetrics, logger).
		WithDefaults(cfg.DefaultAppointmentDurationMins, cfg.DefaultBreakDurationMins)

	guard := booking.NewGuard(pool, schedulingMetrics, logger)
	machine := appointments.NewMachine(appointmentStore, guard, invalidator, schedulingMetrics, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		ScheduleHandler:     schedule.NewHandler(scheduleService, resolver, logger),
		AvailabilityHandler: availability.NewHandler(availabilityService, logger),
		BookingHandler:      booking.NewHandler(guard, logger),
		AppointmentsHandler: appointments.NewHandler(machine, logger),
		StatsHandler:        stats.NewHandler(aggregator, logger),
		MetricsHandler:      promhttp.Handler(),
	}
	r := router.New(routerCfg)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newRedisClient connects to Redis for the availability cache. The cache
// is optional; on connection failure the server runs without it.
func newRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	options := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, availability cache disabled", "error", err)
		return nil
	}
	return client
}
