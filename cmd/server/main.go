package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"ignite-call/internal/app"
	"ignite-call/internal/availability"
	"ignite-call/internal/config"
	"ignite-call/internal/logging"
	"ignite-call/internal/metrics"
	"ignite-call/internal/ratelimit"
	"ignite-call/internal/server"
	"ignite-call/internal/telemetry"
)

const serviceName = "ignite-call"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		Service: serviceName,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			ServerName:  serviceName,
		}); err != nil {
			logger.Warn("sentry disabled", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTELEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.OTELSamplingRate,
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := app.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	limiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	application := &app.App{
		Repo:         store,
		Availability: availability.NewResolver(store, cfg.Location(), availability.WithLogger(logger)),
		Limiter:      limiter,
		JWTSecret:    cfg.JWTSecret,
		CookieMaxAge: cfg.CookieMaxAge,
		Logger:       logger,
	}
	if cfg.GoogleCalendarEnabled() {
		application.Calendar = app.NewGoogleCalendar(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		logger.Info("google calendar publishing disabled")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger), metrics.Middleware())
	application.Routes(router)

	return server.Run(ctx, telemetry.Wrap(router, serviceName), cfg.Addr(), logger)
}

// newLimiter prefers Redis so limits hold across replicas.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("rate limiting with redis", "limit", cfg.RateLimit, "window", cfg.RateWindow)
		return ratelimit.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow, serviceName), nil
	}
	mem := ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
	go mem.Cleanup(ctx, 5*time.Minute)
	logger.Info("rate limiting in memory", "limit", cfg.RateLimit, "window", cfg.RateWindow)
	return mem, nil
}
