package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"tally/docs"
	"tally/internal/analytics"
	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/db"
	"tally/internal/flags"
	"tally/internal/handler"
	"tally/internal/model"
	"tally/internal/ratelimit"
	"tally/internal/repository"
	"tally/internal/router"
	"tally/internal/service"
	"tally/internal/session"
	"tally/internal/telemetry"
)

// @title Tally API
// @version 1.0
// @description Per-user counter service with session-cookie authentication and sliding-window rate limiting.
// @host localhost:8080
// @BasePath /api
// @schemes http
func main() {
	cfg := config.Load()
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	log := logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: cfg.ServiceName + "@" + cfg.ServiceVersion,
		})
		if err != nil {
			log.WithError(err).Warn("sentry init failed, error reporting disabled")
		} else {
			sentryEnabled = true
		}
	}

	ctx := context.Background()
	err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Exporter:       cfg.TraceExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   true,
		SampleRate:     cfg.SampleRate,
	})
	if err != nil {
		log.WithError(err).Warn("tracing init failed, tracing disabled")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Counter{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	events, err := analytics.New(cfg.PostHogAPIKey, cfg.PostHogHost, log)
	if err != nil {
		log.WithError(err).Warn("analytics init failed, events disabled")
		events, _ = analytics.New("", "", log)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	counterRepo := repository.NewCounterRepository(gormDB)

	// Initialize services
	sessions := session.NewManager(sessionRepo, cfg.SessionTTL, log)
	flagCache := flags.NewCache(flags.NewPostHogEvaluator(events.PostHog()), cfg.FlagCacheTTL, log)
	limiter := ratelimit.New(cacheClient, flagCache, cfg.RateLimitMax, cfg.RateLimitWindow, log)
	authService := service.NewAuthService(userRepo, sessions, events, log)
	counterService := service.NewCounterService(counterRepo, limiter, events, cacheClient, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.SessionTTL)
	counterHandler := handler.NewCounterHandler(counterService)
	migrateHandler := handler.NewMigrateHandler(gormDB, cfg.AdminToken)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, sessions, authHandler, counterHandler, migrateHandler, sentryEnabled)

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server start: %v", err)
		}
	}()
	log.WithField("port", cfg.ServerPort).Info("server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	events.Close()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
	if err := cacheClient.Close(); err != nil {
		log.WithError(err).Warn("redis close")
	}
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
