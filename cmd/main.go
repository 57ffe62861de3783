package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tolls/internal/config"
	"github.com/ukydev/fleet-tolls/internal/cooldown"
	"github.com/ukydev/fleet-tolls/internal/db"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/events"
	"github.com/ukydev/fleet-tolls/internal/handlers"
	"github.com/ukydev/fleet-tolls/internal/opendata"
	"github.com/ukydev/fleet-tolls/internal/router"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start gateway")
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"port":        cfg.Port,
			"environment": cfg.DefaultEnvironment,
		}).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server stopped")
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}
}

// buildHandler wires the gateway. Redis, MongoDB and MQTT are optional; the
// returned cleanup releases whichever were connected.
func buildHandler(ctx context.Context, cfg config.Config, logger *log.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	resolver, err := environment.NewResolver(cfg.DefaultEnvironment, cfg.Environments())
	if err != nil {
		return fail(err)
	}

	deps := handlers.Deps{
		Upstream: upstream.New(upstream.Options{
			Resolver: resolver,
			Timeout:  cfg.UpstreamTimeout,
			Retry:    cfg.Retry,
			Logger:   logger,
		}),
		Resolver:    resolver,
		Cooldowns:   cooldown.NewMemoryStore(nil),
		OpenData:    opendata.NewClient(cfg.OpenDataURL, cfg.OpenDataAppToken, nil),
		Events:      events.NopPublisher{},
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
		Logger:      logger,
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			return fail(fmt.Errorf("redis %s: %w", cfg.RedisAddr, err))
		}
		closers = append(closers, func() { rdb.Close() })
		deps.Cooldowns = cooldown.NewRedisStore(rdb, "fleet-tolls:cooldown:")
		logger.WithField("addr", cfg.RedisAddr).Info("Using redis for cooldowns")
	}

	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { client.Disconnect(context.Background()) })
		coll := client.Database(cfg.MongoDB).Collection("exports")
		if err := db.EnsureExportIndexes(ctx, coll); err != nil {
			logger.WithError(err).Warn("Failed to create export indexes")
		}
		deps.Exports = &db.MongoExportCollection{Collection: coll}
		logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB successfully")
	}

	if cfg.MQTTBroker != "" {
		publisher, err := events.NewMQTTPublisher(cfg.MQTTBroker, "fleet-tolls-"+uuid.NewString()[:8], cfg.MQTTTopicPrefix)
		if err != nil {
			// Events are best effort; the gateway serves without them.
			logger.WithError(err).Warn("MQTT unavailable, events disabled")
		} else {
			closers = append(closers, publisher.Close)
			deps.Events = publisher
		}
	}

	handler := router.NewRouter(deps, router.Options{
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})
	return handler, cleanup, nil
}
