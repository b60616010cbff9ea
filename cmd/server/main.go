package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/cache"
	"github.com/oggyb/birdie/internal/config"
	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/dispatch"
	"github.com/oggyb/birdie/internal/logger"
	"github.com/oggyb/birdie/internal/queue"
	"github.com/oggyb/birdie/internal/server"
	"github.com/oggyb/birdie/internal/service/feed"
	"github.com/oggyb/birdie/internal/service/notification"
	"github.com/oggyb/birdie/internal/service/photo"
	"github.com/oggyb/birdie/internal/service/profile"
	"github.com/oggyb/birdie/internal/service/swipe"
	"github.com/oggyb/birdie/internal/storage"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis. The unread counter falls back to the database without it.
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, running without cache", "addr", cfg.Redis.Addr, "err", err)
		_ = redisCache.Close()
		redisCache = nil
	}

	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Image host is optional; photo uploads are rejected without it.
	var images photo.ImageStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg)
		if err != nil {
			log.Error("failed to init image storage", "err", err)
			os.Exit(1)
		}
		images = s3Store
	} else {
		log.Warn("S3_BUCKET not set, photo uploads disabled")
	}

	swipeSvc := swipe.NewSwipeService(appCtx, swipe.ConfigFrom(cfg))
	swipeReg := swipe.NewRegistrar(swipeSvc)

	grpcServer := server.NewGRPCServer(log, swipeReg)
	httpApp := server.NewHTTPApp(log,
		swipeReg,
		notification.NewRegistrar(notification.NewNotificationService(appCtx)),
		profile.NewRegistrar(profile.NewUserService(appCtx), profile.NewInterestService(appCtx)),
		photo.NewRegistrar(photo.NewPhotoService(appCtx, images)),
		feed.NewRegistrar(feed.NewFeedService(appCtx)),
	)

	var dispatcher *dispatch.Dispatcher
	var producer *queue.Producer
	if cfg.Dispatch.Enabled {
		producer = queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		dispatcher = dispatch.New(appCtx, producer, cfg.Dispatch.Interval, cfg.Dispatch.BatchSize)
		if err := dispatcher.Start(ctx); err != nil {
			log.Error("failed to start notification dispatcher", "err", err)
			os.Exit(1)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		errCh <- server.StartGRPCServer(cfg, grpcServer)
	}()
	go func() {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Host+":"+cfg.HTTP.Port)
		errCh <- server.StartHTTPServer(cfg, httpApp)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("server stopped", "err", err)
		}
	}

	if err := httpApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()

	if dispatcher != nil {
		if err := dispatcher.Stop(); err != nil {
			log.Warn("dispatcher stop", "err", err)
		}
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close", "err", err)
		}
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
