package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/convert-service/internal/config"
	"github.com/fathima-sithara/convert-service/internal/converter"
	"github.com/fathima-sithara/convert-service/internal/events"
	"github.com/fathima-sithara/convert-service/internal/handlers"
	"github.com/fathima-sithara/convert-service/internal/metrics"
	"github.com/fathima-sithara/convert-service/internal/middleware"
	"github.com/fathima-sithara/convert-service/internal/repository"
	"github.com/fathima-sithara/convert-service/internal/routes"
	"github.com/fathima-sithara/convert-service/internal/services"
	"github.com/fathima-sithara/convert-service/internal/storage"
	"github.com/fathima-sithara/convert-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// load config
	cfgPath := os.Getenv("CONVERT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	dev := cfg.Development()

	// logger
	logger, err := utils.NewLogger(dev, "convert-service")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ws, err := storage.NewWorkspace(cfg.Storage.UploadDir, cfg.Storage.ConvertedDir)
	if err != nil {
		logger.Fatalf("workspace: %v", err)
	}

	runner := converter.NewBreakerRunner(converter.ExecRunner{}, cfg.Breaker.MaxFailures, cfg.BreakerTimeout, logger)
	table := converter.DefaultTable(converter.Options{
		Runner:      runner,
		PandocBin:   cfg.Conversion.PandocBin,
		FFmpegBin:   cfg.Conversion.FFmpegBin,
		PdftoppmBin: cfg.Conversion.PdftoppmBin,
		PDFDPI:      cfg.Conversion.PDFDPI,
		JPEGQuality: cfg.Conversion.JPEGQuality,
	})

	svcOpts := []services.Option{services.WithSideChannelTimeout(cfg.SideTimeout)}
	var cleanups []func(context.Context)

	// S3 archive
	if cfg.S3.Enabled {
		store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.KeyPrefix)
		if err != nil {
			logger.Fatalf("s3 init: %v", err)
		}
		svcOpts = append(svcOpts, services.WithArchiver(store))
		logger.Infof("archiving outputs to s3://%s/%s", cfg.AWS.Bucket, cfg.S3.KeyPrefix)
	}

	// Mongo history
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			cancel()
			logger.Fatalf("mongo connect: %v", err)
		}
		repo := repository.NewConversionRepo(mc.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("mongo indexes: %v", err)
		}
		cancel()
		svcOpts = append(svcOpts, services.WithHistory(repo))
		cleanups = append(cleanups, func(ctx context.Context) { _ = mc.Disconnect(ctx) })
	}

	// Kafka events
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		svcOpts = append(svcOpts, services.WithEvents(producer))
		cleanups = append(cleanups, func(context.Context) { _ = producer.Close() })
	}

	svc := services.NewConversionService(ws, table, cfg.ConversionTimeout, logger, svcOpts...)

	routeOpts := routes.Options{Metrics: cfg.Metrics.Enabled}
	if cfg.Metrics.Enabled {
		metrics.Init()
	}
	if cfg.RateLimit.PerMinute > 0 {
		if cfg.Redis.Addr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			rl := middleware.NewRedisRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.PerMinute, time.Minute, logger)
			routeOpts.RateLimit = rl.Handler()
			cleanups = append(cleanups, func(context.Context) { _ = rdb.Close() })
		} else {
			rl := middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, logger)
			routeOpts.RateLimit = rl.Handler()
			cleanups = append(cleanups, func(context.Context) { rl.Close() })
		}
	}
	if cfg.JWT.PublicKeyPath != "" {
		verifier, err := middleware.NewJWTVerifier(cfg.JWT.PublicKeyPath)
		if err != nil {
			logger.Fatalf("jwt init: %v", err)
		}
		routeOpts.Auth = middleware.JWTAuth(verifier)
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.App.BodyLimitMB * 1024 * 1024,
		ReadTimeout:           2 * time.Minute,
		WriteTimeout:          2 * time.Minute,
		DisableStartupMessage: !dev,
	})
	routes.Register(app, handlers.NewHandler(svc, logger), logger, routeOpts)

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting convert service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = app.ShutdownWithTimeout(cfg.ShutdownTimeout)
	for _, c := range cleanups {
		c(timeoutCtx)
	}
	logger.Info("shutdown completed")
}
