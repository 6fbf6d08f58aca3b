package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediagate/internal/admission"
	"github.com/hszk-dev/mediagate/internal/api"
	"github.com/hszk-dev/mediagate/internal/api/handler"
	"github.com/hszk-dev/mediagate/internal/api/middleware"
	"github.com/hszk-dev/mediagate/internal/config"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/identity"
	"github.com/hszk-dev/mediagate/internal/infrastructure/cache"
	"github.com/hszk-dev/mediagate/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediagate/internal/infrastructure/queue"
	"github.com/hszk-dev/mediagate/internal/infrastructure/registry"
	"github.com/hszk-dev/mediagate/internal/infrastructure/storage"
	"github.com/hszk-dev/mediagate/internal/transcoder"
	"github.com/hszk-dev/mediagate/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Ingest.TempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	buckets := cfg.MinIO.Buckets()
	storageClient, err := storage.NewClient(storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Region:         cfg.MinIO.Region,
		UseSSL:         cfg.MinIO.UseSSL,
		Buckets:        buckets,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if err := storageClient.EnsureBuckets(ctx); err != nil {
		return fmt.Errorf("failed to prepare buckets: %w", err)
	}
	logger.Info("connected to MinIO")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	checkers := map[string]handler.Checker{
		"storage": storageClient.Ping,
		"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	var attempts repository.AttemptRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()

		applied, err := pgClient.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("connected to PostgreSQL", slog.Any("migrations_applied", applied))

		attempts = postgres.NewAttemptRepository(pgClient.Pool())
		checkers["postgres"] = pgClient.Ping
	}

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.QueueName = cfg.RabbitMQ.Queue
	queueCfg.RoutingKey = cfg.RabbitMQ.Queue
	queueCfg.MaxRetries = cfg.RabbitMQ.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer func() { _ = queueClient.Close() }()
	checkers["rabbitmq"] = queueClient.Healthy
	logger.Info("connected to RabbitMQ")

	var counters admission.CounterStore = admission.NewMemoryStore()
	if cfg.RateLimit.Store == "redis" {
		counters = admission.NewRedisStore(redisClient, "")
	}
	limiter := admission.NewLimiter(counters, cfg.RateLimit.Policies())

	verifier, err := identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	metadata := registry.NewCachedRegistry(
		registry.NewStoreRegistry(storageClient, buckets),
		cache.NewRedisMediaCache(redisClient),
		cfg.Redis.CacheTTL,
	)

	ffmpegCfg := transcoder.DefaultFFmpegConfig()
	ffmpegCfg.FFmpegPath = cfg.Ingest.FFmpegPath
	ffmpegCfg.FFprobePath = cfg.Ingest.FFprobePath
	ffmpegCfg.VideoPreset = cfg.Ingest.VideoPreset
	ffmpegCfg.HLSSegmentDuration = cfg.Ingest.SegmentSeconds
	ffmpegCfg.MaxParallel = cfg.Ingest.RenditionWorkers
	tc := transcoder.NewFFmpegTranscoder(ffmpegCfg, nil)

	ingestSvc := usecase.NewIngestService(storageClient, metadata, tc, attempts, queueClient, buckets, usecase.IngestServiceConfig{
		TempDir:           cfg.Ingest.TempDir,
		MaxUploadBytes:    cfg.Ingest.MaxUploadBytes,
		ThumbnailOffset:   cfg.Ingest.ThumbnailOffset,
		ThumbnailMaxWidth: cfg.Ingest.ThumbnailMaxWidth,
		PublishWorkers:    cfg.Ingest.PublishWorkers,
	})
	deliverySvc := usecase.NewDeliveryService(storageClient, metadata, buckets, usecase.DeliveryServiceConfig{
		PlaybackURLTTL: cfg.Delivery.PlaybackURLTTL,
		ReadURLTTL:     cfg.Delivery.ReadURLTTL,
		DefaultQuality: cfg.Delivery.DefaultQuality,
	})
	subscriptionSvc := usecase.NewSubscriptionService(metadata)

	var ingestKey middleware.KeyFunc
	if cfg.RateLimit.IngestKey == "caller" {
		ingestKey = middleware.CallerOrIP
	}

	r := api.NewRouter(api.RouterDeps{
		Logger:       logger,
		Verifier:     verifier,
		Limiter:      limiter,
		Media:        handler.NewMediaHandler(ingestSvc, deliverySvc, cfg.Ingest.MaxUploadBytes, cfg.Ingest.UploadTimeout),
		Subscription: handler.NewSubscriptionHandler(subscriptionSvc),
		Health:       handler.NewHealthHandler(checkers),
		IngestKey:    ingestKey,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	// In-flight uploads keep running after Shutdown's deadline because
	// ingestion ignores request cancellation.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
