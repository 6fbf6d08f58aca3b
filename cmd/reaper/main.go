package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hszk-dev/mediagate/internal/config"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediagate/internal/infrastructure/queue"
	"github.com/hszk-dev/mediagate/internal/infrastructure/registry"
	"github.com/hszk-dev/mediagate/internal/infrastructure/storage"
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
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	buckets := cfg.MinIO.Buckets()
	storageClient, err := storage.NewClient(storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Region:    cfg.MinIO.Region,
		UseSSL:    cfg.MinIO.UseSSL,
		Buckets:   buckets,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if err := storageClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	// The reaper reads the registry directly: a stale cached copy must not
	// hide a published asset, nor a missing one make it look published.
	metadata := registry.NewStoreRegistry(storageClient, buckets)

	var attempts repository.AttemptRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		if _, err := pgClient.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		attempts = postgres.NewAttemptRepository(pgClient.Pool())
		logger.Info("connected to PostgreSQL")
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
	logger.Info("connected to RabbitMQ")

	reaper := usecase.NewReaperService(storageClient, metadata, attempts, buckets)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting reaper, consuming cleanup tasks")
		err := queueClient.ConsumeCleanupTasks(ctx, func(task repository.CleanupTask) error {
			logger.Info("processing cleanup task",
				slog.String("asset_id", task.AssetID.String()),
				slog.Int("retry_count", task.RetryCount),
			)
			return reaper.Reap(ctx, task)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	if attempts != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweepLoop(ctx, logger, reaper, cfg.Reaper.SweepInterval, cfg.Reaper.SweepLimit)
		}()
	}

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down reaper", slog.String("signal", sig.String()))
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight cleanup finished")
	case <-time.After(cfg.Reaper.ShutdownTimeout):
		logger.Warn("shutdown timeout exceeded, some cleanup may not have finished")
	}

	logger.Info("reaper stopped")
	return nil
}

// sweepLoop periodically reaps attempts whose cleanup task was never enqueued.
func sweepLoop(ctx context.Context, logger *slog.Logger, reaper usecase.ReaperService, interval time.Duration, limit int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := reaper.Sweep(ctx, limit)
			if err != nil {
				logger.Warn("sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("sweep reaped failed attempts", slog.Int("attempts", n))
			}
		}
	}
}
