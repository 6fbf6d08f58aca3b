package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

// ReaperService removes objects left behind by failed ingestion attempts.
type ReaperService interface {
	// Reap deletes every object of the task's asset unless the asset was
	// published. Returns an error for transient failures that should be retried.
	Reap(ctx context.Context, task repository.CleanupTask) error

	// Sweep reaps up to limit attempts the ledger still lists as FAILED.
	// It covers failures whose cleanup task was never enqueued.
	Sweep(ctx context.Context, limit int) (int, error)
}

type reaperService struct {
	store    repository.ContentStore
	registry repository.MetadataRegistry
	attempts repository.AttemptRepository
	buckets  repository.Buckets
}

// NewReaperService creates a new ReaperService instance. attempts may be nil.
func NewReaperService(
	store repository.ContentStore,
	registry repository.MetadataRegistry,
	attempts repository.AttemptRepository,
	buckets repository.Buckets,
) ReaperService {
	return &reaperService{
		store:    store,
		registry: registry,
		attempts: attempts,
		buckets:  buckets,
	}
}

func (s *reaperService) Reap(ctx context.Context, task repository.CleanupTask) error {
	if task.AssetID == uuid.Nil {
		slog.Warn("cleanup task without asset id", "attempt_id", task.AttemptID)
		return nil
	}

	published, err := s.isPublished(ctx, task.AssetID)
	if err != nil {
		return err
	}
	if published {
		slog.Info("asset is published, nothing to reap", "asset_id", task.AssetID)
		return nil
	}

	prefix := model.AssetPrefix(task.AssetID)
	total := 0
	for _, bucket := range []string{s.buckets.ForFamily(task.Family), s.buckets.Thumbnails} {
		n, err := s.deletePrefix(ctx, bucket, prefix)
		total += n
		if err != nil {
			return fmt.Errorf("reap %s/%s: %w", bucket, prefix, err)
		}
	}

	slog.Info("orphaned objects reaped",
		slog.String("asset_id", task.AssetID.String()),
		slog.Int("objects", total),
	)
	s.markReaped(ctx, task.AttemptID)
	return nil
}

func (s *reaperService) Sweep(ctx context.Context, limit int) (int, error) {
	if s.attempts == nil {
		return 0, nil
	}
	failed, err := s.attempts.ListByStatus(ctx, model.AttemptFailed, limit)
	if err != nil {
		return 0, fmt.Errorf("list failed attempts: %w", err)
	}

	reaped := 0
	for _, attempt := range failed {
		task := repository.CleanupTask{
			AttemptID: attempt.ID,
			AssetID:   attempt.AssetID,
			Family:    attempt.Family,
		}
		if err := s.Reap(ctx, task); err != nil {
			slog.Warn("sweep failed for attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		reaped++
	}
	return reaped, nil
}

func (s *reaperService) isPublished(ctx context.Context, assetID uuid.UUID) (bool, error) {
	_, err := s.registry.LoadMedia(ctx, assetID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrDocumentNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load media: %w", err)
	}
}

func (s *reaperService) deletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	keys, err := s.store.ListKeys(ctx, bucket, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrBucketNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("list keys: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		if err := s.store.Delete(ctx, bucket, key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted++
		metrics.OrphansReapedTotal.Inc()
	}
	return deleted, nil
}

// markReaped is best-effort: the objects are already gone.
func (s *reaperService) markReaped(ctx context.Context, attemptID uuid.UUID) {
	if s.attempts == nil || attemptID == uuid.Nil {
		return
	}
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		slog.Warn("failed to load ingest attempt", "attempt_id", attemptID, "error", err)
		return
	}
	if err := attempt.TransitionTo(model.AttemptReaped); err != nil {
		return
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		slog.Warn("failed to mark attempt reaped", "attempt_id", attemptID, "error", err)
	}
}
