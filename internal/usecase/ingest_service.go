package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediagate/internal/transcoder"
)

const (
	// DefaultMaxUploadBytes is 10 GiB.
	DefaultMaxUploadBytes int64 = 10 << 30

	DefaultThumbnailOffset   = time.Second
	DefaultThumbnailMaxWidth = 640
)

// Upload is a raw media blob received from a client.
type Upload struct {
	Body io.Reader
	// Size is the length reported by the client; -1 when unknown.
	Size        int64
	Filename    string
	ContentType string
}

// IngestInput contains the input parameters for ingesting media.
type IngestInput struct {
	Caller    model.Identity
	Upload    *Upload
	Title     string
	Kind      model.Kind
	Premium   bool
	Languages []string
}

// IngestService defines the write path of the pipeline.
type IngestService interface {
	// Ingest validates an upload, transcodes it into renditions, publishes
	// them and writes the metadata record. The returned asset is published.
	Ingest(ctx context.Context, input IngestInput) (*model.MediaAsset, error)
}

// IngestServiceConfig holds configuration for IngestService.
type IngestServiceConfig struct {
	// TempDir is the base directory for workspaces. Empty means os.TempDir().
	TempDir           string
	MaxUploadBytes    int64
	ThumbnailOffset   time.Duration
	ThumbnailMaxWidth int
	// PublishWorkers bounds parallel uploads to the content store.
	PublishWorkers int
}

// DefaultIngestServiceConfig returns the default configuration.
func DefaultIngestServiceConfig() IngestServiceConfig {
	return IngestServiceConfig{
		TempDir:           os.TempDir(),
		MaxUploadBytes:    DefaultMaxUploadBytes,
		ThumbnailOffset:   DefaultThumbnailOffset,
		ThumbnailMaxWidth: DefaultThumbnailMaxWidth,
		PublishWorkers:    defaultPublishWorkers,
	}
}

type ingestService struct {
	store      repository.ContentStore
	registry   repository.MetadataRegistry
	transcoder transcoder.Transcoder
	attempts   repository.AttemptRepository
	cleanup    repository.CleanupQueue
	buckets    repository.Buckets
	clock      *model.Clock

	cfg       IngestServiceConfig
	normalize func(path string, maxWidth int) error
}

// NewIngestService creates a new IngestService instance.
// attempts and cleanup may be nil; the attempt ledger and orphan cleanup are
// then skipped.
func NewIngestService(
	store repository.ContentStore,
	registry repository.MetadataRegistry,
	tc transcoder.Transcoder,
	attempts repository.AttemptRepository,
	cleanup repository.CleanupQueue,
	buckets repository.Buckets,
	cfg IngestServiceConfig,
) IngestService {
	return &ingestService{
		store:      store,
		registry:   registry,
		transcoder: tc,
		attempts:   attempts,
		cleanup:    cleanup,
		buckets:    buckets,
		clock:      model.NewClock(),
		cfg:        cfg,
		normalize:  transcoder.NormalizeThumbnail,
	}
}

// Ingest runs detached from the caller's cancellation: once accepted, an
// attempt runs to completion or failure.
func (s *ingestService) Ingest(ctx context.Context, input IngestInput) (*model.MediaAsset, error) {
	ctx = context.WithoutCancel(ctx)

	asset, body, err := s.admit(input)
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues("unknown", metrics.IngestResultRejected).Inc()
		return nil, err
	}

	family := asset.Family().String()
	start := time.Now()
	logger := slog.With(
		slog.String("asset_id", asset.ID.String()),
		slog.String("kind", asset.Kind.String()),
	)

	attempt := s.startAttempt(ctx, asset)
	pub := &publisher{store: s.store, workers: s.cfg.PublishWorkers}

	if err := s.process(ctx, asset, body, input.Upload.Filename, pub); err != nil {
		logger.Error("ingestion failed", "error", err)
		s.failAttempt(ctx, attempt, asset, err, pub.written.Load())
		if errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrMissingFile) {
			metrics.IngestionsTotal.WithLabelValues(family, metrics.IngestResultRejected).Inc()
		} else {
			metrics.IngestionsTotal.WithLabelValues(family, metrics.IngestResultFailed).Inc()
		}
		return nil, err
	}

	s.completeAttempt(ctx, attempt)
	metrics.IngestionsTotal.WithLabelValues(family, metrics.IngestResultPublished).Inc()
	metrics.IngestDurationSeconds.WithLabelValues(family).Observe(time.Since(start).Seconds())
	metrics.PublishedObjectsTotal.WithLabelValues(s.buckets.ForFamily(asset.Family())).Add(float64(pub.written.Load()))
	logger.Info("media published",
		slog.Any("renditions", asset.Renditions),
		slog.Duration("elapsed", time.Since(start)),
	)
	return asset, nil
}

// admit runs every check that happens before a workspace or process exists.
func (s *ingestService) admit(input IngestInput) (*model.MediaAsset, io.Reader, error) {
	if d := policy.AuthorizeIngest(input.Caller); !d.Allowed {
		return nil, nil, d.Err
	}

	up := input.Upload
	if up == nil || up.Body == nil || up.Size == 0 {
		return nil, nil, ErrMissingFile
	}
	if s.cfg.MaxUploadBytes > 0 && up.Size > s.cfg.MaxUploadBytes {
		return nil, nil, ErrFileTooLarge
	}

	body, _, family, err := resolveMediaType(up.Body, up.ContentType)
	if err != nil {
		return nil, nil, err
	}

	kind, err := model.Classify(input.Kind, family)
	if err != nil {
		return nil, nil, err
	}

	asset, err := model.NewMediaAsset(input.Title, kind, model.TierFromPremium(input.Premium), input.Languages)
	if err != nil {
		return nil, nil, err
	}
	return asset, body, nil
}

// process transcodes and publishes. The metadata record is written last.
func (s *ingestService) process(ctx context.Context, asset *model.MediaAsset, body io.Reader, filename string, pub *publisher) error {
	ws, err := newWorkspace(s.cfg.TempDir, asset.ID)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := ws.remove(); err != nil {
			slog.Warn("failed to remove workspace", "dir", ws.dir, "error", err)
		}
	}()

	inputPath, err := ws.writeInput(body, filename, s.cfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}

	duration, err := s.transcoder.ProbeDuration(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}
	asset.SetDuration(duration)

	renditions := transcoder.RenditionsFor(asset.Family())
	thumbnailPath := ""

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.transcoder.ProduceRenditions(gctx, inputPath, ws.hlsDir(), renditions); err != nil {
			return fmt.Errorf("produce renditions: %w", err)
		}
		return nil
	})
	if asset.Family() == model.FamilyVideo {
		g.Go(func() error {
			thumbnailPath = s.makeThumbnail(gctx, asset, inputPath, ws.thumbnailPath())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	labels := transcoder.Labels(renditions)
	bucket := s.buckets.ForFamily(asset.Family())

	if _, err := pub.publishTree(ctx, bucket, os.DirFS(ws.hlsDir()), func(rel string) string {
		return model.HLSObjectKey(asset.ID, rel)
	}); err != nil {
		return fmt.Errorf("%w: upload renditions: %w", ErrPublishFailed, err)
	}

	if err := s.verifyPublished(ctx, bucket, asset, labels); err != nil {
		return err
	}

	if thumbnailPath != "" {
		key := model.ThumbnailKey(asset.ID)
		if err := pub.putLocalFile(ctx, s.buckets.Thumbnails, key, thumbnailPath); err != nil {
			return fmt.Errorf("%w: upload thumbnail: %w", ErrPublishFailed, err)
		}
		asset.Thumbnail = key
	}

	if err := asset.Publish(labels, s.clock.Next()); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if err := s.registry.SaveMedia(ctx, asset); err != nil {
		return fmt.Errorf("%w: save metadata: %w", ErrPublishFailed, err)
	}
	return nil
}

// makeThumbnail returns the path of a normalized thumbnail, or "" when none
// could be made. Failures never fail the attempt.
func (s *ingestService) makeThumbnail(ctx context.Context, asset *model.MediaAsset, inputPath, outputPath string) string {
	offset := s.cfg.ThumbnailOffset
	if asset.DurationSeconds != nil {
		length := time.Duration(*asset.DurationSeconds * float64(time.Second))
		if length > 0 && offset >= length {
			offset = 0
		}
	}

	if err := s.transcoder.ExtractThumbnail(ctx, inputPath, outputPath, offset); err != nil {
		slog.Warn("thumbnail extraction failed",
			slog.String("asset_id", asset.ID.String()),
			slog.Any("error", err),
		)
		return ""
	}
	if s.cfg.ThumbnailMaxWidth > 0 && s.normalize != nil {
		if err := s.normalize(outputPath, s.cfg.ThumbnailMaxWidth); err != nil {
			slog.Warn("thumbnail normalization failed",
				slog.String("asset_id", asset.ID.String()),
				slog.Any("error", err),
			)
			return ""
		}
	}
	return outputPath
}

// verifyPublished checks that every rendition playlist is listed in the store.
func (s *ingestService) verifyPublished(ctx context.Context, bucket string, asset *model.MediaAsset, labels []string) error {
	keys, err := s.store.ListKeys(ctx, bucket, model.HLSPrefix(asset.ID))
	if err != nil {
		return fmt.Errorf("%w: list published objects: %w", ErrPublishFailed, err)
	}
	for _, label := range labels {
		if !slices.Contains(keys, model.HLSPlaylistKey(asset.ID, label)) {
			return fmt.Errorf("%w: playlist of %s missing after upload", ErrPublishFailed, label)
		}
	}
	return nil
}

func (s *ingestService) startAttempt(ctx context.Context, asset *model.MediaAsset) *model.IngestAttempt {
	if s.attempts == nil {
		return nil
	}
	attempt := model.NewIngestAttempt(asset.ID, asset.Family())
	if err := s.attempts.Create(ctx, attempt); err != nil {
		slog.Warn("failed to record ingest attempt",
			slog.String("asset_id", asset.ID.String()),
			slog.Any("error", err),
		)
		return nil
	}
	return attempt
}

func (s *ingestService) completeAttempt(ctx context.Context, attempt *model.IngestAttempt) {
	if attempt == nil {
		return
	}
	if err := attempt.TransitionTo(model.AttemptPublished); err != nil {
		return
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		slog.Warn("failed to update ingest attempt",
			slog.String("attempt_id", attempt.ID.String()),
			slog.Any("error", err),
		)
	}
}

// failAttempt records the failure and, when objects may have been left in
// the store, schedules them for removal.
func (s *ingestService) failAttempt(ctx context.Context, attempt *model.IngestAttempt, asset *model.MediaAsset, cause error, written int64) {
	if attempt != nil {
		if err := attempt.Fail(cause.Error()); err == nil {
			if err := s.attempts.Update(ctx, attempt); err != nil {
				slog.Warn("failed to update ingest attempt",
					slog.String("attempt_id", attempt.ID.String()),
					slog.Any("error", err),
				)
			}
		}
	}

	if written == 0 && !errors.Is(cause, ErrPublishFailed) {
		return
	}
	if s.cleanup == nil {
		slog.Warn("orphaned objects left in store",
			slog.String("asset_id", asset.ID.String()),
			slog.Int64("objects", written),
		)
		return
	}

	task := repository.CleanupTask{AssetID: asset.ID, Family: asset.Family()}
	if attempt != nil {
		task.AttemptID = attempt.ID
	}
	if err := s.cleanup.PublishCleanupTask(ctx, task); err != nil {
		slog.Error("failed to enqueue cleanup task",
			slog.String("asset_id", asset.ID.String()),
			slog.Any("error", err),
		)
	}
}
