package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/cache"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

// CachedRegistry wraps a MetadataRegistry with a cache-aside layer for media
// documents. Every other method goes straight to the delegate.
type CachedRegistry struct {
	repository.MetadataRegistry
	cache    cache.MediaCache
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// NewCachedRegistry creates a CachedRegistry wrapping delegate.
func NewCachedRegistry(delegate repository.MetadataRegistry, mediaCache cache.MediaCache, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{
		MetadataRegistry: delegate,
		cache:            mediaCache,
		cacheTTL:         ttl,
	}
}

// SaveMedia writes through to the delegate and drops any cached copy.
func (r *CachedRegistry) SaveMedia(ctx context.Context, asset *model.MediaAsset) error {
	if err := r.MetadataRegistry.SaveMedia(ctx, asset); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, asset.ID); err != nil {
		slog.Warn("failed to invalidate media cache",
			slog.String("asset_id", asset.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// LoadMedia uses singleflight to prevent cache stampede on concurrent
// requests for the same asset.
func (r *CachedRegistry) LoadMedia(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	result, err, shared := r.sfGroup.Do(id.String(), func() (any, error) {
		return r.loadWithCache(ctx, id)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Callers may mutate the asset; never hand out the shared pointer.
	return result.(*model.MediaAsset).Clone(), nil
}

// loadWithCache implements the cache-aside pattern.
func (r *CachedRegistry) loadWithCache(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	asset, err := r.cache.Get(ctx, id)
	if err != nil {
		slog.Warn("cache get failed, falling back to content store",
			slog.String("asset_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
	if asset != nil {
		return asset, nil
	}

	asset, err = r.MetadataRegistry.LoadMedia(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, asset, r.cacheTTL); err != nil {
		slog.Warn("failed to cache media",
			slog.String("asset_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
	return asset, nil
}
