package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

const (
	DefaultPlaybackURLTTL = time.Hour
	DefaultReadURLTTL     = time.Hour
	DefaultQuality        = "720p"
)

// PlaybackGrant is a signed, expiring playlist URL. It is never stored.
type PlaybackGrant struct {
	Asset     *model.MediaAsset
	Quality   string
	Language  string
	URL       string
	ExpiresAt time.Time
}

// AssetView is an asset's metadata with a signed thumbnail URL.
type AssetView struct {
	Asset        *model.MediaAsset
	ThumbnailURL string
}

// DeliveryService defines the read path of the pipeline.
type DeliveryService interface {
	// ResolvePlayback returns a signed playlist URL for one rendition.
	// An empty quality selects the default rendition; an empty language the
	// asset's default language.
	ResolvePlayback(ctx context.Context, caller model.Identity, assetID uuid.UUID, quality, language string) (*PlaybackGrant, error)

	// ResolveMetadata returns the asset record under the same access policy.
	ResolveMetadata(ctx context.Context, caller model.Identity, assetID uuid.UUID) (*AssetView, error)
}

// DeliveryServiceConfig holds configuration for DeliveryService.
type DeliveryServiceConfig struct {
	PlaybackURLTTL time.Duration
	ReadURLTTL     time.Duration
	DefaultQuality string
}

// DefaultDeliveryServiceConfig returns the default configuration.
func DefaultDeliveryServiceConfig() DeliveryServiceConfig {
	return DeliveryServiceConfig{
		PlaybackURLTTL: DefaultPlaybackURLTTL,
		ReadURLTTL:     DefaultReadURLTTL,
		DefaultQuality: DefaultQuality,
	}
}

type deliveryService struct {
	store    repository.ContentStore
	registry repository.MetadataRegistry
	buckets  repository.Buckets

	playbackTTL    time.Duration
	readTTL        time.Duration
	defaultQuality string
	now            func() time.Time
}

// NewDeliveryService creates a new DeliveryService instance.
// TTLs are capped at repository.MaxSignedURLExpiry.
func NewDeliveryService(
	store repository.ContentStore,
	registry repository.MetadataRegistry,
	buckets repository.Buckets,
	cfg DeliveryServiceConfig,
) DeliveryService {
	if cfg.DefaultQuality == "" {
		cfg.DefaultQuality = DefaultQuality
	}
	return &deliveryService{
		store:          store,
		registry:       registry,
		buckets:        buckets,
		playbackTTL:    clampTTL(cfg.PlaybackURLTTL, DefaultPlaybackURLTTL),
		readTTL:        clampTTL(cfg.ReadURLTTL, DefaultReadURLTTL),
		defaultQuality: cfg.DefaultQuality,
		now:            time.Now,
	}
}

func clampTTL(ttl, fallback time.Duration) time.Duration {
	if ttl <= 0 {
		return fallback
	}
	return min(ttl, repository.MaxSignedURLExpiry)
}

func (s *deliveryService) ResolvePlayback(ctx context.Context, caller model.Identity, assetID uuid.UUID, quality, language string) (*PlaybackGrant, error) {
	asset, err := s.authorizedAsset(ctx, caller, assetID)
	if err != nil {
		return nil, err
	}

	quality, err = s.chooseQuality(asset, quality)
	if err != nil {
		metrics.PlaybackDecisionsTotal.WithLabelValues(metrics.PlaybackNotFound).Inc()
		return nil, err
	}
	if language == "" {
		language = asset.DefaultLanguage()
	}

	expiresAt := s.now().Add(s.playbackTTL)
	url, err := s.store.SignedURL(ctx, s.buckets.ForFamily(asset.Family()), model.HLSPlaylistKey(asset.ID, quality), s.playbackTTL)
	if err != nil {
		return nil, fmt.Errorf("sign playlist url: %w", err)
	}

	metrics.PlaybackDecisionsTotal.WithLabelValues(metrics.PlaybackGranted).Inc()
	return &PlaybackGrant{
		Asset:     asset,
		Quality:   quality,
		Language:  language,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *deliveryService) ResolveMetadata(ctx context.Context, caller model.Identity, assetID uuid.UUID) (*AssetView, error) {
	asset, err := s.authorizedAsset(ctx, caller, assetID)
	if err != nil {
		return nil, err
	}

	view := &AssetView{Asset: asset}
	if asset.Thumbnail != "" {
		url, err := s.store.SignedURL(ctx, s.buckets.Thumbnails, asset.Thumbnail, s.readTTL)
		if err != nil {
			return nil, fmt.Errorf("sign thumbnail url: %w", err)
		}
		view.ThumbnailURL = url
	}
	return view, nil
}

// authorizedAsset loads an asset and applies the playback policy to it.
func (s *deliveryService) authorizedAsset(ctx context.Context, caller model.Identity, assetID uuid.UUID) (*model.MediaAsset, error) {
	asset, err := s.registry.LoadMedia(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			metrics.PlaybackDecisionsTotal.WithLabelValues(metrics.PlaybackNotFound).Inc()
		}
		return nil, fmt.Errorf("load media: %w", err)
	}

	if d := policy.EvaluatePlayback(caller.Role, caller.Tier, asset.AccessTier); !d.Allowed {
		metrics.PlaybackDecisionsTotal.WithLabelValues(metrics.PlaybackDenied).Inc()
		return nil, d.Err
	}
	return asset, nil
}

// chooseQuality falls back to the first rendition when the default one was
// not produced. An explicitly requested quality must exist.
func (s *deliveryService) chooseQuality(asset *model.MediaAsset, requested string) (string, error) {
	if requested != "" {
		if !asset.HasRendition(requested) {
			return "", fmt.Errorf("%w: %s", ErrRenditionNotFound, requested)
		}
		return requested, nil
	}
	if asset.HasRendition(s.defaultQuality) {
		return s.defaultQuality, nil
	}
	if len(asset.Renditions) == 0 {
		return "", ErrRenditionNotFound
	}
	return asset.Renditions[0], nil
}
