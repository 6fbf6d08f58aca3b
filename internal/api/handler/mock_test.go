package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/usecase"
)

type mockIngestService struct {
	ingestFn func(ctx context.Context, input usecase.IngestInput) (*model.MediaAsset, error)
}

func (m *mockIngestService) Ingest(ctx context.Context, input usecase.IngestInput) (*model.MediaAsset, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, input)
	}
	return nil, nil
}

type mockDeliveryService struct {
	resolvePlaybackFn func(ctx context.Context, caller model.Identity, assetID uuid.UUID, quality, language string) (*usecase.PlaybackGrant, error)
	resolveMetadataFn func(ctx context.Context, caller model.Identity, assetID uuid.UUID) (*usecase.AssetView, error)
}

func (m *mockDeliveryService) ResolvePlayback(ctx context.Context, caller model.Identity, assetID uuid.UUID, quality, language string) (*usecase.PlaybackGrant, error) {
	if m.resolvePlaybackFn != nil {
		return m.resolvePlaybackFn(ctx, caller, assetID, quality, language)
	}
	return nil, nil
}

func (m *mockDeliveryService) ResolveMetadata(ctx context.Context, caller model.Identity, assetID uuid.UUID) (*usecase.AssetView, error) {
	if m.resolveMetadataFn != nil {
		return m.resolveMetadataFn(ctx, caller, assetID)
	}
	return nil, nil
}

type mockSubscriptionService struct {
	getTierFn    func(ctx context.Context, caller model.Identity, userID string) (*model.UserAccount, error)
	changeTierFn func(ctx context.Context, caller model.Identity, userID string, tier model.Tier) (*model.UserAccount, error)
}

func (m *mockSubscriptionService) GetTier(ctx context.Context, caller model.Identity, userID string) (*model.UserAccount, error) {
	if m.getTierFn != nil {
		return m.getTierFn(ctx, caller, userID)
	}
	return nil, nil
}

func (m *mockSubscriptionService) ChangeTier(ctx context.Context, caller model.Identity, userID string, tier model.Tier) (*model.UserAccount, error) {
	if m.changeTierFn != nil {
		return m.changeTierFn(ctx, caller, userID, tier)
	}
	return nil, nil
}
