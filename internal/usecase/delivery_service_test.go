package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

func seedAsset(t *testing.T, reg *mockRegistry, kind model.Kind, tier model.AccessTier, renditions []string) *model.MediaAsset {
	t.Helper()
	asset, err := model.NewMediaAsset("Seeded", kind, tier, []string{"fr", "en"})
	if err != nil {
		t.Fatalf("NewMediaAsset() error = %v", err)
	}
	if err := asset.Publish(renditions, 1700000000000); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := reg.SaveMedia(context.Background(), asset); err != nil {
		t.Fatalf("SaveMedia() error = %v", err)
	}
	return asset
}

func newTestDeliveryService(store *mockContentStore, reg *mockRegistry, cfg DeliveryServiceConfig) *deliveryService {
	svc := NewDeliveryService(store, reg, repository.DefaultBuckets(), cfg).(*deliveryService)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestNewDeliveryService_ClampsTTL(t *testing.T) {
	svc := NewDeliveryService(newMockContentStore(), newMockRegistry(), repository.DefaultBuckets(), DeliveryServiceConfig{
		PlaybackURLTTL: 30 * 24 * time.Hour,
	}).(*deliveryService)

	if svc.playbackTTL != repository.MaxSignedURLExpiry {
		t.Errorf("playbackTTL: got %v, expected %v", svc.playbackTTL, repository.MaxSignedURLExpiry)
	}
	if svc.readTTL != DefaultReadURLTTL {
		t.Errorf("readTTL: got %v, expected %v", svc.readTTL, DefaultReadURLTTL)
	}
	if svc.defaultQuality != DefaultQuality {
		t.Errorf("defaultQuality: got %q", svc.defaultQuality)
	}
}

func TestDeliveryService_ResolvePlayback(t *testing.T) {
	reg := newMockRegistry()
	store := newMockContentStore()
	var signedBucket, signedKey string
	var signedTTL time.Duration
	store.signedURLFn = func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		signedBucket, signedKey, signedTTL = bucket, key, expiry
		return "https://cdn.example/" + key, nil
	}
	svc := newTestDeliveryService(store, reg, DefaultDeliveryServiceConfig())

	video := seedAsset(t, reg, model.KindMovie, model.AccessStandard, []string{"480p", "720p"})
	audio := seedAsset(t, reg, model.KindAudio, model.AccessStandard, []string{"96k", "128k"})

	tests := []struct {
		name        string
		asset       *model.MediaAsset
		quality     string
		language    string
		wantQuality string
		wantLang    string
		wantBucket  string
		wantErr     error
	}{
		{"default quality", video, "", "", "720p", "fr", "videos", nil},
		{"explicit quality", video, "480p", "en", "480p", "en", "videos", nil},
		{"unknown quality", video, "1080p", "", "", "", "", ErrRenditionNotFound},
		{"audio falls back to first rendition", audio, "", "", "96k", "fr", "audio", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := svc.ResolvePlayback(context.Background(), model.GuestIdentity(), tt.asset.ID, tt.quality, tt.language)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolvePlayback() error = %v, expected %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePlayback() error = %v", err)
			}
			if grant.Quality != tt.wantQuality {
				t.Errorf("Quality: got %q, expected %q", grant.Quality, tt.wantQuality)
			}
			if grant.Language != tt.wantLang {
				t.Errorf("Language: got %q, expected %q", grant.Language, tt.wantLang)
			}
			wantKey := model.HLSPlaylistKey(tt.asset.ID, tt.wantQuality)
			if signedBucket != tt.wantBucket || signedKey != wantKey {
				t.Errorf("signed %s/%s, expected %s/%s", signedBucket, signedKey, tt.wantBucket, wantKey)
			}
			if signedTTL != time.Hour {
				t.Errorf("TTL: got %v, expected 1h", signedTTL)
			}
			if !grant.ExpiresAt.Equal(svc.now().Add(time.Hour)) {
				t.Errorf("ExpiresAt: got %v", grant.ExpiresAt)
			}
			if !strings.HasSuffix(grant.URL, wantKey) {
				t.Errorf("URL: got %q", grant.URL)
			}
		})
	}
}

func TestDeliveryService_ResolvePlayback_Policy(t *testing.T) {
	reg := newMockRegistry()
	svc := newTestDeliveryService(newMockContentStore(), reg, DefaultDeliveryServiceConfig())

	standard := seedAsset(t, reg, model.KindMovie, model.AccessStandard, []string{"480p", "720p"})
	premium := seedAsset(t, reg, model.KindMovie, model.AccessPremium, []string{"480p", "720p"})

	callers := []model.Identity{
		model.GuestIdentity(),
		{UserID: "u1", Role: model.RoleUser, Tier: model.TierStandard},
		{UserID: "u2", Role: model.RoleUser, Tier: model.TierPremium},
		{UserID: "a1", Role: model.RoleAdmin, Tier: model.TierStandard},
	}

	for _, caller := range callers {
		if _, err := svc.ResolvePlayback(context.Background(), caller, standard.ID, "", ""); err != nil {
			t.Errorf("%s/%s on standard asset: %v", caller.Role, caller.Tier, err)
		}

		_, err := svc.ResolvePlayback(context.Background(), caller, premium.ID, "", "")
		wantDeny := caller.Role != model.RoleAdmin && caller.Tier != model.TierPremium
		if wantDeny != errors.Is(err, policy.ErrPremiumRequired) {
			t.Errorf("%s/%s on premium asset: got %v, deny expected %v", caller.Role, caller.Tier, err, wantDeny)
		}
	}
}

func TestDeliveryService_ResolvePlayback_NotFound(t *testing.T) {
	svc := newTestDeliveryService(newMockContentStore(), newMockRegistry(), DefaultDeliveryServiceConfig())

	_, err := svc.ResolvePlayback(context.Background(), model.GuestIdentity(), uuid.New(), "", "")
	if !errors.Is(err, repository.ErrDocumentNotFound) {
		t.Errorf("ResolvePlayback() error = %v, expected ErrDocumentNotFound", err)
	}
}

func TestDeliveryService_ResolvePlayback_SignFailure(t *testing.T) {
	reg := newMockRegistry()
	store := newMockContentStore()
	store.signedURLFn = func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		return "", errors.New("presign failed")
	}
	svc := newTestDeliveryService(store, reg, DefaultDeliveryServiceConfig())
	asset := seedAsset(t, reg, model.KindMovie, model.AccessStandard, []string{"720p"})

	if _, err := svc.ResolvePlayback(context.Background(), model.GuestIdentity(), asset.ID, "", ""); err == nil {
		t.Error("expected error")
	}
}

func TestDeliveryService_ResolveMetadata(t *testing.T) {
	reg := newMockRegistry()
	store := newMockContentStore()
	var signedBucket string
	var signedTTL time.Duration
	store.signedURLFn = func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		signedBucket, signedTTL = bucket, expiry
		return "https://cdn.example/" + key, nil
	}
	svc := newTestDeliveryService(store, reg, DeliveryServiceConfig{ReadURLTTL: 10 * time.Minute})

	withThumb := seedAsset(t, reg, model.KindMovie, model.AccessStandard, []string{"720p"})
	withThumb.Thumbnail = model.ThumbnailKey(withThumb.ID)
	_ = reg.SaveMedia(context.Background(), withThumb)
	noThumb := seedAsset(t, reg, model.KindAudio, model.AccessStandard, []string{"128k"})
	premium := seedAsset(t, reg, model.KindMovie, model.AccessPremium, []string{"720p"})

	view, err := svc.ResolveMetadata(context.Background(), model.GuestIdentity(), withThumb.ID)
	if err != nil {
		t.Fatalf("ResolveMetadata() error = %v", err)
	}
	if view.ThumbnailURL == "" || signedBucket != "thumbnails" || signedTTL != 10*time.Minute {
		t.Errorf("thumbnail: url=%q bucket=%q ttl=%v", view.ThumbnailURL, signedBucket, signedTTL)
	}

	view, err = svc.ResolveMetadata(context.Background(), model.GuestIdentity(), noThumb.ID)
	if err != nil {
		t.Fatalf("ResolveMetadata() error = %v", err)
	}
	if view.ThumbnailURL != "" {
		t.Errorf("ThumbnailURL: got %q, expected none", view.ThumbnailURL)
	}

	if _, err := svc.ResolveMetadata(context.Background(), model.GuestIdentity(), premium.ID); !errors.Is(err, policy.ErrPremiumRequired) {
		t.Errorf("premium metadata as guest: got %v, expected ErrPremiumRequired", err)
	}
}
