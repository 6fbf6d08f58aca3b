package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

// SubscriptionService reads and changes a user's subscription tier.
type SubscriptionService interface {
	// GetTier returns the stored account of userID.
	GetTier(ctx context.Context, caller model.Identity, userID string) (*model.UserAccount, error)

	// ChangeTier sets the subscription tier of userID and returns the updated account.
	ChangeTier(ctx context.Context, caller model.Identity, userID string, tier model.Tier) (*model.UserAccount, error)
}

type subscriptionService struct {
	registry repository.MetadataRegistry
}

// NewSubscriptionService creates a new SubscriptionService instance.
func NewSubscriptionService(registry repository.MetadataRegistry) SubscriptionService {
	return &subscriptionService{registry: registry}
}

func (s *subscriptionService) GetTier(ctx context.Context, caller model.Identity, userID string) (*model.UserAccount, error) {
	if d := policy.AuthorizeTierChange(caller, userID); !d.Allowed {
		return nil, d.Err
	}
	user, err := s.registry.LoadUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *subscriptionService) ChangeTier(ctx context.Context, caller model.Identity, userID string, tier model.Tier) (*model.UserAccount, error) {
	if d := policy.AuthorizeTierChange(caller, userID); !d.Allowed {
		return nil, d.Err
	}
	if tier != model.TierStandard && tier != model.TierPremium {
		return nil, model.ErrInvalidTier
	}

	user, err := s.registry.LoadUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	// Legacy documents spell the standard tier "free"; leave them as stored.
	if current, err := model.ParseTier(string(user.Subscription)); err == nil && current == tier {
		return user, nil
	}

	previous := user.Subscription
	user.Subscription = tier
	if err := s.registry.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	slog.Info("subscription changed",
		slog.String("user_id", userID),
		slog.String("changed_by", caller.UserID),
		slog.String("from", string(previous)),
		slog.String("to", string(tier)),
	)
	return user, nil
}
