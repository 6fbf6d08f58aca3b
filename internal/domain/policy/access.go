// Package policy holds the access decisions of the pipeline. Every function
// here is pure: no I/O, no clock.
package policy

import (
	"errors"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

var (
	// ErrPremiumRequired is returned when a standard caller asks for premium media.
	ErrPremiumRequired = errors.New("premium subscription required")

	// ErrUnauthenticated is returned when an operation needs a known caller.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrAdminRequired is returned when a non-admin attempts an admin operation.
	ErrAdminRequired = errors.New("admin role required")
)

// Decision is the outcome of a policy evaluation. Err is nil when allowed.
type Decision struct {
	Allowed bool
	Err     error
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(err error) Decision {
	return Decision{Allowed: false, Err: err}
}

// EvaluatePlayback decides whether a caller may read an asset.
//
// Standard assets are open to everyone. Premium assets require either the
// admin role or a premium subscription.
func EvaluatePlayback(role model.Role, tier model.Tier, assetTier model.AccessTier) Decision {
	if assetTier != model.AccessPremium {
		return allow()
	}
	if role == model.RoleAdmin {
		return allow()
	}
	if tier == model.TierPremium {
		return allow()
	}
	return deny(ErrPremiumRequired)
}

// AuthorizeIngest allows only admins to ingest media.
func AuthorizeIngest(caller model.Identity) Decision {
	if caller.IsGuest() {
		return deny(ErrUnauthenticated)
	}
	if !caller.IsAdmin() {
		return deny(ErrAdminRequired)
	}
	return allow()
}

// AuthorizeTierChange decides whether caller may set targetUserID's tier.
// Admins may change anyone. A user may change their own tier; upgrades are
// not tied to a payment check yet.
func AuthorizeTierChange(caller model.Identity, targetUserID string) Decision {
	if caller.IsGuest() {
		return deny(ErrUnauthenticated)
	}
	if caller.IsAdmin() {
		return allow()
	}
	if caller.UserID != "" && caller.UserID == targetUserID {
		return allow()
	}
	return deny(ErrAdminRequired)
}
