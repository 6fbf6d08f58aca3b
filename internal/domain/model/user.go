package model

import (
	"errors"
	"strings"
)

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// ParseRole maps an asserted role string to a Role. Unknown values are guests.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return RoleGuest
	}
}

// Tier is a user's subscription tier.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

var ErrInvalidTier = errors.New("invalid subscription tier")

// ParseTier accepts "standard", "premium" and the legacy "free" alias.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "free":
		return TierStandard, nil
	case "premium":
		return TierPremium, nil
	default:
		return "", ErrInvalidTier
	}
}

// Identity is the decoded identity assertion of a caller.
type Identity struct {
	UserID string
	Role   Role
	Tier   Tier
}

// GuestIdentity is used when a request carries no identity assertion.
func GuestIdentity() Identity {
	return Identity{UserID: "guest", Role: RoleGuest, Tier: TierStandard}
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsGuest() bool {
	return i.Role == RoleGuest || i.Role == ""
}

// UserAccount is owned by the account service; the pipeline reads it and
// only ever changes its tier.
type UserAccount struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"passwordHash,omitempty"`
	Role         Role         `json:"role"`
	Subscription Tier         `json:"subscription"`
	CreatedAt    int64        `json:"createdAt"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

type UserProfile struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Course groups media assets into ordered lessons.
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Premium     bool     `json:"premium"`
	Lessons     []Lesson `json:"lessons"`
	CreatedAt   int64    `json:"createdAt"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

type Lesson struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Order           int      `json:"order"`
	MediaID         string   `json:"mediaId"`
	DurationSeconds *float64 `json:"duration,omitempty"`
}

// SubscriptionPlan describes a purchasable tier.
type SubscriptionPlan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tier     Tier     `json:"tier"`
	Price    float64  `json:"price"`
	Features []string `json:"features"`
}
