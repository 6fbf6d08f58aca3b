package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// Claims is the payload issued by the account service.
type Claims struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	Subscription string `json:"subscription"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier creates a verifier. ttl is only used by Issue.
func NewJWTVerifier(secret string, ttl time.Duration) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for id. The pipeline never hands out tokens itself;
// this is used by tooling and tests.
func (v *JWTVerifier) Issue(id model.Identity) (string, error) {
	now := v.now()
	claims := Claims{
		UserID:       id.UserID,
		Role:         string(id.Role),
		Subscription: string(id.Tier),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(v.secret)
}

// Verify checks the signature and expiry of token and maps its claims.
// An unknown subscription value is treated as standard.
func (v *JWTVerifier) Verify(token string) (model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return model.Identity{}, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}

	tier, err := model.ParseTier(claims.Subscription)
	if err != nil {
		tier = model.TierStandard
	}
	return model.Identity{
		UserID: claims.UserID,
		Role:   model.ParseRole(claims.Role),
		Tier:   tier,
	}, nil
}
