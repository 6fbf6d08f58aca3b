// Package identity turns bearer tokens into caller identities.
package identity

import (
	"errors"
	"strings"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

var (
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingToken is returned when the Authorization header carries no bearer token.
	ErrMissingToken = errors.New("missing token")
)

// Verifier decodes an identity assertion.
type Verifier interface {
	Verify(token string) (model.Identity, error)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
