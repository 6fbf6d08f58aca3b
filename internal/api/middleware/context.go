package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	identityHolderKey
)

// identityHolder lets Logger see the identity set by middleware that runs
// after it.
type identityHolder struct {
	userID string
}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, identityHolderKey, h)
}

// RequestIDHeader echoes chi's request ID in the X-Request-Id response
// header. It must run after chimw.RequestID.
func RequestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := chimw.GetReqID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-Id", requestID)
		}
		next.ServeHTTP(w, r)
	})
}

// GetRequestID retrieves the request ID set by chimw.RequestID.
func GetRequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	if h, ok := ctx.Value(identityHolderKey).(*identityHolder); ok {
		h.userID = id.UserID
	}
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller identity, or the guest identity when the
// request was never authenticated.
func IdentityFrom(ctx context.Context) model.Identity {
	if id, ok := ctx.Value(identityKey).(model.Identity); ok {
		return id
	}
	return model.GuestIdentity()
}
