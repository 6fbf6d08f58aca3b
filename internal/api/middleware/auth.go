package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/identity"
)

// Authenticate decodes the bearer token of every request. Requests without
// a token continue as guests; requests with an invalid token are rejected.
func Authenticate(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := identity.BearerToken(header)
			if err != nil {
				writeError(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "Malformed Authorization header"})
				return
			}

			caller, err := verifier.Verify(token)
			if err != nil {
				slog.Debug("token rejected",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.Any("error", err),
				)
				writeError(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "Invalid token"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), caller)))
		})
	}
}

// RequireIngest rejects callers that may not upload before the request body
// is read. It must run after Authenticate.
func RequireIngest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := policy.AuthorizeIngest(IdentityFrom(r.Context()))
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case errors.Is(d.Err, policy.ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "Authentication required"})
		default:
			writeError(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: "Insufficient permissions"})
		}
	})
}
