package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/hszk-dev/mediagate/internal/admission"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

// KeyFunc derives the admission identity key of a request.
type KeyFunc func(r *http.Request) string

// RateLimit rejects requests over the limit of class with 429.
func RateLimit(limiter *admission.Limiter, class admission.Class, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Check(r.Context(), keyFunc(r), class)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("class", string(class)),
					slog.Any("error", err),
				)
				metrics.AdmissionDecisionsTotal.WithLabelValues(string(class), metrics.AdmissionError).Inc()
				next.ServeHTTP(w, r)
				return
			}

			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(d.Limit)-d.Count, 0), 10))
			}

			if !d.Allowed {
				metrics.AdmissionDecisionsTotal.WithLabelValues(string(class), metrics.AdmissionLimited).Inc()
				retryAfter := d.RetryAfterSeconds()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, errorBody{
					Error:      "rate_limited",
					Message:    "Too many requests",
					RetryAfter: retryAfter,
				})
				return
			}

			metrics.AdmissionDecisionsTotal.WithLabelValues(string(class), metrics.AdmissionAllowed).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host of the remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// CallerOrIP keys authenticated callers by user id and everyone else by
// client address. It must run after Authenticate.
func CallerOrIP(r *http.Request) string {
	caller := IdentityFrom(r.Context())
	if !caller.IsGuest() && caller.UserID != "" {
		return "user:" + caller.UserID
	}
	return ClientIP(r)
}
