// Package api assembles the HTTP surface of the pipeline.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/mediagate/internal/admission"
	"github.com/hszk-dev/mediagate/internal/api/handler"
	"github.com/hszk-dev/mediagate/internal/api/middleware"
	"github.com/hszk-dev/mediagate/internal/identity"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Logger       *slog.Logger
	Verifier     identity.Verifier
	Limiter      *admission.Limiter
	Media        *handler.MediaHandler
	Subscription *handler.SubscriptionHandler
	Health       *handler.HealthHandler

	// IngestKey keys the ingest admission window. Nil keys it by client
	// address like the general class.
	IngestKey middleware.KeyFunc
}

// NewRouter builds the chi router. Every /v1 route is rate limited in the
// general class. Uploads from callers that may not ingest are rejected
// before they count against the ingest class or have their body read.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestIDHeader)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))

	r.Get("/health", deps.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Limiter, admission.ClassGeneral, middleware.ClientIP))
		r.Use(middleware.Authenticate(deps.Verifier))

		r.Route("/media", func(r chi.Router) {
			r.With(
				middleware.RequireIngest,
				middleware.RateLimit(deps.Limiter, admission.ClassIngest, deps.IngestKey),
			).Post("/upload", deps.Media.Upload)
			r.Get("/{id}", deps.Media.Get)
			r.Get("/{id}/stream", deps.Media.Stream)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/subscription", deps.Subscription.Get)
			r.Post("/subscription", deps.Subscription.Change)
		})
	})

	return r
}
