package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/mediagate/internal/api/middleware"
	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/usecase"
)

type ChangeSubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

type SubscriptionResponse struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Subscription string `json:"subscription"`
}

// SubscriptionHandler handles subscription tier requests.
type SubscriptionHandler struct {
	svc usecase.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(svc usecase.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// Get handles GET /v1/users/{id}/subscription
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetTier(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSubscriptionResponse(user))
}

// Change handles POST /v1/users/{id}/subscription
func (h *SubscriptionHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req ChangeSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	tier, err := model.ParseTier(req.Subscription)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.svc.ChangeTier(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"), tier)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSubscriptionResponse(user))
}

func toSubscriptionResponse(u *model.UserAccount) SubscriptionResponse {
	return SubscriptionResponse{
		UserID:       u.ID,
		Role:         string(u.Role),
		Subscription: string(u.Subscription),
	}
}
