package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/transcoder"
	"github.com/hszk-dev/mediagate/internal/usecase"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, policy.ErrAdminRequired):
		Error(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
	case errors.Is(err, policy.ErrPremiumRequired):
		Error(w, http.StatusForbidden, "premium_required", "Premium subscription required")
	case errors.Is(err, repository.ErrDocumentNotFound):
		Error(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, usecase.ErrRenditionNotFound):
		Error(w, http.StatusNotFound, "rendition_not_found", "Requested quality is not available")
	case errors.Is(err, usecase.ErrMissingFile):
		Error(w, http.StatusBadRequest, "missing_file", "No file uploaded")
	case errors.Is(err, usecase.ErrFileTooLarge):
		Error(w, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the maximum upload size")
	case errors.Is(err, model.ErrUnsupportedMediaType):
		Error(w, http.StatusBadRequest, "unsupported_format", "Unsupported media format")
	case errors.Is(err, model.ErrKindConflict):
		Error(w, http.StatusBadRequest, "kind_conflict", "Declared type does not match the media format")
	case errors.Is(err, model.ErrInvalidKind):
		Error(w, http.StatusBadRequest, "invalid_type", "Type must be one of movie, tv, audio, course")
	case errors.Is(err, model.ErrEmptyTitle), errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", err.Error())
	case errors.Is(err, model.ErrInvalidLanguageTag):
		Error(w, http.StatusBadRequest, "invalid_language", "Invalid language tag")
	case errors.Is(err, model.ErrInvalidTier):
		Error(w, http.StatusBadRequest, "invalid_subscription", "Subscription must be standard or premium")
	case errors.Is(err, transcoder.ErrTranscodeFailed):
		Error(w, http.StatusInternalServerError, "transcode_failed", "Media could not be transcoded")
	case errors.Is(err, usecase.ErrPublishFailed):
		Error(w, http.StatusInternalServerError, "publish_failed", "Media could not be published")
	default:
		slog.Error("unhandled service error", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
