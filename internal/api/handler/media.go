package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/api/middleware"
	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/policy"
	"github.com/hszk-dev/mediagate/internal/usecase"
)

const (
	// multipartMemory is how much of a multipart body is kept in memory
	// before parts spill to temporary files.
	multipartMemory = 32 << 20

	// multipartOverhead leaves room for the form fields and part headers
	// around the file itself.
	multipartOverhead = 1 << 20
)

// Request/Response types

type UploadResponse struct {
	ID       string        `json:"id"`
	Metadata MediaResponse `json:"metadata"`
}

type MediaResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Languages       []string `json:"languages"`
	Qualities       []string `json:"qualities"`
	AccessTier      string   `json:"access_tier"`
	Premium         bool     `json:"premium"`
	CreatedAt       int64    `json:"created_at"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
}

type StreamResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	ManifestURL string `json:"manifest_url"`
	Quality     string `json:"quality"`
	Language    string `json:"language"`
	ExpiresAt   string `json:"expires_at"`
}

// MediaHandler handles media ingestion and delivery requests.
type MediaHandler struct {
	ingest         usecase.IngestService
	delivery       usecase.DeliveryService
	maxUploadBytes int64
	uploadTimeout  time.Duration
}

// NewMediaHandler creates a new MediaHandler. maxUploadBytes <= 0 disables
// the request body limit. uploadTimeout replaces the server read and write
// deadlines for uploads; <= 0 removes them.
func NewMediaHandler(ingest usecase.IngestService, delivery usecase.DeliveryService, maxUploadBytes int64, uploadTimeout time.Duration) *MediaHandler {
	return &MediaHandler{
		ingest:         ingest,
		delivery:       delivery,
		maxUploadBytes: maxUploadBytes,
		uploadTimeout:  uploadTimeout,
	}
}

// Upload handles POST /v1/media/upload
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFrom(r.Context())
	if d := policy.AuthorizeIngest(caller); !d.Allowed {
		handleServiceError(w, d.Err)
		return
	}

	h.extendDeadlines(w, r)
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			handleServiceError(w, usecase.ErrFileTooLarge)
		case isTimeout(err):
			Error(w, http.StatusRequestTimeout, "request_timeout", "Upload did not complete in time")
		default:
			Error(w, http.StatusBadRequest, "invalid_request", "Request must be multipart/form-data")
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		handleServiceError(w, usecase.ErrMissingFile)
		return
	}
	defer func() { _ = file.Close() }()

	asset, err := h.ingest.Ingest(r.Context(), usecase.IngestInput{
		Caller: caller,
		Upload: &usecase.Upload{
			Body:        file,
			Size:        header.Size,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		},
		Title:     r.FormValue("title"),
		Kind:      model.Kind(strings.ToLower(strings.TrimSpace(r.FormValue("type")))),
		Premium:   r.FormValue("premium") == "true",
		Languages: splitLanguages(r.FormValue("languages")),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, UploadResponse{
		ID:       asset.ID.String(),
		Metadata: toMediaResponse(asset, ""),
	})
}

// extendDeadlines lifts the server-wide deadlines for the upload body.
// Writers that cannot change deadlines keep the server's.
func (h *MediaHandler) extendDeadlines(w http.ResponseWriter, r *http.Request) {
	var deadline time.Time
	if h.uploadTimeout > 0 {
		deadline = time.Now().Add(h.uploadTimeout)
	}
	rc := http.NewResponseController(w)
	if err := rc.SetReadDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("failed to extend upload read deadline",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.Any("error", err),
		)
	}
	_ = rc.SetWriteDeadline(deadline)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Stream handles GET /v1/media/{id}/stream
func (h *MediaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	grant, err := h.delivery.ResolvePlayback(r.Context(), middleware.IdentityFrom(r.Context()), assetID, q.Get("quality"), q.Get("language"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, StreamResponse{
		ID:          grant.Asset.ID.String(),
		Title:       grant.Asset.Title,
		Type:        grant.Asset.Kind.String(),
		ManifestURL: grant.URL,
		Quality:     grant.Quality,
		Language:    grant.Language,
		ExpiresAt:   grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Get handles GET /v1/media/{id}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	assetID, ok := parseAssetID(w, r)
	if !ok {
		return
	}

	view, err := h.delivery.ResolveMetadata(r.Context(), middleware.IdentityFrom(r.Context()), assetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toMediaResponse(view.Asset, view.ThumbnailURL))
}

func parseAssetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_media_id", "Media ID must be a valid UUID")
		return uuid.Nil, false
	}
	return assetID, true
}

func splitLanguages(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func toMediaResponse(a *model.MediaAsset, thumbnailURL string) MediaResponse {
	return MediaResponse{
		ID:              a.ID.String(),
		Title:           a.Title,
		Type:            a.Kind.String(),
		Languages:       a.Languages,
		Qualities:       a.Renditions,
		AccessTier:      string(a.AccessTier),
		Premium:         a.Premium,
		CreatedAt:       a.CreatedAt,
		DurationSeconds: a.DurationSeconds,
		Thumbnail:       a.Thumbnail,
		ThumbnailURL:    thumbnailURL,
	}
}
