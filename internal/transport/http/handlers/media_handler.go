package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	mediasvc "github.com/sparklabs/spark/internal/services/media"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

const maxPhotoUploadSize = 12 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadSize)
	if err := r.ParseMultipartForm(maxPhotoUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "photo file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "photo file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	photo, err := h.service.Upload(r.Context(), identity.UserID, header.Filename, contentType, file, header.Size)
	if err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, uploadPhotoResponse(photo))
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	photos, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		handleMediaError(w, err)
		return
	}

	items := make([]dto.UploadPhotoResponse, 0, len(photos))
	for _, photo := range photos {
		items = append(items, uploadPhotoResponse(photo))
	}

	httperrors.Write(w, http.StatusOK, dto.PhotosResponse{Photos: items})
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	photoID, ok := photoIDFromURL(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid photo id")
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, photoID); err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeletePhotoResponse{OK: true})
}

func (h *MediaHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	photoID, ok := photoIDFromURL(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid photo id")
		return
	}

	if err := h.service.SetPrimary(r.Context(), identity.UserID, photoID); err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeletePhotoResponse{OK: true})
}

func handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrPhotoLimitReached):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "PHOTO_LIMIT_REACHED",
			Message: "photo limit reached, delete one first",
		})
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		writeBadRequest(w, "UNSUPPORTED_TYPE", "only jpeg, png, webp and gif photos are supported")
	case errors.Is(err, mediasvc.ErrPhotoNotFound):
		writeNotFound(w, "PHOTO_NOT_FOUND", "photo not found")
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid media request")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process media request")
	}
}

func uploadPhotoResponse(photo mediasvc.Photo) dto.UploadPhotoResponse {
	return dto.UploadPhotoResponse{
		ID:        photo.ID,
		URL:       photo.URL,
		IsPrimary: photo.IsPrimary,
		Position:  photo.Position,
		CreatedAt: photo.CreatedAt,
	}
}

func photoIDFromURL(r *http.Request) (int64, bool) {
	photoID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || photoID <= 0 {
		return 0, false
	}
	return photoID, true
}
