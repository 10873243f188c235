package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	safetysvc "github.com/sparklabs/spark/internal/services/safety"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

type SafetyHandler struct {
	service *safetysvc.Service
}

func NewSafetyHandler(service *safetysvc.Service) *SafetyHandler {
	return &SafetyHandler{service: service}
}

func (h *SafetyHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SAFETY_SERVICE_UNAVAILABLE", "safety service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.Block(r.Context(), identity.UserID, req.TargetID); err != nil {
		handleSafetyError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlockResponse{OK: true})
}

func (h *SafetyHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SAFETY_SERVICE_UNAVAILABLE", "safety service is unavailable")
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || targetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	if err := h.service.Unblock(r.Context(), identity.UserID, targetID); err != nil {
		if errors.Is(err, safetysvc.ErrNotBlocked) {
			writeNotFound(w, "NOT_BLOCKED", "user is not blocked")
			return
		}
		handleSafetyError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlockResponse{OK: true})
}

func (h *SafetyHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SAFETY_SERVICE_UNAVAILABLE", "safety service is unavailable")
		return
	}

	var req dto.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	reportID, err := h.service.Report(r.Context(), identity.UserID, req.TargetID, req.Reason, req.Description)
	if err != nil {
		handleSafetyError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ReportResponse{ReportID: reportID})
}

func handleSafetyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, safetysvc.ErrTargetNotFound):
		writeNotFound(w, "TARGET_NOT_FOUND", "target user not found")
	case errors.Is(err, safetysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid safety request")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process safety request")
	}
}
