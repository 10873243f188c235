package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	swipesvc "github.com/sparklabs/spark/internal/services/swipes"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || strings.TrimSpace(req.Direction) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "targetId and direction are required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, req.Direction, timezoneFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrTargetNotFound):
			writeNotFound(w, "TARGET_NOT_FOUND", "target user not found")
		case errors.Is(err, swipesvc.ErrDailyLimitReached):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
				Code:    "SWIPE_LIMIT_REACHED",
				Message: "daily swipe limit reached",
			})
		case errors.Is(err, swipesvc.ErrSuperlikeLimitReached):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
				Code:    "SUPERLIKE_LIMIT_REACHED",
				Message: "daily superlike limit reached",
			})
		default:
			var tooFast swipesvc.TooFastError
			if errors.As(err, &tooFast) {
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many swipes, slow down",
					RetryAfterSec: tooFast.RetryAfterSec,
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		SwipeID:   result.SwipeID,
		Direction: result.Direction,
		IsMatch:   result.IsMatch,
		MatchID:   result.MatchID,
	})
}

func (h *SwipeHandler) Quota(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	quota, err := h.service.Quota(r.Context(), identity.UserID, timezoneFromRequest(r))
	if err != nil {
		if errors.Is(err, swipesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid quota request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load quota")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QuotaResponse{
		SwipesRemaining:     quota.SwipesRemaining,
		SuperlikesRemaining: quota.SuperlikesRemaining,
		Unlimited:           quota.Unlimited,
		ResetsAt:            quota.ResetsAt,
	})
}

func timezoneFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := strings.TrimSpace(r.Header.Get("X-Timezone")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("tz")); v != "" {
		return v
	}
	return ""
}
