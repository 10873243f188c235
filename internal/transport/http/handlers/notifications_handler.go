package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	notifsvc "github.com/sparklabs/spark/internal/services/notifications"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

type NotificationsHandler struct {
	service *notifsvc.Service
}

func NewNotificationsHandler(service *notifsvc.Service) *NotificationsHandler {
	return &NotificationsHandler{service: service}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
	items, err := h.service.List(r.Context(), identity.UserID, queryInt(r, "limit"), unreadOnly)
	if err != nil {
		if errors.Is(err, notifsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid notifications request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load notifications")
		return
	}

	notifications := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, dto.NotificationResponse{
			ID:          item.ID,
			Kind:        item.Kind,
			Title:       item.Title,
			Body:        item.Body,
			ReferenceID: item.ReferenceID,
			IsRead:      item.IsRead,
			CreatedAt:   item.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationsResponse{Notifications: notifications})
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to mark notifications read")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkNotificationsReadResponse{MarkedCount: count})
}
