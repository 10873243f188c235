package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	msgsvc "github.com/sparklabs/spark/internal/services/messages"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

// MessageBroadcaster pushes a persisted message to connected sessions.
// The REST path and the realtime path deliver through the same fan-out.
type MessageBroadcaster interface {
	DeliverMessage(appended msgsvc.Appended)
}

type MessagesHandler struct {
	service     *msgsvc.Service
	broadcaster MessageBroadcaster
}

func NewMessagesHandler(service *msgsvc.Service, broadcaster MessageBroadcaster) *MessagesHandler {
	return &MessagesHandler{service: service, broadcaster: broadcaster}
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGE_SERVICE_UNAVAILABLE", "message service is unavailable")
		return
	}

	matchID, ok := matchIDFromURL(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "before must be an RFC3339 timestamp")
			return
		}
		before = &parsed
	}

	page, err := h.service.List(r.Context(), identity.UserID, matchID, before, queryInt(r, "limit"))
	if err != nil {
		handleMessageError(w, err)
		return
	}

	messages := make([]dto.MessageResponse, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, messageResponse(msg, identity.UserID))
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{
		Messages: messages,
		HasMore:  page.HasMore,
	})
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGE_SERVICE_UNAVAILABLE", "message service is unavailable")
		return
	}

	matchID, ok := matchIDFromURL(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	appended, err := h.service.Append(r.Context(), identity.UserID, matchID, req.Content, req.Type)
	if err != nil {
		handleMessageError(w, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.DeliverMessage(appended)
	}

	httperrors.Write(w, http.StatusCreated, messageResponse(appended.Message, identity.UserID))
}

func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGE_SERVICE_UNAVAILABLE", "message service is unavailable")
		return
	}

	matchID, ok := matchIDFromURL(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	count, err := h.service.MarkRead(r.Context(), identity.UserID, matchID)
	if err != nil {
		handleMessageError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{ReadCount: count})
}

func handleMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, msgsvc.ErrEmptyMessage):
		writeBadRequest(w, "EMPTY_MESSAGE", "message content is empty")
	case errors.Is(err, msgsvc.ErrMessageTooLong):
		writeBadRequest(w, "MESSAGE_TOO_LONG", "message content is too long")
	case errors.Is(err, msgsvc.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, msgsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message request")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process message")
	}
}

func messageResponse(msg msgsvc.Message, viewerID int64) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		MatchID:   msg.MatchID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Type:      msg.Type,
		IsRead:    msg.IsRead,
		CreatedAt: msg.CreatedAt,
		IsOwn:     msg.SenderID == viewerID,
	}
}

func matchIDFromURL(r *http.Request) (int64, bool) {
	matchID, err := strconv.ParseInt(chi.URLParam(r, "matchId"), 10, 64)
	if err != nil || matchID <= 0 {
		return 0, false
	}
	return matchID, true
}
