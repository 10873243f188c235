package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	matchessvc "github.com/sparklabs/spark/internal/services/matches"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

// OnlineChecker reports realtime presence for the match list and relays
// match removal to connected peers.
type OnlineChecker interface {
	IsOnline(userID int64) bool
	NotifyUnmatch(matchID int64, userIDs ...int64)
}

type MatchesHandler struct {
	service  *matchessvc.Service
	presence OnlineChecker
}

func NewMatchesHandler(service *matchessvc.Service, presence OnlineChecker) *MatchesHandler {
	return &MatchesHandler{service: service, presence: presence}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	views, err := h.service.List(r.Context(), identity.UserID, queryInt(r, "limit"))
	if err != nil {
		if errors.Is(err, matchessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	matches := make([]dto.MatchItemResponse, 0, len(views))
	for _, view := range views {
		item := dto.MatchItemResponse{
			MatchID:      view.MatchID,
			MatchedAt:    view.MatchedAt,
			PeerID:       view.PeerID,
			PeerName:     view.PeerName,
			PeerAge:      view.PeerAge,
			PeerCity:     view.PeerCity,
			PeerPhotoURL: view.PeerPhotoURL,
			UnreadCount:  view.UnreadCount,
		}
		if h.presence != nil {
			item.PeerOnline = h.presence.IsOnline(view.PeerID)
		}
		if view.LastMessage != nil {
			item.LastMessage = &dto.LastMessageResponse{
				Content:   view.LastMessage.Content,
				IsOwn:     view.LastMessage.IsOwn,
				IsRead:    view.LastMessage.IsRead,
				CreatedAt: view.LastMessage.CreatedAt,
			}
		}
		matches = append(matches, item)
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Matches: matches})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	matchID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || matchID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	peerID, err := h.service.Unmatch(r.Context(), identity.UserID, matchID)
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		}
		return
	}

	if h.presence != nil {
		h.presence.NotifyUnmatch(matchID, peerID)
	}

	httperrors.Write(w, http.StatusOK, dto.UnmatchResponse{OK: true})
}
