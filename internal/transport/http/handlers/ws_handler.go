package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/realtime"
	authsvc "github.com/sparklabs/spark/internal/services/auth"
)

type WSHandler struct {
	hub      *realtime.Hub
	auth     *authsvc.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, auth *authsvc.Service, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WSHandler{
		hub:    hub,
		auth:   auth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin browser clients connect with a token, not a cookie.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connect authenticates before upgrading. A failed credential terminates
// the request with 401 and no websocket handshake takes place.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil || h.auth == nil {
		writeInternal(w, "REALTIME_UNAVAILABLE", "realtime service is unavailable")
		return
	}

	token, ok := bearerOrQueryToken(r)
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "missing access token")
		return
	}

	identity, err := h.auth.ValidateAccessToken(r.Context(), token)
	if err != nil {
		writeUnauthorized(w, "UNAUTHORIZED", "invalid access token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	session := realtime.NewSession(h.hub, conn, identity.UserID, h.logger)
	// The connection outlives the HTTP exchange, so the session runs on a
	// context detached from the request deadline. Run blocks for the
	// lifetime of the connection.
	session.Run(context.WithoutCancel(r.Context()))
}

func bearerOrQueryToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
		return parts[1], true
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, true
	}
	return "", false
}
