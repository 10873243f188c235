package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	msgsvc "github.com/sparklabs/spark/internal/services/messages"
)

// Messenger is the slice of the message service the hub writes through.
// Realtime sends and REST sends share the same append path.
type Messenger interface {
	Append(ctx context.Context, senderID, matchID int64, content, msgType string) (msgsvc.Appended, error)
	MarkRead(ctx context.Context, userID, matchID int64) (int64, error)
	MatchPeer(ctx context.Context, userID, matchID int64) (int64, error)
}

type PeerLister interface {
	PeerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Hub keeps the in-process presence map. One session per user, a newer
// connection for the same user supersedes the older one.
type Hub struct {
	messenger Messenger
	peers     PeerLister
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewHub(messenger Messenger, peers PeerLister, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		messenger: messenger,
		peers:     peers,
		logger:    logger,
		sessions:  make(map[int64]*Session),
	}
}

// Register installs the session and announces the user online to every
// connected match peer.
func (h *Hub) Register(ctx context.Context, sess *Session) {
	h.mu.Lock()
	prev := h.sessions[sess.userID]
	h.sessions[sess.userID] = sess
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	h.broadcastStatus(ctx, sess.userID, true)
}

// Unregister removes the session unless a newer one already replaced it.
func (h *Hub) Unregister(ctx context.Context, sess *Session) {
	h.mu.Lock()
	current, ok := h.sessions[sess.userID]
	if ok && current == sess {
		delete(h.sessions, sess.userID)
	} else {
		ok = false
	}
	h.mu.Unlock()

	if ok {
		h.broadcastStatus(ctx, sess.userID, false)
	}
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// DeliverMessage pushes a persisted message to both participants. The
// sender's copy is tagged isOwn so a client can reconcile its echo.
func (h *Hub) DeliverMessage(appended msgsvc.Appended) {
	msg := appended.Message

	own := NewMessagePayload{
		ID:        msg.ID,
		MatchID:   msg.MatchID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Type:      msg.Type,
		IsRead:    msg.IsRead,
		CreatedAt: msg.CreatedAt,
		IsOwn:     true,
	}
	h.sendToUser(msg.SenderID, EventNewMessage, own)

	peer := own
	peer.IsOwn = false
	h.sendToUser(appended.RecipientID, EventNewMessage, peer)
}

// NotifyUnmatch tells both sides a match went away so open chats close.
func (h *Hub) NotifyUnmatch(matchID int64, userIDs ...int64) {
	payload := struct {
		MatchID int64 `json:"matchId"`
	}{MatchID: matchID}
	for _, id := range userIDs {
		h.sendToUser(id, EventMatchRemoved, payload)
	}
}

// Malformed frames and unknown events are logged and dropped so one bad
// event cannot poison the connection. The error event is reserved for
// send_message and mark_read failures the sender should see.
func (h *Hub) handleEvent(ctx context.Context, sess *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Debug("drop malformed frame", zap.Int64("user_id", sess.userID), zap.Error(err))
		return
	}

	switch env.Event {
	case EventSendMessage:
		h.handleSendMessage(ctx, sess, env.Data)
	case EventTypingStart, EventTypingStop:
		h.handleTyping(ctx, sess, env.Event, env.Data)
	case EventMarkRead:
		h.handleMarkRead(ctx, sess, env.Data)
	default:
		h.logger.Debug("drop unknown event", zap.Int64("user_id", sess.userID), zap.String("event", env.Event))
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, sess *Session, data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Debug("drop malformed send_message payload", zap.Int64("user_id", sess.userID), zap.Error(err))
		return
	}

	appended, err := h.messenger.Append(ctx, sess.userID, payload.MatchID, payload.Content, payload.Type)
	if err != nil {
		h.sendError(sess, appendErrorMessage(err))
		return
	}

	h.DeliverMessage(appended)
}

// Typing signals are a stateless relay: nothing is persisted and an
// invalid match is a silent no-op.
func (h *Hub) handleTyping(ctx context.Context, sess *Session, event string, data json.RawMessage) {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	peerID, err := h.messenger.MatchPeer(ctx, sess.userID, payload.MatchID)
	if err != nil {
		return
	}

	h.sendToUser(peerID, event, TypingPayload{
		MatchID: payload.MatchID,
		UserID:  sess.userID,
	})
}

func (h *Hub) handleMarkRead(ctx context.Context, sess *Session, data json.RawMessage) {
	var payload MarkReadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Debug("drop malformed mark_read payload", zap.Int64("user_id", sess.userID), zap.Error(err))
		return
	}

	// The peer hears about every successful mark_read, even one that
	// flipped nothing, so its unread badge converges.
	if _, err := h.messenger.MarkRead(ctx, sess.userID, payload.MatchID); err != nil {
		h.sendError(sess, appendErrorMessage(err))
		return
	}

	peerID, err := h.messenger.MatchPeer(ctx, sess.userID, payload.MatchID)
	if err != nil {
		return
	}

	h.sendToUser(peerID, EventMessagesRead, MessagesReadPayload{
		MatchID: payload.MatchID,
		ReadBy:  sess.userID,
	})
}

func (h *Hub) broadcastStatus(ctx context.Context, userID int64, online bool) {
	peerIDs, err := h.peers.PeerIDs(ctx, userID)
	if err != nil {
		h.logger.Warn("list match peers for presence", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	payload := UserStatusPayload{UserID: userID, IsOnline: online}
	for _, peerID := range peerIDs {
		h.sendToUser(peerID, EventUserStatus, payload)
	}
}

func (h *Hub) sendToUser(userID int64, event string, payload any) {
	h.mu.RLock()
	sess := h.sessions[userID]
	h.mu.RUnlock()
	if sess == nil {
		return
	}

	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("marshal realtime event", zap.String("event", event), zap.Error(err))
		return
	}

	if !sess.enqueue(frame) {
		h.logger.Warn("realtime send buffer full, dropping session", zap.Int64("user_id", userID))
		sess.close()
	}
}

// Errors go back to the originating connection only, never broadcast.
func (h *Hub) sendError(sess *Session, message string) {
	frame, err := marshalEnvelope(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	sess.enqueue(frame)
}

func appendErrorMessage(err error) string {
	switch {
	case errors.Is(err, msgsvc.ErrEmptyMessage):
		return "message content is empty"
	case errors.Is(err, msgsvc.ErrMessageTooLong):
		return "message content is too long"
	case errors.Is(err, msgsvc.ErrMatchNotFound):
		return "match not found"
	case errors.Is(err, msgsvc.ErrValidation):
		return "invalid payload"
	default:
		return "internal error"
	}
}
