package realtime

import (
	"encoding/json"
	"time"
)

// Client-sent event names.
const (
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventMarkRead    = "mark_read"
)

// Server-sent event names.
const (
	EventNewMessage   = "new_message"
	EventMessagesRead = "messages_read"
	EventUserStatus   = "user_status"
	EventMatchRemoved = "match_removed"
	EventError        = "error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SendMessagePayload struct {
	MatchID int64  `json:"matchId"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

type TypingPayload struct {
	MatchID int64 `json:"matchId"`
	UserID  int64 `json:"userId,omitempty"`
}

type MarkReadPayload struct {
	MatchID int64 `json:"matchId"`
}

type NewMessagePayload struct {
	ID        int64     `json:"id"`
	MatchID   int64     `json:"matchId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	IsOwn     bool      `json:"isOwn"`
}

type MessagesReadPayload struct {
	MatchID int64 `json:"matchId"`
	ReadBy  int64 `json:"readBy"`
}

type UserStatusPayload struct {
	UserID   int64 `json:"userId"`
	IsOnline bool  `json:"isOnline"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
