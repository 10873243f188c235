package dto

import "time"

type SendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	MatchID   int64     `json:"matchId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	IsOwn     bool      `json:"isOwn"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"hasMore"`
}

type MarkReadResponse struct {
	ReadCount int64 `json:"readCount"`
}
