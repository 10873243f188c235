package dto

import "time"

type LastMessageResponse struct {
	Content   string    `json:"content"`
	IsOwn     bool      `json:"isOwn"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type MatchItemResponse struct {
	MatchID      int64                `json:"matchId"`
	MatchedAt    time.Time            `json:"matchedAt"`
	PeerID       int64                `json:"peerId"`
	PeerName     string               `json:"peerName"`
	PeerAge      int                  `json:"peerAge"`
	PeerCity     string               `json:"peerCity,omitempty"`
	PeerPhotoURL string               `json:"peerPhotoUrl,omitempty"`
	PeerOnline   bool                 `json:"peerOnline"`
	LastMessage  *LastMessageResponse `json:"lastMessage,omitempty"`
	UnreadCount  int                  `json:"unreadCount"`
}

type MatchesResponse struct {
	Matches []MatchItemResponse `json:"matches"`
}

type UnmatchResponse struct {
	OK bool `json:"ok"`
}
