package dto

import "time"

type NotificationResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ReferenceID int64     `json:"referenceId,omitempty"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type MarkNotificationsReadResponse struct {
	MarkedCount int64 `json:"markedCount"`
}
