package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type NotificationStore interface {
	ListForUser(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]pgrepo.NotificationRecord, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type Notification struct {
	ID          int64
	Kind        string
	Title       string
	Body        string
	ReferenceID int64
	IsRead      bool
	CreatedAt   time.Time
}

type Service struct {
	store NotificationStore
}

func NewService(store NotificationStore) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if limit <= 0 || limit > rules.NotificationLimitMax {
		limit = rules.NotificationLimitMax
	}

	records, err := s.store.ListForUser(ctx, userID, limit, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	items := make([]Notification, 0, len(records))
	for _, rec := range records {
		items = append(items, Notification{
			ID:          rec.ID,
			Kind:        rec.Kind,
			Title:       rec.Title,
			Body:        rec.Body,
			ReferenceID: rec.ReferenceID,
			IsRead:      rec.IsRead,
			CreatedAt:   rec.CreatedAt,
		})
	}

	return items, nil
}

// MarkAllRead returns how many notifications flipped to read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	count, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}

	return count, nil
}
