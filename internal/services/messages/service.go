package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/enums"
	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrEmptyMessage   = errors.New("message content is required")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrMatchNotFound  = errors.New("match not found")
)

type MessageStore interface {
	Insert(ctx context.Context, tx pgx.Tx, matchID, senderID int64, content, msgType string) (pgrepo.MessageRecord, error)
	ListBefore(ctx context.Context, matchID int64, before *time.Time, limit int) ([]pgrepo.MessageRecord, error)
	MarkReadFromPeer(ctx context.Context, matchID, readerID int64) (int64, error)
}

type MatchStore interface {
	GetByID(ctx context.Context, matchID int64) (pgrepo.MatchRecord, error)
}

type NameStore interface {
	DisplayName(ctx context.Context, tx pgx.Tx, userID int64) (string, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, tx pgx.Tx, userID int64, kind, title, body string, referenceID int64) error
}

type Config struct {
	MaxMessageLength int
	PreviewLength    int
	PageLimit        int
	PageLimitMax     int
}

type Message struct {
	ID        int64
	MatchID   int64
	SenderID  int64
	Content   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

type Page struct {
	Messages []Message
	HasMore  bool
	// ReadCount is how many peer messages flipped to read as a side
	// effect of this listing.
	ReadCount int64
}

type Appended struct {
	Message     Message
	RecipientID int64
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	MessageStore  MessageStore
	MatchStore    MatchStore
	NameStore     NameStore
	Notifications NotificationStore
}

type Service struct {
	messages      MessageStore
	matches       MatchStore
	names         NameStore
	notifications NotificationStore
	cfg           Config
	runTx         func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = rules.MaxMessageLength
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = rules.MessagePreviewLength
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = rules.MessagePageLimitDefault
	}
	if cfg.PageLimitMax <= 0 {
		cfg.PageLimitMax = rules.MessagePageLimitMax
	}

	return &Service{
		messages:      deps.MessageStore,
		matches:       deps.MatchStore,
		names:         deps.NameStore,
		notifications: deps.Notifications,
		cfg:           cfg,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Append writes a message to the conversation ledger and notifies the
// recipient in the same transaction. Both the REST handler and the websocket
// session funnel through here, so a client racing its own reconnect can at
// worst duplicate content, never lose it.
func (s *Service) Append(ctx context.Context, senderID, matchID int64, content, msgType string) (Appended, error) {
	if senderID <= 0 || matchID <= 0 {
		return Appended{}, ErrValidation
	}
	if s.messages == nil || s.matches == nil || s.notifications == nil {
		return Appended{}, fmt.Errorf("message dependencies are not configured")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return Appended{}, ErrEmptyMessage
	}
	if len([]rune(content)) > s.cfg.MaxMessageLength {
		return Appended{}, ErrMessageTooLong
	}

	kind := enums.MessageType(strings.ToLower(strings.TrimSpace(msgType)))
	if kind == "" {
		kind = enums.MessageTypeText
	}
	if !kind.Valid() {
		return Appended{}, ErrValidation
	}

	match, err := s.memberMatch(ctx, matchID, senderID)
	if err != nil {
		return Appended{}, err
	}
	recipientID := match.PeerID(senderID)

	var record pgrepo.MessageRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		inserted, err := s.messages.Insert(txCtx, tx, matchID, senderID, content, string(kind))
		if err != nil {
			return err
		}
		record = inserted

		senderName := "Someone"
		if s.names != nil {
			if name, nameErr := s.names.DisplayName(txCtx, tx, senderID); nameErr == nil && name != "" {
				senderName = name
			}
		}

		preview := rules.TruncatePreview(content, s.cfg.PreviewLength)
		body := fmt.Sprintf("%s: %s", senderName, preview)
		return s.notifications.Insert(txCtx, tx, recipientID, string(enums.NotificationKindMessage), "New Message", body, matchID)
	}); err != nil {
		return Appended{}, err
	}

	return Appended{
		Message:     toMessage(record),
		RecipientID: recipientID,
	}, nil
}

// List returns a page of the conversation in chronological order and marks
// the peer's unread messages as read. Reading the conversation is the read
// receipt.
func (s *Service) List(ctx context.Context, userID, matchID int64, before *time.Time, limit int) (Page, error) {
	if userID <= 0 || matchID <= 0 {
		return Page{}, ErrValidation
	}
	if s.messages == nil || s.matches == nil {
		return Page{}, fmt.Errorf("message dependencies are not configured")
	}

	if limit <= 0 {
		limit = s.cfg.PageLimit
	}
	if limit > s.cfg.PageLimitMax {
		limit = s.cfg.PageLimitMax
	}

	if _, err := s.memberMatch(ctx, matchID, userID); err != nil {
		return Page{}, err
	}

	// Flip the flag before fetching so the page the reader gets already
	// shows the peer's messages as read.
	readCount, err := s.messages.MarkReadFromPeer(ctx, matchID, userID)
	if err != nil {
		return Page{}, fmt.Errorf("mark messages read: %w", err)
	}

	records, err := s.messages.ListBefore(ctx, matchID, before, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list messages: %w", err)
	}

	page := Page{
		HasMore:   len(records) == limit,
		ReadCount: readCount,
	}
	// Storage returns newest first; the client reads top-down.
	page.Messages = make([]Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		page.Messages = append(page.Messages, toMessage(records[i]))
	}

	return page, nil
}

// MarkRead flips the peer's unread messages without returning a page. The
// websocket mark_read event uses this.
func (s *Service) MarkRead(ctx context.Context, userID, matchID int64) (int64, error) {
	if userID <= 0 || matchID <= 0 {
		return 0, ErrValidation
	}
	if s.messages == nil || s.matches == nil {
		return 0, fmt.Errorf("message dependencies are not configured")
	}

	if _, err := s.memberMatch(ctx, matchID, userID); err != nil {
		return 0, err
	}

	count, err := s.messages.MarkReadFromPeer(ctx, matchID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return count, nil
}

// MatchPeer resolves the other participant of an active match the user
// belongs to.
func (s *Service) MatchPeer(ctx context.Context, userID, matchID int64) (int64, error) {
	match, err := s.memberMatch(ctx, matchID, userID)
	if err != nil {
		return 0, err
	}
	return match.PeerID(userID), nil
}

func (s *Service) memberMatch(ctx context.Context, matchID, userID int64) (pgrepo.MatchRecord, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return pgrepo.MatchRecord{}, ErrMatchNotFound
		}
		return pgrepo.MatchRecord{}, fmt.Errorf("get match: %w", err)
	}
	if !match.IsActive || !match.HasParticipant(userID) {
		return pgrepo.MatchRecord{}, ErrMatchNotFound
	}
	return match, nil
}

func toMessage(rec pgrepo.MessageRecord) Message {
	return Message{
		ID:        rec.ID,
		MatchID:   rec.MatchID,
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		Type:      rec.Type,
		IsRead:    rec.IsRead,
		CreatedAt: rec.CreatedAt,
	}
}
