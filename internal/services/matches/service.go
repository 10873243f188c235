package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrMatchNotFound = errors.New("match not found")
)

type MatchStore interface {
	GetByID(ctx context.Context, matchID int64) (pgrepo.MatchRecord, error)
	ListActiveForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchListRecord, error)
	ListActivePeerIDs(ctx context.Context, userID int64) ([]int64, error)
	Deactivate(ctx context.Context, tx pgx.Tx, matchID int64) (bool, error)
}

type LastMessage struct {
	Content   string
	IsOwn     bool
	IsRead    bool
	CreatedAt time.Time
}

type MatchView struct {
	MatchID      int64
	MatchedAt    time.Time
	PeerID       int64
	PeerName     string
	PeerAge      int
	PeerCity     string
	PeerPhotoURL string
	PeerOnlineAt time.Time
	LastMessage  *LastMessage
	UnreadCount  int
}

type Dependencies struct {
	Pool       *pgxpool.Pool
	MatchStore MatchStore
}

type Service struct {
	matches MatchStore
	runTx   func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	return &Service{
		matches: deps.MatchStore,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]MatchView, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matches == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	records, err := s.matches.ListActiveForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	views := make([]MatchView, 0, len(records))
	for _, rec := range records {
		view := MatchView{
			MatchID:      rec.ID,
			MatchedAt:    rec.MatchedAt,
			PeerID:       rec.PeerID,
			PeerName:     rec.PeerName,
			PeerAge:      rec.PeerAge,
			PeerCity:     rec.PeerCity,
			PeerPhotoURL: rec.PeerPhotoURL,
			PeerOnlineAt: rec.PeerOnlineAt,
			UnreadCount:  rec.UnreadCount,
		}
		if rec.LastContent != nil && rec.LastSenderID != nil && rec.LastCreatedAt != nil {
			view.LastMessage = &LastMessage{
				Content:   *rec.LastContent,
				IsOwn:     *rec.LastSenderID == userID,
				CreatedAt: *rec.LastCreatedAt,
			}
			if rec.LastIsRead != nil {
				view.LastMessage.IsRead = *rec.LastIsRead
			}
		}
		views = append(views, view)
	}

	return views, nil
}

// Unmatch deactivates the match and returns the peer's user id so the
// caller can notify them. The leftover swipe rows keep the pair out of each
// other's discovery feed, so the match never reactivates.
func (s *Service) Unmatch(ctx context.Context, userID, matchID int64) (int64, error) {
	if userID <= 0 || matchID <= 0 {
		return 0, ErrValidation
	}
	if s.matches == nil {
		return 0, fmt.Errorf("match dependencies are not configured")
	}

	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return 0, ErrMatchNotFound
		}
		return 0, fmt.Errorf("get match: %w", err)
	}
	if !match.HasParticipant(userID) {
		return 0, ErrMatchNotFound
	}

	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		deactivated, err := s.matches.Deactivate(txCtx, tx, matchID)
		if err != nil {
			return err
		}
		if !deactivated {
			return ErrMatchNotFound
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return match.PeerID(userID), nil
}

// PeerIDs lists the active counterparts of a user, used to fan out presence
// changes.
func (s *Service) PeerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matches == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}
	return s.matches.ListActivePeerIDs(ctx, userID)
}
