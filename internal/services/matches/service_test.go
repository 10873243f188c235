package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

type matchStoreFake struct {
	matches     map[int64]pgrepo.MatchRecord
	list        []pgrepo.MatchListRecord
	deactivated []int64
}

func (s *matchStoreFake) GetByID(_ context.Context, matchID int64) (pgrepo.MatchRecord, error) {
	rec, ok := s.matches[matchID]
	if !ok {
		return pgrepo.MatchRecord{}, pgrepo.ErrMatchNotFound
	}
	return rec, nil
}

func (s *matchStoreFake) ListActiveForUser(context.Context, int64, int) ([]pgrepo.MatchListRecord, error) {
	return s.list, nil
}

func (s *matchStoreFake) ListActivePeerIDs(_ context.Context, userID int64) ([]int64, error) {
	var peers []int64
	for _, rec := range s.matches {
		if rec.IsActive && rec.HasParticipant(userID) {
			peers = append(peers, rec.PeerID(userID))
		}
	}
	return peers, nil
}

func (s *matchStoreFake) Deactivate(_ context.Context, _ pgx.Tx, matchID int64) (bool, error) {
	rec, ok := s.matches[matchID]
	if !ok || !rec.IsActive {
		return false, nil
	}
	rec.IsActive = false
	s.matches[matchID] = rec
	s.deactivated = append(s.deactivated, matchID)
	return true, nil
}

func newMatchesService(store *matchStoreFake) *Service {
	return &Service{
		matches: store,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return fn(ctx, nil)
		},
	}
}

func TestListMapsRecordsToViews(t *testing.T) {
	content := "see you there"
	senderID := int64(2)
	createdAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	isRead := true

	store := &matchStoreFake{list: []pgrepo.MatchListRecord{
		{
			ID:            10,
			PeerID:        2,
			PeerName:      "Bob",
			PeerAge:       31,
			PeerCity:      "Lisbon",
			PeerPhotoURL:  "https://cdn.example.com/p/2.jpg",
			MatchedAt:     createdAt.Add(-48 * time.Hour),
			LastContent:   &content,
			LastSenderID:  &senderID,
			LastCreatedAt: &createdAt,
			LastIsRead:    &isRead,
			UnreadCount:   3,
		},
		{ID: 11, PeerID: 3, PeerName: "Cara", PeerAge: 27},
	}}

	views, err := newMatchesService(store).List(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}

	first := views[0]
	if first.PeerName != "Bob" || first.PeerAge != 31 || first.UnreadCount != 3 {
		t.Fatalf("unexpected view: %+v", first)
	}
	if first.LastMessage == nil {
		t.Fatal("expected last message")
	}
	if first.LastMessage.IsOwn {
		t.Fatal("message from peer must not be own")
	}
	if !first.LastMessage.IsRead {
		t.Fatal("expected last message read flag")
	}

	if views[1].LastMessage != nil {
		t.Fatal("expected empty conversation to have no last message")
	}
}

func TestUnmatchDeactivates(t *testing.T) {
	store := &matchStoreFake{matches: map[int64]pgrepo.MatchRecord{
		10: {ID: 10, UserAID: 1, UserBID: 2, IsActive: true},
	}}
	svc := newMatchesService(store)

	peerID, err := svc.Unmatch(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if peerID != 2 {
		t.Fatalf("expected peer 2, got %d", peerID)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != 10 {
		t.Fatalf("expected match 10 deactivated, got %v", store.deactivated)
	}
}

func TestUnmatchRejectsNonMember(t *testing.T) {
	store := &matchStoreFake{matches: map[int64]pgrepo.MatchRecord{
		10: {ID: 10, UserAID: 1, UserBID: 2, IsActive: true},
	}}
	svc := newMatchesService(store)

	if _, err := svc.Unmatch(context.Background(), 5, 10); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if len(store.deactivated) != 0 {
		t.Fatal("non-member must not deactivate the match")
	}
}

func TestUnmatchMissingMatch(t *testing.T) {
	svc := newMatchesService(&matchStoreFake{matches: map[int64]pgrepo.MatchRecord{}})

	if _, err := svc.Unmatch(context.Background(), 1, 404); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestPeerIDs(t *testing.T) {
	store := &matchStoreFake{matches: map[int64]pgrepo.MatchRecord{
		10: {ID: 10, UserAID: 1, UserBID: 2, IsActive: true},
		11: {ID: 11, UserAID: 1, UserBID: 3, IsActive: false},
	}}
	svc := newMatchesService(store)

	peers, err := svc.PeerIDs(context.Background(), 1)
	if err != nil {
		t.Fatalf("peer ids: %v", err)
	}
	if len(peers) != 1 || peers[0] != 2 {
		t.Fatalf("expected only active peer 2, got %v", peers)
	}
}
