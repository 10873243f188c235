package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	msgsvc "github.com/sparklabs/spark/internal/services/messages"
)

type connStub struct{}

func (connStub) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (connStub) WriteMessage(int, []byte) error    { return nil }
func (connStub) SetReadLimit(int64)                {}
func (connStub) SetReadDeadline(time.Time) error   { return nil }
func (connStub) SetWriteDeadline(time.Time) error  { return nil }
func (connStub) SetPongHandler(func(string) error) {}
func (connStub) Close() error                      { return nil }

type messengerFake struct {
	nextID    int64
	peers     map[int64]map[int64]int64
	readCount int64
	appendErr error
}

func (m *messengerFake) Append(_ context.Context, senderID, matchID int64, content, msgType string) (msgsvc.Appended, error) {
	if m.appendErr != nil {
		return msgsvc.Appended{}, m.appendErr
	}
	peerID, err := m.MatchPeer(context.Background(), senderID, matchID)
	if err != nil {
		return msgsvc.Appended{}, err
	}
	if msgType == "" {
		msgType = "text"
	}
	m.nextID++
	return msgsvc.Appended{
		Message: msgsvc.Message{
			ID:        m.nextID,
			MatchID:   matchID,
			SenderID:  senderID,
			Content:   content,
			Type:      msgType,
			CreatedAt: time.Now().UTC(),
		},
		RecipientID: peerID,
	}, nil
}

func (m *messengerFake) MarkRead(context.Context, int64, int64) (int64, error) {
	return m.readCount, nil
}

func (m *messengerFake) MatchPeer(_ context.Context, userID, matchID int64) (int64, error) {
	members, ok := m.peers[matchID]
	if !ok {
		return 0, msgsvc.ErrMatchNotFound
	}
	peerID, ok := members[userID]
	if !ok {
		return 0, msgsvc.ErrMatchNotFound
	}
	return peerID, nil
}

type peerListerFake struct {
	peers map[int64][]int64
}

func (p *peerListerFake) PeerIDs(_ context.Context, userID int64) ([]int64, error) {
	return p.peers[userID], nil
}

func newHubForTest(messenger *messengerFake, peers *peerListerFake) *Hub {
	if messenger == nil {
		messenger = &messengerFake{}
	}
	if peers == nil {
		peers = &peerListerFake{}
	}
	return NewHub(messenger, peers, nil)
}

func connect(t *testing.T, hub *Hub, userID int64) *Session {
	t.Helper()
	sess := NewSession(hub, connStub{}, userID, nil)
	hub.Register(context.Background(), sess)
	return sess
}

func recvEvent(t *testing.T, sess *Session) Envelope {
	t.Helper()
	select {
	case frame := <-sess.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Envelope{}
	}
}

func assertNoEvent(t *testing.T, sess *Session) {
	t.Helper()
	select {
	case frame := <-sess.send:
		t.Fatalf("unexpected event: %s", frame)
	default:
	}
}

func TestRegisterBroadcastsOnlineStatus(t *testing.T) {
	hub := newHubForTest(nil, &peerListerFake{peers: map[int64][]int64{
		1: {2, 3},
		2: {1},
	}})

	bob := connect(t, hub, 2)
	alice := connect(t, hub, 1)

	env := recvEvent(t, bob)
	if env.Event != EventUserStatus {
		t.Fatalf("expected user_status, got %s", env.Event)
	}
	var status UserStatusPayload
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.UserID != 1 || !status.IsOnline {
		t.Fatalf("unexpected status: %+v", status)
	}

	// User 3 is a peer but not connected, nothing to assert there. Alice
	// got no status because Bob connected before she did.
	assertNoEvent(t, alice)

	hub.Unregister(context.Background(), alice)
	env = recvEvent(t, bob)
	if env.Event != EventUserStatus {
		t.Fatalf("expected user_status, got %s", env.Event)
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.UserID != 1 || status.IsOnline {
		t.Fatalf("expected offline status, got %+v", status)
	}
}

func TestSecondConnectionSupersedesFirst(t *testing.T) {
	hub := newHubForTest(nil, nil)

	first := connect(t, hub, 1)
	second := connect(t, hub, 1)

	select {
	case <-first.done:
	case <-time.After(time.Second):
		t.Fatal("superseded session not closed")
	}

	if !hub.IsOnline(1) {
		t.Fatal("expected user still online through the new session")
	}

	// A stale unregister from the first session must not evict the second.
	hub.Unregister(context.Background(), first)
	if !hub.IsOnline(1) {
		t.Fatal("stale unregister removed the active session")
	}

	hub.Unregister(context.Background(), second)
	if hub.IsOnline(1) {
		t.Fatal("expected user offline")
	}
}

func TestSendMessageDeliversBothCopies(t *testing.T) {
	messenger := &messengerFake{peers: map[int64]map[int64]int64{
		10: {1: 2, 2: 1},
	}}
	hub := newHubForTest(messenger, nil)

	alice := connect(t, hub, 1)
	bob := connect(t, hub, 2)

	raw, _ := json.Marshal(Envelope{
		Event: EventSendMessage,
		Data:  json.RawMessage(`{"matchId":10,"content":"hey"}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	own := recvEvent(t, alice)
	if own.Event != EventNewMessage {
		t.Fatalf("expected new_message echo, got %s", own.Event)
	}
	var ownMsg NewMessagePayload
	if err := json.Unmarshal(own.Data, &ownMsg); err != nil {
		t.Fatalf("unmarshal echo: %v", err)
	}
	if !ownMsg.IsOwn || ownMsg.Content != "hey" {
		t.Fatalf("unexpected echo: %+v", ownMsg)
	}

	theirs := recvEvent(t, bob)
	var peerMsg NewMessagePayload
	if err := json.Unmarshal(theirs.Data, &peerMsg); err != nil {
		t.Fatalf("unmarshal peer copy: %v", err)
	}
	if peerMsg.IsOwn || peerMsg.SenderID != 1 {
		t.Fatalf("unexpected peer copy: %+v", peerMsg)
	}
}

func TestSendMessageErrorGoesToOriginOnly(t *testing.T) {
	messenger := &messengerFake{appendErr: msgsvc.ErrEmptyMessage}
	hub := newHubForTest(messenger, nil)

	alice := connect(t, hub, 1)
	bob := connect(t, hub, 2)

	raw, _ := json.Marshal(Envelope{
		Event: EventSendMessage,
		Data:  json.RawMessage(`{"matchId":10,"content":""}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	env := recvEvent(t, alice)
	if env.Event != EventError {
		t.Fatalf("expected error event, got %s", env.Event)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if payload.Message != "message content is empty" {
		t.Fatalf("unexpected error message: %q", payload.Message)
	}
	assertNoEvent(t, bob)
}

func TestTypingRelayedToPeer(t *testing.T) {
	messenger := &messengerFake{peers: map[int64]map[int64]int64{
		10: {1: 2, 2: 1},
	}}
	hub := newHubForTest(messenger, nil)

	alice := connect(t, hub, 1)
	bob := connect(t, hub, 2)

	raw, _ := json.Marshal(Envelope{
		Event: EventTypingStart,
		Data:  json.RawMessage(`{"matchId":10}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	env := recvEvent(t, bob)
	if env.Event != EventTypingStart {
		t.Fatalf("expected typing_start, got %s", env.Event)
	}
	var typing TypingPayload
	if err := json.Unmarshal(env.Data, &typing); err != nil {
		t.Fatalf("unmarshal typing: %v", err)
	}
	if typing.MatchID != 10 || typing.UserID != 1 {
		t.Fatalf("unexpected typing payload: %+v", typing)
	}
	assertNoEvent(t, alice)
}

func TestTypingForUnknownMatchIsSilent(t *testing.T) {
	hub := newHubForTest(&messengerFake{}, nil)

	alice := connect(t, hub, 1)

	raw, _ := json.Marshal(Envelope{
		Event: EventTypingStop,
		Data:  json.RawMessage(`{"matchId":99}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	assertNoEvent(t, alice)
}

func TestMarkReadNotifiesPeer(t *testing.T) {
	messenger := &messengerFake{
		peers:     map[int64]map[int64]int64{10: {1: 2, 2: 1}},
		readCount: 3,
	}
	hub := newHubForTest(messenger, nil)

	alice := connect(t, hub, 1)
	bob := connect(t, hub, 2)

	raw, _ := json.Marshal(Envelope{
		Event: EventMarkRead,
		Data:  json.RawMessage(`{"matchId":10}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	env := recvEvent(t, bob)
	if env.Event != EventMessagesRead {
		t.Fatalf("expected messages_read, got %s", env.Event)
	}
	var payload MessagesReadPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.MatchID != 10 || payload.ReadBy != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	assertNoEvent(t, alice)
}

func TestMarkReadWithNothingUnreadStillNotifiesPeer(t *testing.T) {
	messenger := &messengerFake{
		peers: map[int64]map[int64]int64{10: {1: 2, 2: 1}},
	}
	hub := newHubForTest(messenger, nil)

	alice := connect(t, hub, 1)
	bob := connect(t, hub, 2)

	raw, _ := json.Marshal(Envelope{
		Event: EventMarkRead,
		Data:  json.RawMessage(`{"matchId":10}`),
	})
	hub.handleEvent(context.Background(), alice, raw)

	env := recvEvent(t, bob)
	if env.Event != EventMessagesRead {
		t.Fatalf("expected messages_read even with nothing unread, got %s", env.Event)
	}
	assertNoEvent(t, alice)
}

func TestFanOutToClosingSessionDoesNotPanic(t *testing.T) {
	hub := newHubForTest(nil, nil)

	alice := connect(t, hub, 1)
	// The reader is gone and the session is closing, but the hub still
	// holds it in the presence map until Unregister runs.
	alice.close()

	hub.sendToUser(1, EventUserStatus, UserStatusPayload{UserID: 2, IsOnline: true})
	hub.sendToUser(1, EventUserStatus, UserStatusPayload{UserID: 2, IsOnline: false})

	assertNoEvent(t, alice)
}

func TestFanOutAfterBufferOverflowDoesNotPanic(t *testing.T) {
	hub := newHubForTest(nil, nil)

	alice := connect(t, hub, 1)
	frame := []byte(`{"event":"user_status","data":{}}`)
	for alice.enqueue(frame) {
	}

	// The overflow send drops the session, later fan-outs still hold a
	// reference fetched before the drop.
	hub.sendToUser(1, EventUserStatus, UserStatusPayload{UserID: 2, IsOnline: true})
	hub.sendToUser(1, EventUserStatus, UserStatusPayload{UserID: 2, IsOnline: true})

	select {
	case <-alice.done:
	case <-time.After(time.Second):
		t.Fatal("overflowed session was not closed")
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	hub := newHubForTest(nil, nil)

	alice := connect(t, hub, 1)
	hub.handleEvent(context.Background(), alice, []byte("{not json"))

	assertNoEvent(t, alice)
}

func TestUnknownEventIsDropped(t *testing.T) {
	hub := newHubForTest(nil, nil)

	alice := connect(t, hub, 1)
	raw, _ := json.Marshal(Envelope{Event: "dance", Data: json.RawMessage(`{}`)})
	hub.handleEvent(context.Background(), alice, raw)

	assertNoEvent(t, alice)
}
