package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxEventSize   = 8 << 10
	sendBufferSize = 64
)

// Conn is the slice of *websocket.Conn the session uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Session is one authenticated realtime connection.
type Session struct {
	hub    *Hub
	conn   Conn
	userID int64
	logger *zap.Logger

	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewSession(hub *Hub, conn Conn, userID int64, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		hub:    hub,
		conn:   conn,
		userID: userID,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *Session) UserID() int64 {
	return s.userID
}

// Run registers the session and pumps until the connection drops.
// It blocks for the lifetime of the connection.
func (s *Session) Run(ctx context.Context) {
	s.hub.Register(ctx, s)
	defer s.hub.Unregister(ctx, s)

	go s.writePump()
	s.readPump(ctx)
}

func (s *Session) readPump(ctx context.Context) {
	defer s.close()

	s.conn.SetReadLimit(maxEventSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.Int64("user_id", s.userID), zap.Error(err))
			}
			return
		}

		s.hub.handleEvent(ctx, s, raw)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue reports false when the buffer is full, the hub then drops the
// session instead of blocking the fan-out path. Frames for a session
// that is already closing are discarded, fan-out may still hold a
// reference to it after the reader has gone.
func (s *Session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close signals shutdown through done instead of closing send, so a
// concurrent enqueue can never hit a closed channel.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
