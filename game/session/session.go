package session

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyLoggedIn = errors.New("session already logged in")
	ErrInvalidName     = errors.New("invalid display name")
)

// Conn is the outbound side of a client connection. Send must not block on
// network I/O; implementations queue the message and return.
type Conn interface {
	ID() string
	RemoteAddr() string
	Send(msg protocol.Message) error
	Close() error
}

// Session is one connected client
type Session struct {
	conn   Conn
	logger *zap.Logger

	mu     sync.Mutex
	name   string
	roomID string
}

// New wraps conn in a fresh, anonymous session
func New(conn Conn, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		conn:   conn,
		logger: logger.With(zap.String("conn", conn.ID())),
	}
}

// ID returns the connection id
func (s *Session) ID() string { return s.conn.ID() }

// RemoteAddr returns the peer address of the underlying connection
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

// Name returns the display name, empty until login
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// LoggedIn reports whether SetName has succeeded
func (s *Session) LoggedIn() bool {
	return s.Name() != ""
}

// SetName assigns the display name. Surrounding whitespace is trimmed and an
// empty result is rejected. The name can only be set once.
func (s *Session) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != "" {
		return ErrAlreadyLoggedIn
	}
	s.name = name
	return nil
}

// RoomID returns the room the session is seated in, or ""
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SetRoomID records the room the session was seated in
func (s *Session) SetRoomID(id string) {
	s.mu.Lock()
	s.roomID = id
	s.mu.Unlock()
}

// ClearRoomID forgets the room only if it is still id. It returns whether
// the session was in that room.
func (s *Session) ClearRoomID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != id {
		return false
	}
	s.roomID = ""
	return true
}

// Send queues msg on the connection. A failed send closes the connection,
// which makes the owning gateway tear the session down.
func (s *Session) Send(msg protocol.Message) {
	if err := s.conn.Send(msg); err != nil {
		s.logger.Warn("Send failed, closing connection",
			zap.String("tipo", msg.Tipo),
			zap.Error(err))
		_ = s.conn.Close()
	}
}

// Close closes the underlying connection
func (s *Session) Close() error {
	return s.conn.Close()
}
