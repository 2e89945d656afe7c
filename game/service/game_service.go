package service

import (
	"context"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/session"
)

// LobbyService defines every operation the transports need
type LobbyService interface {
	// Connection lifecycle
	Connect(conn session.Conn) *session.Session
	Handle(ctx context.Context, sess *session.Session, env protocol.Envelope)
	Disconnect(sess *session.Session)

	// Read-only views for the admin API
	Stats(ctx context.Context) Stats
	ListRooms(ctx context.Context) []protocol.RoomState
	GetRoom(ctx context.Context, id string) (protocol.RoomState, error)
}

// SessionRegistry defines session storage operations
type SessionRegistry interface {
	Register(s *session.Session)
	Unregister(s *session.Session) error
	BroadcastGlobal(msg protocol.Message) int
	Count() int
}

// RoomDirectory defines room storage operations
type RoomDirectory interface {
	Create(mode string, creator *session.Session) (*sala.Room, []sala.Delivery, error)
	Get(id string) (*sala.Room, error)
	ListPublic() []protocol.RoomSummary
	List() []protocol.RoomState
	Count() int
}
