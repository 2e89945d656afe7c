package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/session"
)

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	sessions SessionRegistry
	rooms    RoomDirectory
	logger   *zap.Logger
}

// NewLobbyService creates a new lobby service instance
func NewLobbyService(sessions SessionRegistry, rooms RoomDirectory, logger *zap.Logger) LobbyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lobbyServiceImpl{
		sessions: sessions,
		rooms:    rooms,
		logger:   logger.Named("lobby"),
	}
}

// Connect wraps a freshly accepted connection in a registered session
func (s *lobbyServiceImpl) Connect(conn session.Conn) *session.Session {
	sess := session.New(conn, s.logger)
	s.sessions.Register(sess)
	s.logger.Info("Client connected",
		zap.String("conn", sess.ID()),
		zap.String("remote", sess.RemoteAddr()))
	return sess
}

// Disconnect removes sess from the registry and from its room. Calling it
// more than once for the same session has no further effect.
func (s *lobbyServiceImpl) Disconnect(sess *session.Session) {
	if err := s.sessions.Unregister(sess); err != nil {
		return
	}
	if id := sess.RoomID(); id != "" {
		if err := s.leave(sess, id); err != nil && !errors.Is(err, sala.ErrNotSeated) && !errors.Is(err, sala.ErrRoomNotFound) {
			s.logger.Warn("Leave on disconnect failed", zap.String("conn", sess.ID()), zap.Error(err))
		}
	}
	s.logger.Info("Client disconnected",
		zap.String("conn", sess.ID()),
		zap.String("nombre", sess.Name()))
}

// Handle runs one inbound frame. It never panics and never returns an error:
// failures become ERROR frames for the sender or are dropped.
func (s *lobbyServiceImpl) Handle(ctx context.Context, sess *session.Session, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while handling command",
				zap.String("conn", sess.ID()),
				zap.String("tipo", env.Tipo),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			sess.Send(protocol.NewError("Error interno del servidor"))
		}
	}()

	cmd, err := protocol.ParseCommand(env)
	if errors.Is(err, protocol.ErrMissingField) && requiresLogin(env.Tipo) && !sess.LoggedIn() {
		err = ErrNotAuthenticated
	}
	if errors.Is(err, protocol.ErrProtocol) {
		s.logger.Debug("Dropping malformed payload",
			zap.String("conn", sess.ID()),
			zap.String("tipo", env.Tipo),
			zap.Error(err))
		return
	}
	if err == nil {
		err = s.dispatch(ctx, sess, cmd)
	}
	if err == nil {
		return
	}

	msg, report := errorMessage(cmd, env.Tipo, err)
	s.logger.Debug("Command rejected",
		zap.String("conn", sess.ID()),
		zap.String("tipo", env.Tipo),
		zap.Bool("reported", report),
		zap.Error(err))
	if report {
		sess.Send(protocol.NewError(msg))
	}
}

func (s *lobbyServiceImpl) dispatch(ctx context.Context, sess *session.Session, cmd protocol.Command) error {
	switch c := cmd.(type) {
	case protocol.Login:
		return s.login(sess, c)
	case protocol.ListRooms:
		sess.Send(protocol.NewRoomList(s.rooms.ListPublic()))
		return nil
	case protocol.GlobalChat:
		s.globalChat(sess, c)
		return nil
	}

	if !sess.LoggedIn() {
		return ErrNotAuthenticated
	}

	switch c := cmd.(type) {
	case protocol.CreateRoom:
		return s.createRoom(sess, c)
	case protocol.JoinRoom:
		return s.joinRoom(sess, c)
	case protocol.SetReady:
		room, err := s.rooms.Get(c.SalaID)
		if err != nil {
			return err
		}
		room.SetReady(sess, c.Listo)
		return nil
	case protocol.EndTurn:
		return s.onRoom(c.SalaID, func(r *sala.Room) ([]sala.Delivery, error) { return r.AdvanceTurn(sess) })
	case protocol.RollDie:
		return s.onRoom(c.SalaID, func(r *sala.Room) ([]sala.Delivery, error) { return r.RollDie(sess) })
	case protocol.RoomChat:
		return s.onRoom(c.SalaID, func(r *sala.Room) ([]sala.Delivery, error) { return r.Chat(sess, c.Texto) })
	case protocol.LeaveRoom:
		if err := s.leave(sess, c.SalaID); err != nil {
			return err
		}
		sess.Send(protocol.NewLeft(c.SalaID))
		return nil
	}

	return fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, cmd.Kind())
}

func (s *lobbyServiceImpl) login(sess *session.Session, c protocol.Login) error {
	if err := sess.SetName(c.Nombre); err != nil {
		return err
	}
	s.logger.Info("Client logged in",
		zap.String("conn", sess.ID()),
		zap.String("nombre", sess.Name()))
	sess.Send(protocol.NewLoginOK(sess.Name()))
	return nil
}

func (s *lobbyServiceImpl) globalChat(sess *session.Session, c protocol.GlobalChat) {
	if !sess.LoggedIn() || c.Texto == "" {
		return
	}
	s.sessions.BroadcastGlobal(protocol.NewGlobalMessage(sess.Name(), c.Texto))
}

func (s *lobbyServiceImpl) createRoom(sess *session.Session, c protocol.CreateRoom) error {
	_, _, err := s.rooms.Create(c.Modo, sess)
	return err
}

func (s *lobbyServiceImpl) joinRoom(sess *session.Session, c protocol.JoinRoom) error {
	if sess.RoomID() != "" {
		return sala.ErrAlreadySeated
	}
	return s.onRoom(c.SalaID, func(r *sala.Room) ([]sala.Delivery, error) { return r.Seat(sess) })
}

func (s *lobbyServiceImpl) leave(sess *session.Session, roomID string) error {
	return s.onRoom(roomID, func(r *sala.Room) ([]sala.Delivery, error) { return r.Unseat(sess) })
}

// onRoom looks up a room and applies op. The room sends its own broadcasts.
func (s *lobbyServiceImpl) onRoom(id string, op func(*sala.Room) ([]sala.Delivery, error)) error {
	room, err := s.rooms.Get(id)
	if err != nil {
		return err
	}
	_, err = op(room)
	return err
}

// Stats returns the live session and room counters
func (s *lobbyServiceImpl) Stats(ctx context.Context) Stats {
	return Stats{
		Sesiones: s.sessions.Count(),
		Salas:    s.rooms.Count(),
	}
}

// ListRooms returns every open room, full or not, in creation order
func (s *lobbyServiceImpl) ListRooms(ctx context.Context) []protocol.RoomState {
	return s.rooms.List()
}

// GetRoom returns the snapshot of one room
func (s *lobbyServiceImpl) GetRoom(ctx context.Context, id string) (protocol.RoomState, error) {
	room, err := s.rooms.Get(id)
	if err != nil {
		return protocol.RoomState{}, fmt.Errorf("room %s: %w", id, err)
	}
	return room.Snapshot(), nil
}

// requiresLogin reports whether kind is rejected for anonymous sessions.
// The login gate is reported ahead of missing payload fields.
func requiresLogin(kind string) bool {
	switch kind {
	case protocol.KindLogin, protocol.KindListRooms, protocol.KindGlobalChat, protocol.KindGlobalChatAlt:
		return false
	}
	return true
}
