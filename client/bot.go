package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/parques-server/game/board"
	"github.com/wricardo/parques-server/game/protocol"
)

// Bot plays one seat: it rolls and passes whenever the turn is its own
type Bot struct {
	name     string
	client   *Client
	resolver board.PathResolver
	logger   *zap.Logger

	roomID  string
	color   board.Color
	token   board.Position
	turns   int
	rolling bool
}

// NewBot creates a bot that plays as name over c
func NewBot(name string, c *Client, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		name:     name,
		client:   c,
		resolver: board.Resolver{},
		logger:   logger.Named("bot").With(zap.String("jugador", name)),
		token:    board.BasePosition(),
	}
}

func (b *Bot) Name() string             { return b.name }
func (b *Bot) RoomID() string           { return b.roomID }
func (b *Bot) Color() board.Color       { return b.color }
func (b *Bot) Position() board.Position { return b.token }
func (b *Bot) Turns() int               { return b.turns }

func (b *Bot) Login(ctx context.Context) error {
	if err := b.client.Send(protocol.Login{Nombre: b.name}); err != nil {
		return err
	}
	_, err := b.client.Await(ctx, protocol.KindLoginOK)
	return err
}

// CreateRoom opens a room and returns its id
func (b *Bot) CreateRoom(ctx context.Context, mode string) (string, error) {
	if err := b.client.Send(protocol.CreateRoom{Modo: mode}); err != nil {
		return "", err
	}
	env, err := b.client.Await(ctx, protocol.KindRoomCreated)
	if err != nil {
		return "", err
	}
	var created protocol.RoomCreated
	if err := Decode(env, &created); err != nil {
		return "", err
	}
	b.roomID = created.SalaID
	b.logger.Info("Room created", zap.String("sala", b.roomID))
	return b.roomID, nil
}

func (b *Bot) JoinRoom(ctx context.Context, id string) error {
	if err := b.client.Send(protocol.JoinRoom{SalaID: id}); err != nil {
		return err
	}
	if _, err := b.client.Await(ctx, protocol.KindJoined); err != nil {
		return err
	}
	b.roomID = id
	b.logger.Info("Joined room", zap.String("sala", id))
	return nil
}

func (b *Bot) Ready() error {
	return b.client.Send(protocol.SetReady{SalaID: b.roomID, Listo: true})
}

// Play handles room traffic until the bot has taken turns turns
func (b *Bot) Play(ctx context.Context, turns int) error {
	if turns <= 0 {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-b.client.Messages():
			if !ok {
				if err := b.client.Err(); err != nil {
					return err
				}
				return ErrUnexpectedEOF
			}
			done, err := b.handle(env, turns)
			if err != nil || done {
				return err
			}
		}
	}
}

func (b *Bot) handle(env protocol.Envelope, turns int) (bool, error) {
	switch env.Tipo {
	case protocol.KindRoomState:
		var st protocol.RoomState
		if err := Decode(env, &st); err != nil {
			return false, err
		}
		// Seats shift when players leave; the color is fixed once play begins.
		if st.EnJuego && b.color != "" {
			return false, nil
		}
		for i, name := range st.Jugadores {
			if name == b.name && i < len(st.Colores) {
				b.color = board.Color(st.Colores[i])
			}
		}

	case protocol.KindGameStarted:
		var gs protocol.GameStarted
		if err := Decode(env, &gs); err != nil {
			return false, err
		}
		b.logger.Info("Game started", zap.String("turno", gs.Turno))
		return false, b.maybeRoll(gs.Turno)

	case protocol.KindTurnChanged:
		var tc protocol.TurnChanged
		if err := Decode(env, &tc); err != nil {
			return false, err
		}
		return false, b.maybeRoll(tc.Turno)

	case protocol.KindDieResult:
		var dr protocol.DieResult
		if err := Decode(env, &dr); err != nil {
			return false, err
		}
		if dr.Jugador != b.name || !b.rolling {
			return false, nil
		}
		b.rolling = false
		b.move(dr.Valor)
		b.turns++
		if err := b.client.Send(protocol.EndTurn{SalaID: b.roomID}); err != nil {
			return false, err
		}
		return b.turns >= turns, nil

	case protocol.KindError:
		var e protocol.ErrorData
		if err := Decode(env, &e); err != nil {
			b.logger.Debug("Unreadable server error", zap.Error(err))
			return false, nil
		}
		b.logger.Warn("Server error", zap.String("mensaje", e.Mensaje))
	}
	return false, nil
}

func (b *Bot) maybeRoll(holder string) error {
	if holder != b.name || b.rolling {
		return nil
	}
	b.rolling = true
	return b.client.Send(protocol.RollDie{SalaID: b.roomID})
}

func (b *Bot) move(roll int) {
	next, moved := b.resolver.Resolve(b.token, roll, b.color)
	if moved {
		b.token = next
	}
	b.logger.Debug("Rolled",
		zap.Int("valor", roll),
		zap.Bool("moved", moved),
		zap.Stringer("posicion", b.token),
	)
}

// Leave unseats the bot and waits for the confirmation
func (b *Bot) Leave(ctx context.Context) error {
	if b.roomID == "" {
		return nil
	}
	if err := b.client.Send(protocol.LeaveRoom{SalaID: b.roomID}); err != nil {
		return err
	}
	_, err := b.client.Await(ctx, protocol.KindLeft)
	b.roomID = ""
	return err
}

// MatchOptions describes one automated match
type MatchOptions struct {
	Addr  string
	Names []string
	// RoomID joins an existing room instead of creating one
	RoomID string
	Mode   string
	Turns  int
}

// Match connects one bot per name, seats them in the same room and plays
// until every bot has taken opts.Turns turns. A full table of four is needed
// for the game to start unless RoomID names a room with other players.
func Match(ctx context.Context, opts MatchOptions, logger *zap.Logger) ([]*Bot, error) {
	if len(opts.Names) == 0 {
		return nil, errors.New("at least one bot is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bots := make([]*Bot, 0, len(opts.Names))
	defer func() {
		for _, b := range bots {
			b.client.Close()
		}
	}()

	roomID := opts.RoomID
	for _, name := range opts.Names {
		c, err := Dial(ctx, opts.Addr, logger)
		if err != nil {
			return nil, err
		}
		b := NewBot(name, c, logger)
		bots = append(bots, b)

		if err := b.Login(ctx); err != nil {
			return nil, fmt.Errorf("%s login: %w", name, err)
		}
		if roomID == "" {
			if roomID, err = b.CreateRoom(ctx, opts.Mode); err != nil {
				return nil, fmt.Errorf("%s create: %w", name, err)
			}
		} else if err := b.JoinRoom(ctx, roomID); err != nil {
			return nil, fmt.Errorf("%s join: %w", name, err)
		}
	}

	for _, b := range bots {
		if err := b.Ready(); err != nil {
			return nil, fmt.Errorf("%s ready: %w", b.name, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error {
			if err := b.Play(gctx, opts.Turns); err != nil {
				return fmt.Errorf("%s: %w", b.name, err)
			}
			return b.Leave(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bots, nil
}
