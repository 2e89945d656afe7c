package sala

import (
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/board"
	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/session"
)

// Capacity is the number of seats in every room
const Capacity = 4

var (
	ErrRoomFull      = errors.New("room is full")
	ErrRoomNotFound  = errors.New("room not found")
	ErrDuplicateName = errors.New("name already taken in room")
	ErrAlreadySeated = errors.New("session already seated in a room")
	ErrNotSeated     = errors.New("session not seated in room")
	ErrNotYourTurn   = errors.New("not your turn")
)

// State is the lifecycle stage of a room
type State int

const (
	Forming State = iota
	InTurn
	Empty
)

func (s State) String() string {
	switch s {
	case Forming:
		return "forming"
	case InTurn:
		return "in_turn"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Delivery is a message a room pushed to a set of sessions. Rooms send while
// holding their lock, so every member sees the room's messages in the order
// the mutations happened. session.Conn.Send only queues, so this never waits
// on the network.
type Delivery struct {
	To  []*session.Session
	Msg protocol.Message
}

// Room is one game table
type Room struct {
	id        string
	mode      string
	createdAt time.Time
	dice      Dice
	logger    *zap.SugaredLogger
	onEmpty   func(id string)

	mu      sync.Mutex
	seats   []*session.Session
	ready   []bool
	cursor  int
	started bool
	closed  bool
}

func newRoom(id, mode string, dice Dice, logger *zap.Logger, onEmpty func(string)) *Room {
	return &Room{
		id:        id,
		mode:      mode,
		createdAt: time.Now(),
		dice:      dice,
		logger:    logger.Sugar().With("sala", id),
		onEmpty:   onEmpty,
	}
}

func (r *Room) ID() string           { return r.id }
func (r *Room) Mode() string         { return r.mode }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Seat appends s to the seat list. It fails if the room is gone, if s is
// already in some room, if another seat holds the same name, or if all
// seats are taken.
func (r *Room) Seat(s *session.Session) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomNotFound
	}
	if s.RoomID() != "" {
		return nil, ErrAlreadySeated
	}
	name := s.Name()
	for _, seated := range r.seats {
		if seated.Name() == name {
			return nil, ErrDuplicateName
		}
	}
	if len(r.seats) >= Capacity {
		return nil, ErrRoomFull
	}

	r.seats = append(r.seats, s)
	r.ready = append(r.ready, false)
	s.SetRoomID(r.id)

	r.logger.Infow("Player seated", "jugador", name, "asiento", len(r.seats)-1)

	return r.emitLocked(r.seatedLocked()), nil
}

// seatCreator seats the first player and greets them with SALA_CREADA
// before the seat broadcasts. The room is not in the directory yet.
func (r *Room) seatCreator(s *session.Session) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.RoomID() != "" {
		return nil, ErrAlreadySeated
	}
	r.seats = append(r.seats, s)
	r.ready = append(r.ready, false)
	s.SetRoomID(r.id)

	r.logger.Infow("Player seated", "jugador", s.Name(), "asiento", 0)

	created := Delivery{To: []*session.Session{s}, Msg: protocol.NewRoomCreated(r.summaryLocked())}
	return r.emitLocked(append([]Delivery{created}, r.seatedLocked()...)), nil
}

func (r *Room) seatedLocked() []Delivery {
	return []Delivery{
		r.toAllLocked(protocol.NewJoined(r.id, r.namesLocked())),
		r.toAllLocked(protocol.NewRoomState(r.snapshotLocked())),
	}
}

// Unseat removes s, keeping the order of the remaining seats. When the last
// seat empties the room closes for good and is dropped from its directory.
// During play the turn cursor keeps pointing at the same player when an
// earlier seat leaves; if the holder leaves, the turn passes to whoever now
// occupies the cursor.
func (r *Room) Unseat(s *session.Session) ([]Delivery, error) {
	r.mu.Lock()

	idx := r.indexLocked(s)
	if idx < 0 {
		r.mu.Unlock()
		return nil, ErrNotSeated
	}

	var holder *session.Session
	if r.started {
		holder = r.seats[r.cursor]
	}

	r.seats = slices.Delete(r.seats, idx, idx+1)
	r.ready = slices.Delete(r.ready, idx, idx+1)
	s.ClearRoomID(r.id)

	r.logger.Infow("Player left", "jugador", s.Name(), "asiento", idx, "quedan", len(r.seats))

	if len(r.seats) == 0 {
		r.closed = true
		r.mu.Unlock()
		if r.onEmpty != nil {
			r.onEmpty(r.id)
		}
		r.logger.Info("Room closed")
		return nil, nil
	}

	var out []Delivery
	if r.started {
		if idx < r.cursor {
			r.cursor--
		}
		r.cursor %= len(r.seats)
		if r.seats[r.cursor] != holder {
			out = append(out, r.toAllLocked(protocol.NewTurnChanged(r.id, r.seats[r.cursor].Name())))
		}
	}
	out = append(out, r.toAllLocked(protocol.NewRoomState(r.snapshotLocked())))
	r.emitLocked(out)
	r.mu.Unlock()
	return out, nil
}

// SetReady records the readiness of s. A session that is not seated changes
// nothing. After the game starts readiness is frozen. The room starts the
// first time four seats are all ready.
func (r *Room) SetReady(s *session.Session, ready bool) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.indexLocked(s); idx >= 0 && !r.started {
		r.ready[idx] = ready
	}

	startNow := !r.started && len(r.seats) == Capacity && allTrue(r.ready)
	if startNow {
		r.started = true
		r.cursor = 0
		r.logger.Infow("Game started", "turno", r.seats[0].Name())
	}

	out := []Delivery{r.toAllLocked(protocol.NewRoomState(r.snapshotLocked()))}
	if startNow {
		out = append(out, r.toAllLocked(protocol.NewGameStarted(r.id, r.seats[0].Name(), r.namesLocked())))
	}
	return r.emitLocked(out)
}

// CurrentTurnHolder returns the seat at the turn cursor, or nil before the
// game starts
func (r *Room) CurrentTurnHolder() *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holderLocked()
}

// AdvanceTurn passes the turn to the next seat. Only the holder may do so.
func (r *Room) AdvanceTurn(s *session.Session) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.holderLocked() != s {
		return nil, ErrNotYourTurn
	}
	r.cursor = (r.cursor + 1) % len(r.seats)
	next := r.seats[r.cursor].Name()

	r.logger.Debugw("Turn advanced", "turno", next)
	return r.emitLocked([]Delivery{r.toAllLocked(protocol.NewTurnChanged(r.id, next))}), nil
}

// RollDie rolls for the turn holder. The turn does not advance.
func (r *Room) RollDie(s *session.Session) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.holderLocked() != s {
		return nil, ErrNotYourTurn
	}
	value := r.dice.Roll()

	r.logger.Debugw("Die rolled", "jugador", s.Name(), "valor", value)
	return r.emitLocked([]Delivery{r.toAllLocked(protocol.NewDieResult(r.id, s.Name(), value))}), nil
}

// Chat relays a room chat line from a seated session
func (r *Room) Chat(s *session.Session, text string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(s) < 0 {
		return nil, ErrNotSeated
	}
	return r.emitLocked([]Delivery{r.toAllLocked(protocol.NewRoomMessage(s.Name(), text))}), nil
}

// State returns the room's lifecycle stage
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return Empty
	case r.started:
		return InTurn
	default:
		return Forming
	}
}

// Snapshot returns a copy of the room's public state
func (r *Room) Snapshot() protocol.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Summary returns the lobby listing entry for the room
func (r *Room) Summary() protocol.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

// Members returns the seated sessions in seating order
func (r *Room) Members() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.seats)
}

// joinable reports whether the room is open and has a free seat
func (r *Room) joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && len(r.seats) < Capacity
}

func (r *Room) holderLocked() *session.Session {
	if !r.started || len(r.seats) == 0 {
		return nil
	}
	return r.seats[r.cursor]
}

func (r *Room) indexLocked(s *session.Session) int {
	return slices.Index(r.seats, s)
}

func (r *Room) namesLocked() []string {
	names := make([]string, len(r.seats))
	for i, s := range r.seats {
		names[i] = s.Name()
	}
	return names
}

func (r *Room) toAllLocked(msg protocol.Message) Delivery {
	return Delivery{To: slices.Clone(r.seats), Msg: msg}
}

// emitLocked sends out in order and returns it
func (r *Room) emitLocked(out []Delivery) []Delivery {
	for _, d := range out {
		for _, s := range d.To {
			s.Send(d.Msg)
		}
	}
	return out
}

func (r *Room) snapshotLocked() protocol.RoomState {
	colors := make([]string, len(r.seats))
	for i := range r.seats {
		colors[i] = string(board.ColorForSeat(i))
	}
	st := protocol.RoomState{
		SalaID:    r.id,
		Modo:      r.mode,
		Jugadores: r.namesLocked(),
		Listos:    slices.Clone(r.ready),
		Colores:   colors,
		Max:       Capacity,
		EnJuego:   r.started,
	}
	if h := r.holderLocked(); h != nil {
		st.Turno = h.Name()
	}
	if st.Listos == nil {
		st.Listos = []bool{}
	}
	return st
}

func (r *Room) summaryLocked() protocol.RoomSummary {
	return protocol.RoomSummary{
		ID:        r.id,
		Modo:      r.mode,
		Jugadores: len(r.seats),
		Max:       Capacity,
	}
}

func allTrue(flags []bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
