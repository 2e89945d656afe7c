package sala

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/session"
)

// idLength is the number of hex characters kept from a UUID for room ids
const idLength = 8

// Directory owns every open room
type Directory struct {
	rooms  map[string]*Room
	order  []string
	dice   Dice
	newID  func() string
	logger *zap.Logger
	mu     sync.RWMutex
}

// Option configures a Directory
type Option func(*Directory)

// WithDice replaces the die used by rooms created afterwards
func WithDice(d Dice) Option {
	return func(dir *Directory) { dir.dice = d }
}

// WithLogger sets the parent logger for rooms
func WithLogger(l *zap.Logger) Option {
	return func(dir *Directory) { dir.logger = l }
}

// WithIDGenerator overrides room id generation
func WithIDGenerator(f func() string) Option {
	return func(dir *Directory) { dir.newID = f }
}

// NewDirectory creates an empty directory
func NewDirectory(opts ...Option) *Directory {
	dir := &Directory{
		rooms:  make(map[string]*Room),
		dice:   RandomDice{},
		newID:  generateRoomID,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(dir)
	}
	dir.logger = dir.logger.Named("sala")
	return dir
}

func generateRoomID() string {
	return uuid.NewString()[:idLength]
}

// Create opens a room with creator in seat 0 and sends the creator
// SALA_CREADA followed by the seat broadcasts. The room becomes visible to
// other sessions only after that.
func (d *Directory) Create(mode string, creator *session.Session) (*Room, []Delivery, error) {
	if mode == "" {
		mode = protocol.DefaultMode
	}
	if creator.RoomID() != "" {
		return nil, nil, ErrAlreadySeated
	}

	d.mu.Lock()
	var id string
	for {
		id = d.newID()
		if _, taken := d.rooms[id]; !taken {
			break
		}
	}
	// Reserve the id so a concurrent Create cannot pick it.
	d.rooms[id] = nil
	d.mu.Unlock()

	room := newRoom(id, mode, d.dice, d.logger, d.Remove)
	deliveries, err := room.seatCreator(creator)
	if err != nil {
		d.mu.Lock()
		delete(d.rooms, id)
		d.mu.Unlock()
		return nil, nil, err
	}

	d.mu.Lock()
	d.rooms[id] = room
	d.order = append(d.order, id)
	d.mu.Unlock()

	d.logger.Info("Room created",
		zap.String("sala", id),
		zap.String("modo", mode),
		zap.String("creador", creator.Name()))
	return room, deliveries, nil
}

// Get returns the open room with the given id
func (d *Directory) Get(id string) (*Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room := d.rooms[id]
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListPublic returns the joinable rooms in creation order. Full rooms are
// left out.
func (d *Directory) ListPublic() []protocol.RoomSummary {
	list := []protocol.RoomSummary{}
	for _, room := range d.openRooms() {
		if room.joinable() {
			list = append(list, room.Summary())
		}
	}
	return list
}

// List returns a snapshot of every open room in creation order
func (d *Directory) List() []protocol.RoomState {
	rooms := d.openRooms()
	list := make([]protocol.RoomState, 0, len(rooms))
	for _, room := range rooms {
		list = append(list, room.Snapshot())
	}
	return list
}

// Remove drops a room. Unknown ids are ignored.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rooms[id] == nil {
		return
	}
	delete(d.rooms, id)
	if i := slices.Index(d.order, id); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
}

// Count returns the number of open rooms
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// openRooms copies the open rooms in creation order so callers can lock each
// room without holding the directory lock
func (d *Directory) openRooms() []*Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rooms := make([]*Room, 0, len(d.order))
	for _, id := range d.order {
		rooms = append(rooms, d.rooms[id])
	}
	return rooms
}
