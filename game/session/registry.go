package session

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
)

// Registry is the set of live sessions, keyed by connection id
type Registry struct {
	sessions map[string]*Session
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.Named("registry"),
	}
}

// Register adds s. Registering the same session twice is a no-op.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Debug("Session registered",
		zap.String("conn", s.ID()),
		zap.String("remote", s.RemoteAddr()),
		zap.Int("total", total))
}

// Unregister removes s, returning ErrSessionNotFound if it was not present
func (r *Registry) Unregister(s *Session) error {
	r.mu.Lock()
	if _, ok := r.sessions[s.ID()]; !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, s.ID())
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Debug("Session unregistered",
		zap.String("conn", s.ID()),
		zap.Int("total", total))
	return nil
}

// Get looks up a session by connection id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// BroadcastGlobal delivers msg to every logged-in session. Each send is
// independent: a failing recipient does not stop delivery to the rest.
func (r *Registry) BroadcastGlobal(msg protocol.Message) int {
	recipients := r.List()

	sent := 0
	for _, s := range recipients {
		if !s.LoggedIn() {
			continue
		}
		s.Send(msg)
		sent++
	}
	return sent
}

// List returns a snapshot of all sessions ordered by connection id
func (r *Registry) List() []*Session {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
