// Package sessiontest provides an in-memory session.Conn for tests.
package sessiontest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wricardo/parques-server/game/protocol"
)

// ErrSendFailed is returned by Send once FailSends has been called
var ErrSendFailed = errors.New("send failed")

var nextID atomic.Int64

// Conn records every message sent to it
type Conn struct {
	id string

	mu       sync.Mutex
	messages []protocol.Message
	closed   bool
	failing  bool
}

// NewConn returns a recorder with a unique id
func NewConn() *Conn {
	return &Conn{id: fmt.Sprintf("test-%d", nextID.Add(1))}
}

func (c *Conn) ID() string         { return c.id }
func (c *Conn) RemoteAddr() string { return "pipe:" + c.id }

func (c *Conn) Send(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return ErrSendFailed
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// FailSends makes every later Send return ErrSendFailed
func (c *Conn) FailSends() {
	c.mu.Lock()
	c.failing = true
	c.mu.Unlock()
}

// Closed reports whether Close was called
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages returns a copy of everything sent so far
func (c *Conn) Messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.messages...)
}

// Kinds returns the tipo of every message sent so far, in order
func (c *Conn) Kinds() []string {
	msgs := c.Messages()
	kinds := make([]string, len(msgs))
	for i, m := range msgs {
		kinds[i] = m.Tipo
	}
	return kinds
}

// Last returns the most recent message of the given kind
func (c *Conn) Last(tipo string) (protocol.Message, bool) {
	msgs := c.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Tipo == tipo {
			return msgs[i], true
		}
	}
	return protocol.Message{}, false
}

// Count returns how many messages of the given kind were sent
func (c *Conn) Count(tipo string) int {
	n := 0
	for _, m := range c.Messages() {
		if m.Tipo == tipo {
			n++
		}
	}
	return n
}

// Reset drops the recorded messages
func (c *Conn) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
