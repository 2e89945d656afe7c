package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrConnClosed    = errors.New("connection closed")
)

// conn is one client socket. It implements session.Conn.
type conn struct {
	id           string
	nc           net.Conn
	send         chan protocol.Message
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	logger       *zap.Logger
}

func newConn(id string, nc net.Conn, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger) *conn {
	return &conn{
		id:           id,
		nc:           nc,
		send:         make(chan protocol.Message, sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger.With(zap.String("conn", id)),
	}
}

func (c *conn) ID() string         { return c.id }
func (c *conn) RemoteAddr() string { return c.nc.RemoteAddr().String() }

// Send queues msg without blocking
func (c *conn) Send(msg protocol.Message) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts the socket. Safe to call more than once.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.nc.Close()
	})
	return err
}

// writePump writes queued messages until the connection closes
func (c *conn) writePump() {
	defer c.Close()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			line, err := msg.Encode()
			if err != nil {
				c.logger.Error("Failed to encode message", zap.String("tipo", msg.Tipo), zap.Error(err))
				continue
			}
			if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.logger.Debug("Failed to set write deadline", zap.Error(err))
				return
			}
			if _, err := c.nc.Write(line); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				return
			}
		}
	}
}
