package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
)

var (
	ErrClosed        = errors.New("connection closed")
	ErrServerError   = errors.New("server rejected command")
	ErrUnexpectedEOF = errors.New("server closed the connection")
)

const (
	defaultWriteTimeout = 5 * time.Second
	maxFrame            = 64 * 1024
	incomingBuffer      = 256
)

// ServerError carries the mensaje of an ERROR frame
type ServerError struct {
	Mensaje string
}

func (e *ServerError) Error() string { return ErrServerError.Error() + ": " + e.Mensaje }
func (e *ServerError) Unwrap() error { return ErrServerError }

// Client is one player connection
type Client struct {
	nc     net.Conn
	logger *zap.Logger

	incoming chan protocol.Envelope

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	errMu   sync.Mutex
	readErr error
}

// Dial connects to a game server and starts the receiver
func Dial(ctx context.Context, addr string, logger *zap.Logger) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(nc, logger), nil
}

// New wraps an established connection
func New(nc net.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		nc:       nc,
		logger:   logger.Named("client"),
		incoming: make(chan protocol.Envelope, incomingBuffer),
		done:     make(chan struct{}),
	}
	go c.receive()
	return c
}

// Messages yields inbound frames in arrival order. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan protocol.Envelope {
	return c.incoming
}

// Err returns the error that ended the receiver, if any
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Send writes cmd as one frame
func (c *Client) Send(cmd protocol.Command) error {
	data, err := json.Marshal(struct {
		Tipo string           `json:"tipo"`
		Data protocol.Command `json:"data"`
	}{cmd.Kind(), cmd})
	if err != nil {
		return err
	}
	data = append(data, '\n')

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.nc.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if _, err := c.nc.Write(data); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Kind(), err)
	}
	return nil
}

// Await reads frames until one of the given kinds arrives. An ERROR frame
// ends the wait with a *ServerError unless ERROR is among the kinds.
func (c *Client) Await(ctx context.Context, kinds ...string) (protocol.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return protocol.Envelope{}, ctx.Err()
		case env, ok := <-c.incoming:
			if !ok {
				if err := c.Err(); err != nil {
					return protocol.Envelope{}, err
				}
				return protocol.Envelope{}, ErrUnexpectedEOF
			}
			for _, k := range kinds {
				if env.Tipo == k {
					return env, nil
				}
			}
			if env.Tipo == protocol.KindError {
				var data protocol.ErrorData
				if err := Decode(env, &data); err != nil {
					return env, fmt.Errorf("%w: %w", ErrServerError, err)
				}
				return env, &ServerError{Mensaje: data.Mensaje}
			}
		}
	}
}

// Close ends the connection. The Messages channel closes once the receiver
// exits.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.nc.Close()
	})
	return err
}

func (c *Client) receive() {
	defer close(c.incoming)

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 4096), maxFrame)
	for scanner.Scan() {
		env, err := protocol.DecodeEnvelope(scanner.Bytes())
		if err != nil {
			c.logger.Debug("Skipping malformed frame", zap.Error(err))
			continue
		}
		select {
		case c.incoming <- env:
		case <-c.done:
			return
		}
	}

	select {
	case <-c.done:
		return
	default:
	}
	if err := scanner.Err(); err != nil {
		c.errMu.Lock()
		c.readErr = err
		c.errMu.Unlock()
	}
}

// Decode unmarshals an envelope's payload into v
func Decode(env protocol.Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", env.Tipo, err)
	}
	return nil
}
