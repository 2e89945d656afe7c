package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/parques-server/game/protocol"
	"github.com/wricardo/parques-server/game/service"
)

// Options tunes per-connection resources
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	MaxFrame     int
}

// DefaultOptions returns the settings used when a field is left at zero
func DefaultOptions() Options {
	return Options{
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
		MaxFrame:     64 * 1024,
	}
}

// Gateway accepts socket clients and feeds their frames to the lobby
type Gateway struct {
	svc    service.LobbyService
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[*conn]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// NewGateway creates a gateway. Zero option fields take their defaults.
func NewGateway(svc service.LobbyService, opts Options, logger *zap.Logger) *Gateway {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.MaxFrame <= 0 {
		opts.MaxFrame = def.MaxFrame
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		svc:       svc,
		opts:      opts,
		logger:    logger.Named("gateway"),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[*conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until ctx ends or Close is called
func (g *Gateway) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return g.Serve(ctx, l)
}

// Serve accepts connections on l until ctx ends or Close is called, in which
// case it returns nil
func (g *Gateway) Serve(ctx context.Context, l net.Listener) error {
	if !g.trackListener(l) {
		l.Close()
		return nil
	}
	defer g.untrackListener(l)

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	g.logger.Info("Gateway listening", zap.String("addr", l.Addr().String()))

	var backoff time.Duration
	for {
		nc, err := l.Accept()
		if err != nil {
			if g.isClosed() || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				g.logger.Warn("Accept failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		c := newConn(uuid.NewString(), nc, g.opts.SendBuffer, g.opts.WriteTimeout, g.logger)
		if !g.trackConn(c) {
			nc.Close()
			return nil
		}
		go g.handle(ctx, c)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// handle runs the read loop of one connection and tears it down when the
// stream ends
func (g *Gateway) handle(ctx context.Context, c *conn) {
	defer g.wg.Done()

	sess := g.svc.Connect(c)
	go c.writePump()

	defer func() {
		c.Close()
		g.svc.Disconnect(sess)
		g.untrackConn(c)
	}()

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 4096), g.opts.MaxFrame)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		env, err := protocol.DecodeEnvelope(line)
		if err != nil {
			c.logger.Debug("Dropping malformed frame", zap.Error(err))
			continue
		}
		g.svc.Handle(ctx, sess, env)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Debug("Read loop ended", zap.Error(err))
	}
}

// ConnCount returns the number of open connections
func (g *Gateway) ConnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Close stops every listener, closes every connection and waits for their
// sessions to be torn down
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	for l := range g.listeners {
		l.Close()
	}
	conns := make([]*conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	g.wg.Wait()
	g.logger.Info("Gateway closed")
	return nil
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gateway) trackListener(l net.Listener) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.listeners[l] = struct{}{}
	return true
}

func (g *Gateway) untrackListener(l net.Listener) {
	g.mu.Lock()
	delete(g.listeners, l)
	g.mu.Unlock()
}

func (g *Gateway) trackConn(c *conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	g.wg.Add(1)
	return true
}

func (g *Gateway) untrackConn(c *conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}
