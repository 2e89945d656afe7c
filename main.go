// Command parques-server runs the Parqués lobby and room server.
//
// It supports three modes:
//  1. "server" (default) – accepts game clients over TCP and WebSocket and
//     serves the admin REST API with an /mcp endpoint
//  2. "stdio-mcp" – serves the MCP tools over stdio against a running admin API
//  3. "check-config" – validates config files and exits
//
// Every flag has an environment fallback, and a .env file in the working
// directory is loaded before flags are parsed. An optional ngrok tunnel
// exposes the game port publicly during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	ngrokLog "golang.ngrok.com/ngrok/log"

	"github.com/wricardo/parques-server/api"
	"github.com/wricardo/parques-server/game/config"
	"github.com/wricardo/parques-server/game/sala"
	"github.com/wricardo/parques-server/game/service"
	"github.com/wricardo/parques-server/game/session"
	"github.com/wricardo/parques-server/transport/mcp"
	"github.com/wricardo/parques-server/transport/tcp"
	"github.com/wricardo/parques-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Parqués Session Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "parques-server",
		Usage:   AppName,
		Version: Version,
		Flags:   serverFlags(),
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run the TCP gateway, WebSocket gateway and admin API (default)",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Serve the MCP tools over stdio against a running admin API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "Base URL of the admin API",
						Sources: cli.EnvVars("PARQUES_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
			{
				Name:      "check-config",
				Usage:     "Validate JSON config files without starting the server",
				ArgsUsage: "FILE...",
				Action:    runCheckConfig,
			},
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "JSON config file applied before flags",
			Sources: cli.EnvVars("PARQUES_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "listen",
			Value:   config.DefaultListenAddr,
			Usage:   "TCP address for game clients",
			Sources: cli.EnvVars("PARQUES_LISTEN"),
		},
		&cli.StringFlag{
			Name:    "http",
			Value:   config.DefaultHTTPAddr,
			Usage:   "HTTP address for the admin API and WebSocket gateway (empty disables)",
			Sources: cli.EnvVars("PARQUES_HTTP"),
		},
		&cli.IntFlag{
			Name:    "send-buffer",
			Value:   config.DefaultSendBuffer,
			Usage:   "Outbound messages queued per connection before it is dropped",
			Sources: cli.EnvVars("PARQUES_SEND_BUFFER"),
		},
		&cli.DurationFlag{
			Name:    "write-timeout",
			Value:   config.DefaultWriteTimeout,
			Usage:   "Deadline for writing one frame to a client",
			Sources: cli.EnvVars("PARQUES_WRITE_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "max-frame",
			Value:   config.DefaultMaxFrame,
			Usage:   "Largest inbound frame in bytes",
			Sources: cli.EnvVars("PARQUES_MAX_FRAME"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   config.DefaultLogLevel,
			Usage:   "debug, info, warn or error",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Expose the game port through an ngrok TCP tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
	}
}

// loadConfig layers defaults, the optional config file and explicitly set
// flags, then validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("listen") {
		cfg.ListenAddr = cmd.String("listen")
	}
	if cmd.IsSet("http") {
		cfg.HTTPAddr = cmd.String("http")
	}
	if cmd.IsSet("send-buffer") {
		cfg.SendBuffer = cmd.Int("send-buffer")
	}
	if cmd.IsSet("write-timeout") {
		cfg.WriteTimeout = cmd.Duration("write-timeout")
	}
	if cmd.IsSet("max-frame") {
		cfg.MaxFrame = cmd.Int("max-frame")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.NgrokAuthtoken = cmd.String("ngrok-auth")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the root logger. Debug uses the console encoder, every
// other level the production JSON encoder. Both write to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting server", zap.String("app", AppName), zap.String("version", Version))
	return newApp(cfg, logger).run(ctx)
}

// app holds the long-lived components of one server process
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	lobby   service.LobbyService
	gateway *tcp.Gateway
	hub     *websocket.Hub
	http    *http.Server
}

// newApp wires the registry, room directory, lobby and both gateways. The
// HTTP server is only built when an HTTP address is configured.
func newApp(cfg *config.Config, logger *zap.Logger) *app {
	registry := session.NewRegistry(logger)
	directory := sala.NewDirectory(sala.WithLogger(logger))
	lobby := service.NewLobbyService(registry, directory, logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		lobby:  lobby,
		gateway: tcp.NewGateway(lobby, tcp.Options{
			SendBuffer:   cfg.SendBuffer,
			WriteTimeout: cfg.WriteTimeout,
			MaxFrame:     cfg.MaxFrame,
		}, logger),
	}

	if cfg.HTTPEnabled() {
		a.hub = websocket.NewHub(lobby, logger)
		mcpClient := mcp.NewClient(localURL(cfg.HTTPAddr))
		a.http = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: api.NewServer(lobby,
				api.WithWebSocket(http.HandlerFunc(a.hub.ServeWS)),
				api.WithMCP(mcpClient.GetMCPServer()),
				api.WithLogger(logger),
			),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}
	return a
}

// localURL turns a listen address into a URL the process can call itself on
func localURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// run serves until ctx ends or a listener fails, then shuts everything down
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.gateway.ListenAndServe(ctx, a.cfg.ListenAddr); err != nil {
			errCh <- fmt.Errorf("tcp gateway: %w", err)
		}
	}()

	if a.http != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.hub.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			a.logger.Info("HTTP server listening",
				zap.String("addr", a.cfg.HTTPAddr),
				zap.String("api", localURL(a.cfg.HTTPAddr)+"/api"),
				zap.String("mcp", localURL(a.cfg.HTTPAddr)+"/mcp"),
			)
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if a.cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.serveNgrok(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case runErr = <-errCh:
		a.logger.Error("Listener failed, shutting down", zap.Error(runErr))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var closeErr error
	if a.http != nil {
		closeErr = multierr.Append(closeErr, a.http.Shutdown(shutdownCtx))
	}
	closeErr = multierr.Append(closeErr, a.gateway.Close())

	wg.Wait()
	a.logger.Info("Server stopped")
	return multierr.Append(runErr, closeErr)
}

// serveNgrok feeds an ngrok TCP tunnel into the gateway. Tunnel failures are
// logged and leave the local listeners running.
func (a *app) serveNgrok(ctx context.Context) {
	log := a.logger.Named("ngrok")
	log.Info("Starting ngrok tunnel")

	tun, err := ngrok.Listen(ctx,
		ngrokConfig.TCPEndpoint(),
		ngrok.WithAuthtoken(a.cfg.NgrokAuthtoken),
		ngrok.WithLogger(ngrokLogger{log}),
	)
	if err != nil {
		log.Error("Failed to start ngrok tunnel", zap.Error(err))
		return
	}

	log.Info("Ngrok tunnel established", zap.String("url", tun.URL()))
	if err := a.gateway.Serve(ctx, tun); err != nil {
		log.Error("Ngrok tunnel failed", zap.Error(err))
	}
	log.Info("Ngrok tunnel closed")
}

// ngrokLogger forwards the ngrok agent's logs to zap
type ngrokLogger struct {
	logger *zap.Logger
}

func (l ngrokLogger) Log(ctx context.Context, level ngrokLog.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case ngrokLog.LogLevelTrace, ngrokLog.LogLevelDebug:
		l.logger.Debug(msg, fields...)
	case ngrokLog.LogLevelInfo:
		l.logger.Info(msg, fields...)
	case ngrokLog.LogLevelWarn:
		l.logger.Warn(msg, fields...)
	case ngrokLog.LogLevelError:
		l.logger.Error(msg, fields...)
	}
}

// runStdioMCP serves the MCP tools over stdio. Logs go to stderr so stdout
// stays reserved for the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	probe := &http.Client{Timeout: 2 * time.Second}
	if resp, err := probe.Get(baseURL + "/health"); err != nil {
		logger.Warn("Admin API not reachable, tools will fail until it is up", zap.String("api", baseURL), zap.Error(err))
	} else {
		resp.Body.Close()
		logger.Info("Using admin API", zap.String("api", baseURL))
	}

	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// runCheckConfig loads every file named on the command line and reports each
// one. It fails if any file is invalid.
func runCheckConfig(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one config file is required")
	}

	out := cmd.Root().Writer
	invalid := 0
	for _, file := range files {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), file)
		if _, err := config.LoadFile(file); err != nil {
			invalid++
			fmt.Fprintln(out, "❌ INVALID")
			fmt.Fprintln(out, "  ❌ "+err.Error())
			continue
		}
		fmt.Fprintln(out, "✅ VALID")
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		return fmt.Errorf("%d of %d config files are invalid", invalid, len(files))
	}
	fmt.Fprintln(out, "✅ All configurations are valid!")
	return nil
}
