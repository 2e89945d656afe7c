package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	ngrokLog "golang.ngrok.com/ngrok/log"

	"github.com/wricardo/parques-server/game/config"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Parqués Session Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

// parseConfig runs the server flags over args and returns loadConfig's result
func parseConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg     *config.Config
		loadErr error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, loadErr = loadConfig(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if *cfg != *config.Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := parseConfig(t,
		"--listen", "127.0.0.1:6000",
		"--http", "",
		"--send-buffer", "8",
		"--write-timeout", "250ms",
		"--max-frame", "1024",
		"--log-level", "debug",
	)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:6000" {
		t.Errorf("Expected listen 127.0.0.1:6000, got %s", cfg.ListenAddr)
	}
	if cfg.HTTPEnabled() {
		t.Error("Expected empty --http to disable the admin API")
	}
	if cfg.SendBuffer != 8 || cfg.MaxFrame != 1024 {
		t.Errorf("Unexpected sizes %+v", cfg)
	}
	if cfg.WriteTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms write timeout, got %v", cfg.WriteTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero send buffer", []string{"--send-buffer", "0"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"ngrok without token", []string{"--ngrok", "--ngrok-auth", ""}},
		{"listen without port", []string{"--listen", "localhost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(t, tt.args...)
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parques.json")
	body := `{"listen": ":7000", "send_buffer": 16, "write_timeout": "2s", "log_level": "warn"}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := parseConfig(t, "--config", path, "--send-buffer", "32")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.ListenAddr != ":7000" || cfg.LogLevel != "warn" || cfg.WriteTimeout != 2*time.Second {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.SendBuffer != 32 {
		t.Errorf("Expected flag to override file, got send buffer %d", cfg.SendBuffer)
	}
	if cfg.HTTPAddr != config.DefaultHTTPAddr {
		t.Errorf("Expected default HTTP address, got %s", cfg.HTTPAddr)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := parseConfig(t, "--config", filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		if err != nil {
			t.Fatalf("newLogger(%s): %v", level, err)
		}
		want, _ := zapcore.ParseLevel(level)
		if !logger.Core().Enabled(want) {
			t.Errorf("newLogger(%s) should enable %s", level, level)
		}
		if want > zap.DebugLevel && logger.Core().Enabled(want-1) {
			t.Errorf("newLogger(%s) should not enable %s", level, want-1)
		}
	}

	if _, err := newLogger("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestLocalURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := localURL(addr); got != want {
			t.Errorf("localURL(%s): expected %s, got %s", addr, want, got)
		}
	}
}

func TestNgrokLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := ngrokLogger{zap.New(core)}

	l.Log(context.Background(), ngrokLog.LogLevelTrace, "trace", nil)
	l.Log(context.Background(), ngrokLog.LogLevelInfo, "session up", map[string]interface{}{"region": "us"})
	l.Log(context.Background(), ngrokLog.LogLevelWarn, "slow", nil)
	l.Log(context.Background(), ngrokLog.LogLevelError, "lost", nil)
	l.Log(context.Background(), ngrokLog.LogLevelNone, "ignored", nil)

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zap.DebugLevel, zap.InfoLevel, zap.WarnLevel, zap.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, wantLevels[i], e.Level)
		}
	}
	if entries[1].ContextMap()["region"] != "us" {
		t.Errorf("Expected data fields to be kept, got %v", entries[1].ContextMap())
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := newApp(testConfig(), zap.NewNop())
	if a.http == nil || a.hub == nil {
		t.Fatal("Expected HTTP server and hub to be wired")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApp_WithoutHTTP(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPAddr = ""

	a := newApp(cfg, zap.NewNop())
	if a.http != nil || a.hub != nil {
		t.Error("Expected no HTTP server when the address is empty")
	}
}

func TestApp_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer busy.Close()

	cfg := testConfig()
	cfg.ListenAddr = busy.Addr().String()
	cfg.HTTPAddr = ""

	done := make(chan error, 1)
	go func() { done <- newApp(cfg, zap.NewNop()).run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "tcp gateway") {
			t.Errorf("Expected tcp gateway error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after listen failure")
	}
}

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(`{"listen": ":6000"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`{"send_buffer": 0}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		files   []string
		wantErr bool
		want    []string
	}{
		{"valid file", []string{good}, false, []string{"✅ VALID", "All configurations are valid"}},
		{"one invalid", []string{good, bad}, true, []string{"❌ INVALID", "SendBuffer"}},
		{"no files", nil, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			cmd := newCommand()
			cmd.Writer = &out

			err := cmd.Run(context.Background(), append([]string{"parques-server", "check-config"}, tt.files...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected %q in output:\n%s", want, out.String())
				}
			}
		})
	}
}
