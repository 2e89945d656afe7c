package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	DefaultListenAddr   = ":5000"
	DefaultHTTPAddr     = ":8080"
	DefaultSendBuffer   = 64
	DefaultWriteTimeout = 5 * time.Second
	DefaultMaxFrame     = 64 * 1024
	DefaultLogLevel     = "info"
)

// Config is the full server configuration
type Config struct {
	ListenAddr     string        `json:"listen" validate:"required,hostname_port"`
	HTTPAddr       string        `json:"http" validate:"omitempty,hostname_port"`
	SendBuffer     int           `json:"send_buffer" validate:"min=1,max=65536"`
	WriteTimeout   time.Duration `json:"-" validate:"gt=0"`
	MaxFrame       int           `json:"max_frame" validate:"min=256"`
	LogLevel       string        `json:"log_level" validate:"oneof=debug info warn error"`
	Ngrok          bool          `json:"ngrok"`
	NgrokAuthtoken string        `json:"-" validate:"required_if=Ngrok true"`
}

// fileConfig mirrors Config with durations as strings
type fileConfig struct {
	*Config
	WriteTimeout string `json:"write_timeout,omitempty"`
}

var validate = validator.New()

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		ListenAddr:   DefaultListenAddr,
		HTTPAddr:     DefaultHTTPAddr,
		SendBuffer:   DefaultSendBuffer,
		WriteTimeout: DefaultWriteTimeout,
		MaxFrame:     DefaultMaxFrame,
		LogLevel:     DefaultLogLevel,
	}
}

// Validate checks every field, joining all violations into one error that
// wraps ErrInvalidConfig
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// HTTPEnabled reports whether the admin API should be served
func (c *Config) HTTPEnabled() bool {
	return c.HTTPAddr != ""
}

// LoadFile reads a JSON file on top of the defaults and validates the result
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	fc := fileConfig{Config: cfg}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	if fc.WriteTimeout != "" {
		d, err := time.ParseDuration(fc.WriteTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: write_timeout: %v", ErrInvalidConfig, err)
		}
		cfg.WriteTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON. The ngrok token is never
// written.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fileConfig{Config: c, WriteTimeout: c.WriteTimeout.String()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
