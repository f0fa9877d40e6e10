package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults for the GIMP plugin endpoint.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 9877
	DefaultDialTimeout   = 5 * time.Second
	DefaultIOTimeout     = 30 * time.Second
	DefaultMaxReplyBytes = 16 * 1024 * 1024
)

// Config is the top-level configuration.
type Config struct {
	GIMP GIMPConfig `yaml:"gimp" toml:"gimp"`
	Log  LogConfig  `yaml:"log" toml:"log"`
}

// GIMPConfig locates the MCP plugin running inside GIMP.
type GIMPConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	// DialTimeout bounds the connect attempt. Zero disables the bound.
	DialTimeout time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	// IOTimeout bounds writing a command and reading its reply.
	// Zero disables the bound.
	IOTimeout     time.Duration `yaml:"io_timeout" toml:"io_timeout"`
	MaxReplyBytes int64         `yaml:"max_reply_bytes" toml:"max_reply_bytes"`
}

// Addr returns host:port.
func (g GIMPConfig) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GIMP: GIMPConfig{
			Host:          DefaultHost,
			Port:          DefaultPort,
			DialTimeout:   DefaultDialTimeout,
			IOTimeout:     DefaultIOTimeout,
			MaxReplyBytes: DefaultMaxReplyBytes,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// the GIMP_MCP_* environment variables, in that order of precedence. Files
// ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if host := os.Getenv("GIMP_MCP_HOST"); host != "" {
		c.GIMP.Host = host
	}
	if port := os.Getenv("GIMP_MCP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("GIMP_MCP_PORT: invalid port %q", port)
		}
		c.GIMP.Port = p
	}
	if level := os.Getenv("GIMP_MCP_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.GIMP.Host == "" {
		return fmt.Errorf("gimp.host must not be empty")
	}
	if c.GIMP.Port < 1 || c.GIMP.Port > 65535 {
		return fmt.Errorf("gimp.port must be in 1..65535, got %d", c.GIMP.Port)
	}
	if c.GIMP.DialTimeout < 0 {
		return fmt.Errorf("gimp.dial_timeout must not be negative")
	}
	if c.GIMP.IOTimeout < 0 {
		return fmt.Errorf("gimp.io_timeout must not be negative")
	}
	if c.GIMP.MaxReplyBytes <= 0 {
		return fmt.Errorf("gimp.max_reply_bytes must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
}

// NewLogger returns a text logger on stderr. Stdout is reserved for the MCP
// protocol.
func NewLogger(c LogConfig) *slog.Logger {
	level, _ := ParseLevel(c.Level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
