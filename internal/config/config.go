package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	URL              string        `yaml:"url" env:"CHAT_SERVER_URL"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"CHAT_HANDSHAKE_TIMEOUT"`
}

type SessionConfig struct {
	Room              string        `yaml:"room" env:"CHAT_ROOM"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval" env:"CHAT_KEEPALIVE_INTERVAL"`
	SlugifyRooms      bool          `yaml:"slugify_rooms" env:"CHAT_SLUGIFY_ROOMS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"CHAT_LOG_LEVEL"`
	Format string `yaml:"format" env:"CHAT_LOG_FORMAT"`
	File   string `yaml:"file" env:"CHAT_LOG_FILE"`
}

const (
	DefaultURL  = "ws://localhost:4000/ws/chat"
	DefaultRoom = "chat"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:              DefaultURL,
			HandshakeTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Room:              DefaultRoom,
			KeepAliveInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies CHAT_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with. The room may be any
// string, including empty: the server decides what it accepts.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	switch {
	case c.Server.URL == "":
		errs = append(errs, errors.New("server.url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("server.url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("server.url: scheme must be ws or wss, got %q", u.Scheme))
	}

	if c.Server.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("server.handshake_timeout must not be negative"))
	}
	if c.Session.KeepAliveInterval <= 0 {
		errs = append(errs, errors.New("session.keepalive_interval must be positive"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: want console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
