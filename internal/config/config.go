package config

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/lobbyd/internal/errors"
)

const (
	// DefaultAddress is the default listen address.
	DefaultAddress = "0.0.0.0:7878"

	// DefaultMaxSessions is the default number of concurrently running sessions.
	DefaultMaxSessions = 100

	// DefaultCapacity is the default capacity of the submission and delivery channels.
	DefaultCapacity = 100

	// DefaultPlayersPerMatch is the default number of players grouped into one session.
	DefaultPlayersPerMatch = 2

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LOBBYD_"
)

// Config is the complete lobbyd configuration.
type Config struct {
	// Address is the listen address (host:port).
	Address string `toml:"address" env:"ADDRESS"`

	// MaxSessions is the number of game sessions allowed to run at once.
	MaxSessions int `toml:"max_sessions" env:"MAX_SESSIONS"`

	// QueueCapacity is the capacity of the session submission channel.
	QueueCapacity int `toml:"queue_capacity" env:"QUEUE_CAPACITY"`

	// DeliveryCapacity is the capacity of the stream delivery channel.
	DeliveryCapacity int `toml:"delivery_capacity" env:"DELIVERY_CAPACITY"`

	// PlayersPerMatch is the number of waiting players that start a session.
	PlayersPerMatch int `toml:"players_per_match" env:"PLAYERS_PER_MATCH"`

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int `toml:"read_buffer_size" env:"READ_BUFFER_SIZE"`

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int `toml:"write_buffer_size" env:"WRITE_BUFFER_SIZE"`

	// MaxMessageSize is the largest inbound WebSocket message.
	MaxMessageSize int64 `toml:"max_message_size" env:"MAX_MESSAGE_SIZE"`

	// WriteTimeout bounds one WebSocket write.
	WriteTimeout time.Duration `toml:"write_timeout" env:"WRITE_TIMEOUT"`

	// ReadHeaderTimeout bounds reading HTTP request headers.
	ReadHeaderTimeout time.Duration `toml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`

	// ShutdownTimeout bounds stopping the HTTP listener.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`

	// MetricsPath is the Prometheus endpoint; empty disables it.
	MetricsPath string `toml:"metrics_path" env:"METRICS_PATH"`

	// path stores where the config was loaded from.
	path string
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Address:           DefaultAddress,
		MaxSessions:       DefaultMaxSessions,
		QueueCapacity:     DefaultCapacity,
		DeliveryCapacity:  DefaultCapacity,
		PlayersPerMatch:   DefaultPlayersPerMatch,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MaxMessageSize:    64 * 1024,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		LogLevel:          "info",
		LogFormat:         "text",
		MetricsPath:       DefaultMetricsPath,
	}
}

// Override adjusts a resolved Config before validation, e.g. from CLI flags.
type Override func(*Config)

// Load resolves the configuration from defaults, the TOML file at path, the
// environment and finally overrides, then validates the result. An empty
// path skips the file.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the TOML file at path onto c.
func (c *Config) decodeFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.New("E100").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Check the --config path or omit it to use defaults").
				Wrap(err)
		}
		return errors.New("E101").Wrap(err)
	}

	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.New("E101").
			WithDetail("Failed to parse " + path).
			WithSuggestion("Check that the file is valid TOML; durations are strings like \"10s\"").
			Wrap(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return errors.New("E104").
			WithDetail("Unknown keys in " + path + ": " + strings.Join(keys, ", "))
	}

	c.path = path
	return nil
}

// applyEnv overlays LOBBYD_* environment variables onto c.
func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("E103").Wrap(fmt.Errorf("parse env: %w", err))
	}
	return nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return invalid("address %q is not host:port", c.Address)
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"max_sessions", int64(c.MaxSessions)},
		{"players_per_match", int64(c.PlayersPerMatch)},
		{"read_buffer_size", int64(c.ReadBufferSize)},
		{"write_buffer_size", int64(c.WriteBufferSize)},
		{"max_message_size", c.MaxMessageSize},
		{"write_timeout", int64(c.WriteTimeout)},
		{"read_header_timeout", int64(c.ReadHeaderTimeout)},
		{"shutdown_timeout", int64(c.ShutdownTimeout)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return invalid("%s must be positive, got %d", p.name, p.value)
		}
	}

	if c.QueueCapacity < 0 {
		return invalid("queue_capacity must not be negative, got %d", c.QueueCapacity)
	}
	if c.DeliveryCapacity < 0 {
		return invalid("delivery_capacity must not be negative, got %d", c.DeliveryCapacity)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format %q is not text or json", c.LogFormat)
	}

	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return invalid("metrics_path %q must start with /", c.MetricsPath)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New("E102").
		WithDetail(fmt.Sprintf(format, args...)).
		WithSuggestion("Fix the value in the config file or the matching " + EnvPrefix + "* variable")
}
