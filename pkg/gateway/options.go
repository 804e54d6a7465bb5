package gateway

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/lobbyd/pkg/transport"
)

type config struct {
	capacity       int
	upgrader       websocket.Upgrader
	connConfig     transport.ConnConfig
	logger         *slog.Logger
	observer       Observer
	tracerProvider trace.TracerProvider
}

// Option configures a Gateway.
type Option func(*config)

// WithCapacity sets the delivery channel capacity.
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithUpgrader replaces the WebSocket upgrader, e.g. to set CheckOrigin.
func WithUpgrader(u websocket.Upgrader) Option {
	return func(c *config) {
		c.upgrader = u
	}
}

// WithConnConfig sets the per-stream limits.
func WithConnConfig(cc transport.ConnConfig) Option {
	return func(c *config) {
		c.connConfig = cc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithTracerProvider sets the provider used for handshake spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}
