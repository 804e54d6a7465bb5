package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnConfig tunes a WebSocket stream.
type ConnConfig struct {
	// MaxMessageSize is the largest inbound message accepted.
	// Default: 64KB.
	MaxMessageSize int64

	// WriteTimeout bounds a single Send.
	// Default: 10 seconds.
	WriteTimeout time.Duration
}

// DefaultConnConfig returns a ConnConfig with sensible defaults.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		MaxMessageSize: 64 * 1024,
		WriteTimeout:   10 * time.Second,
	}
}

// Conn adapts a gorilla WebSocket connection to Stream.
type Conn struct {
	ws     *websocket.Conn
	config ConnConfig

	// writeMu serialises writers; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps ws. Zero fields of config fall back to DefaultConnConfig.
func NewConn(ws *websocket.Conn, config ConnConfig) *Conn {
	defaults := DefaultConnConfig()
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	ws.SetReadLimit(config.MaxMessageSize)
	return &Conn{ws: ws, config: config}
}

// Send writes msg as a single WebSocket frame.
func (c *Conn) Send(msg Message) error {
	var frameType int
	switch msg.Kind {
	case Text:
		frameType = websocket.TextMessage
	case Binary:
		frameType = websocket.BinaryMessage
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, msg.Kind)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.ws.WriteMessage(frameType, msg.Data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Receive returns the next data frame. A close frame from the peer is
// reported as io.EOF; any other failure is returned wrapped.
func (c *Conn) Receive() (Message, error) {
	frameType, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("transport: read: %w", err)
	}

	switch frameType {
	case websocket.TextMessage:
		return Message{Kind: Text, Data: data}, nil
	case websocket.BinaryMessage:
		return Message{Kind: Binary, Data: data}, nil
	default:
		return Message{}, fmt.Errorf("transport: unexpected frame type %d", frameType)
	}
}

// Close sends a normal closure frame, best effort, and closes the socket.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
