// Package transport defines the bidirectional, message-framed stream that
// connects one player to the server, and its WebSocket realisation.
package transport

import (
	"errors"
	"fmt"
)

// Kind is the frame type of a message.
type Kind uint8

const (
	// Text is a UTF-8 text frame.
	Text Kind = iota + 1
	// Binary is an opaque binary frame.
	Binary
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is one complete frame. Partial frames are never exposed.
type Message struct {
	Kind Kind
	Data []byte
}

// TextMessage returns a text message carrying s.
func TextMessage(s string) Message {
	return Message{Kind: Text, Data: []byte(s)}
}

// BinaryMessage returns a binary message carrying b.
func BinaryMessage(b []byte) Message {
	return Message{Kind: Binary, Data: b}
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Data)
}

// Stream is a bidirectional message channel to exactly one client.
//
// Send may be called from multiple goroutines. Receive must only be called
// from one goroutine at a time. Once Receive returns an error the stream is
// finished and every later call returns an error as well.
type Stream interface {
	// Send writes one message.
	Send(msg Message) error

	// Receive blocks until the next message arrives.
	Receive() (Message, error)

	// Close releases the underlying connection.
	Close() error

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}

var (
	// ErrClosed is returned by operations on a closed stream.
	ErrClosed = errors.New("transport: stream closed")

	// ErrUnsupportedKind is returned when sending a message with an unknown kind.
	ErrUnsupportedKind = errors.New("transport: unsupported message kind")
)
