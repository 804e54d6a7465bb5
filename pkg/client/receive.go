package client

import "github.com/vango-dev/lobbyd/pkg/transport"

// Flow tells ReceiveLoop whether to keep reading.
type Flow uint8

const (
	// Continue reads the next message.
	Continue Flow = iota
	// Stop ends the loop after the current message.
	Stop
)

// End reports why ReceiveLoop returned.
type End uint8

const (
	// EndOfStream means the transport finished or produced an unreadable frame.
	EndOfStream End = iota + 1
	// Stopped means the callback returned Stop.
	Stopped
)

// String returns the end reason.
func (e End) String() string {
	switch e {
	case EndOfStream:
		return "end_of_stream"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ReceiveLoop hands every inbound message to onMessage until the stream ends
// or onMessage returns Stop. Receive errors end the loop as EndOfStream and
// are not passed to onMessage. The only error returned is a StateError when c
// has already been consumed.
//
// ReceiveLoop must not run concurrently with another ReceiveLoop on c.
func (c *Connected[ID]) ReceiveLoop(onMessage func(transport.Message) Flow) (End, error) {
	ref := c.stream.Load()
	if ref == nil {
		return 0, &StateError{Name: c.profile.name, State: "connected", Op: "receive"}
	}

	for {
		msg, err := ref.stream.Receive()
		if err != nil {
			return EndOfStream, nil
		}
		if onMessage(msg) == Stop {
			return Stopped, nil
		}
	}
}
