package transport

import (
	"io"
	"sync"
)

// pipeBuffer is the per-direction buffer of a Pipe.
const pipeBuffer = 16

type pipeShared struct {
	done chan struct{}
	once sync.Once
}

func (s *pipeShared) close() {
	s.once.Do(func() { close(s.done) })
}

// PipeEnd is one side of an in-memory stream pair.
type PipeEnd struct {
	name   string
	inbox  chan Message
	peer   *PipeEnd
	shared *pipeShared
}

// Pipe returns two connected in-memory streams. Closing either end finishes
// both; messages already buffered are still delivered before io.EOF.
func Pipe() (*PipeEnd, *PipeEnd) {
	shared := &pipeShared{done: make(chan struct{})}
	a := &PipeEnd{name: "pipe-a", inbox: make(chan Message, pipeBuffer), shared: shared}
	b := &PipeEnd{name: "pipe-b", inbox: make(chan Message, pipeBuffer), shared: shared}
	a.peer, b.peer = b, a
	return a, b
}

// Send delivers msg to the peer end.
func (p *PipeEnd) Send(msg Message) error {
	select {
	case <-p.shared.done:
		return ErrClosed
	default:
	}
	select {
	case p.peer.inbox <- msg:
		return nil
	case <-p.shared.done:
		return ErrClosed
	}
}

// Receive returns the next message sent by the peer.
func (p *PipeEnd) Receive() (Message, error) {
	select {
	case msg := <-p.inbox:
		return msg, nil
	case <-p.shared.done:
		select {
		case msg := <-p.inbox:
			return msg, nil
		default:
			return Message{}, io.EOF
		}
	}
}

// Close finishes both ends.
func (p *PipeEnd) Close() error {
	p.shared.close()
	return nil
}

// RemoteAddr names the peer end.
func (p *PipeEnd) RemoteAddr() string {
	return p.peer.name
}
