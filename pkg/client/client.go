// Package client tracks one player and its relation to a game.
//
// A player is either Disconnected or Connected, and each state is its own
// type: message I/O exists only on Connected, so sending on a player without
// a transport does not compile. Connect and Disconnect consume their
// receiver; a consumed value answers every further transition, membership
// change or I/O call with ErrConsumed and can never reach the stream again.
// Name and Game stay readable.
//
//	d := client.New[uuid.UUID]("alice")
//	c, _ := d.Connect(stream)
//	_ = c.Send(transport.TextMessage("hi"))
//	d, _ = c.Disconnect()
package client

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/lobbyd/pkg/transport"
)

var (
	// ErrConsumed is returned by any call on a value that already transitioned.
	ErrConsumed = errors.New("client: session already transitioned")

	// ErrSendFailed marks a transport error during Send. The caller should Disconnect.
	ErrSendFailed = errors.New("client: send failed")

	// ErrNilStream is returned by Connect when no stream is supplied.
	ErrNilStream = errors.New("client: nil stream")
)

// StateError reports an operation attempted on a consumed session value.
type StateError struct {
	Name  string
	State string
	Op    string
}

// Error returns the error message.
func (e *StateError) Error() string {
	return fmt.Sprintf("client: %s: %s on consumed %s session", e.Name, e.Op, e.State)
}

// Unwrap lets errors.Is match ErrConsumed.
func (e *StateError) Unwrap() error {
	return ErrConsumed
}

// profile is the state shared by both lifecycle states.
type profile[ID comparable] struct {
	name   string
	game   ID
	inGame bool
}

// Disconnected is a player with no transport attached.
type Disconnected[ID comparable] struct {
	mu       sync.Mutex
	profile  profile[ID]
	consumed bool
}

// New returns a Disconnected player named name and not in any game.
func New[ID comparable](name string) *Disconnected[ID] {
	return &Disconnected[ID]{profile: profile[ID]{name: name}}
}

// Name returns the player's name.
func (d *Disconnected[ID]) Name() string {
	return d.profile.name
}

// Game returns the game the player belongs to, if any.
func (d *Disconnected[ID]) Game() (ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile.game, d.profile.inGame
}

// Join records membership in game id.
func (d *Disconnected[ID]) Join(id ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consumed {
		return &StateError{Name: d.profile.name, State: "disconnected", Op: "join"}
	}
	d.profile.game, d.profile.inGame = id, true
	return nil
}

// Leave clears game membership.
func (d *Disconnected[ID]) Leave() error {
	var zero ID
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consumed {
		return &StateError{Name: d.profile.name, State: "disconnected", Op: "leave"}
	}
	d.profile.game, d.profile.inGame = zero, false
	return nil
}

// Connect attaches stream and returns the Connected player. d is consumed.
func (d *Disconnected[ID]) Connect(stream transport.Stream) (*Connected[ID], error) {
	if stream == nil {
		return nil, ErrNilStream
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.consumed {
		return nil, &StateError{Name: d.profile.name, State: "disconnected", Op: "connect"}
	}
	d.consumed = true

	c := &Connected[ID]{profile: d.profile}
	c.stream.Store(&streamRef{stream: stream})
	return c, nil
}

// streamRef boxes a Stream for atomic swaps.
type streamRef struct {
	stream transport.Stream
}

// Connected is a player with an attached transport.
type Connected[ID comparable] struct {
	mu      sync.Mutex
	profile profile[ID]

	// stream is nil once the value has been consumed by Disconnect.
	stream atomic.Pointer[streamRef]
}

// Name returns the player's name.
func (c *Connected[ID]) Name() string {
	return c.profile.name
}

// Game returns the game the player belongs to, if any.
func (c *Connected[ID]) Game() (ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.game, c.profile.inGame
}

// Join records membership in game id.
func (c *Connected[ID]) Join(id ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream.Load() == nil {
		return &StateError{Name: c.profile.name, State: "connected", Op: "join"}
	}
	c.profile.game, c.profile.inGame = id, true
	return nil
}

// Leave clears game membership.
func (c *Connected[ID]) Leave() error {
	var zero ID
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream.Load() == nil {
		return &StateError{Name: c.profile.name, State: "connected", Op: "leave"}
	}
	c.profile.game, c.profile.inGame = zero, false
	return nil
}

// RemoteAddr returns the peer address, or "" once disconnected.
func (c *Connected[ID]) RemoteAddr() string {
	ref := c.stream.Load()
	if ref == nil {
		return ""
	}
	return ref.stream.RemoteAddr()
}

// Send writes msg to the player. A transport failure is returned wrapping
// ErrSendFailed; the state does not change.
func (c *Connected[ID]) Send(msg transport.Message) error {
	ref := c.stream.Load()
	if ref == nil {
		return &StateError{Name: c.profile.name, State: "connected", Op: "send"}
	}
	if err := ref.stream.Send(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Disconnect drops the stream and returns the Disconnected player with the
// same name and membership. c is consumed.
func (c *Connected[ID]) Disconnect() (*Disconnected[ID], error) {
	ref := c.stream.Swap(nil)
	if ref == nil {
		return nil, &StateError{Name: c.profile.name, State: "connected", Op: "disconnect"}
	}
	_ = ref.stream.Close()

	c.mu.Lock()
	p := c.profile
	c.mu.Unlock()
	return &Disconnected[ID]{profile: p}, nil
}
