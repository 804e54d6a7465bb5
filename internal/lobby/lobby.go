// Package lobby turns streams handed over by the gateway into players and
// groups waiting players into matches that run on the session engine.
package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/lobbyd/pkg/client"
	"github.com/vango-dev/lobbyd/pkg/engine"
	"github.com/vango-dev/lobbyd/pkg/transport"
)

// Player is a connected lobby member.
type Player = client.Connected[uuid.UUID]

// Event is a JSON text frame sent to players by the lobby.
type Event struct {
	Type    string   `json:"type"`
	Name    string   `json:"name,omitempty"`
	Session string   `json:"session,omitempty"`
	Players []string `json:"players,omitempty"`
}

// Event types.
const (
	EventWelcome        = "welcome"
	EventMatchStart     = "match_start"
	EventMatchCancelled = "match_cancelled"
	EventPlayerLeft     = "player_left"
)

// LeaveCommand is the text frame a player sends to leave its match.
const LeaveCommand = "/leave"

// Config configures an Assembler.
type Config struct {
	// PlayersPerMatch is the number of waiting players that start a match.
	// Default: 2.
	PlayersPerMatch int

	// Logger defaults to slog.Default() tagged with component=lobby.
	Logger *slog.Logger
}

// Assembler consumes delivered streams and submits matches to the engine.
type Assembler struct {
	streams         <-chan transport.Stream
	jobs            chan<- engine.Job[uuid.UUID]
	playersPerMatch int
	logger          *slog.Logger

	// joined carries greeted players back to Run; nil means the greeting failed.
	joined chan *Player

	mu      sync.Mutex
	waiting *queue.Queue

	players atomic.Uint64
	matches atomic.Uint64
}

// New creates an Assembler reading streams and submitting on jobs.
func New(streams <-chan transport.Stream, jobs chan<- engine.Job[uuid.UUID], cfg Config) *Assembler {
	if cfg.PlayersPerMatch <= 0 {
		cfg.PlayersPerMatch = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "lobby")
	}
	return &Assembler{
		streams:         streams,
		jobs:            jobs,
		playersPerMatch: cfg.PlayersPerMatch,
		logger:          cfg.Logger,
		joined:          make(chan *Player),
		waiting:         queue.New(),
	}
}

// Waiting returns the number of players waiting for a match.
func (a *Assembler) Waiting() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiting.Length()
}

// Run assembles matches until the stream channel closes or ctx is done.
// Players still waiting when Run returns are disconnected.
func (a *Assembler) Run(ctx context.Context) error {
	quit := make(chan struct{})
	defer a.dropWaiting()
	defer close(quit)

	streams := a.streams
	greeting := 0
	for streams != nil || greeting > 0 {
		select {
		case stream, ok := <-streams:
			if !ok {
				streams = nil
				continue
			}
			greeting++
			name := fmt.Sprintf("player-%d", a.players.Add(1))
			go a.greet(name, stream, quit)
		case player := <-a.joined:
			greeting--
			if player == nil {
				continue
			}
			if err := a.seat(ctx, player); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// greet connects a new player and sends the welcome off the Run loop, so a
// slow client never delays admission of the others.
func (a *Assembler) greet(name string, stream transport.Stream, quit <-chan struct{}) {
	player, err := client.New[uuid.UUID](name).Connect(stream)
	if err != nil {
		_ = stream.Close()
		a.logger.Warn("connect failed", "remote_addr", stream.RemoteAddr(), "error", err)
	} else if err := sendEvent(player, Event{Type: EventWelcome, Name: name}); err != nil {
		a.logger.Info("player left before joining", "player", name, "error", err)
		_, _ = player.Disconnect()
		player = nil
	}

	select {
	case a.joined <- player:
	case <-quit:
		if player != nil {
			_, _ = player.Disconnect()
		}
	}
}

// seat queues player and submits every full group that answers the match
// announcement. Players that cannot be reached are dropped and the rest go
// back to the front of the queue.
func (a *Assembler) seat(ctx context.Context, player *Player) error {
	a.logger.Debug("player waiting", "player", player.Name(), "remote_addr", player.RemoteAddr())

	group := a.enqueue(player)
	for group != nil {
		id := uuid.New()
		name := fmt.Sprintf("Match %d", a.matches.Load()+1)

		live := a.announce(Event{Type: EventMatchStart, Name: name, Session: id.String(), Players: names(group)}, group)
		if len(live) < len(group) {
			cancelled := Event{Type: EventMatchCancelled, Name: name, Session: id.String()}
			for _, p := range live {
				_ = sendEvent(p, cancelled)
			}
			a.logger.Info("match cancelled", "name", name, "dropped", len(group)-len(live))
			group = a.requeue(live)
			continue
		}

		a.matches.Add(1)
		m := newMatch(id, name, group, a.logger)
		if err := engine.Submit(ctx, a.jobs, engine.NewJob(m.id, m.name, m.run)); err != nil {
			m.abandon()
			return err
		}
		a.logger.Info("match submitted", "session_id", m.id, "name", m.name, "players", m.names())
		return nil
	}
	return nil
}

// announce sends ev to every player of group at once and returns the players
// that received it. The others are disconnected.
func (a *Assembler) announce(ev Event, group []*Player) []*Player {
	failed := make([]error, len(group))
	var g errgroup.Group
	for i, p := range group {
		i, p := i, p
		g.Go(func() error {
			failed[i] = sendEvent(p, ev)
			return nil
		})
	}
	_ = g.Wait()

	live := make([]*Player, 0, len(group))
	for i, p := range group {
		if failed[i] != nil {
			a.logger.Info("player left while waiting", "player", p.Name(), "error", failed[i])
			_, _ = p.Disconnect()
			continue
		}
		live = append(live, p)
	}
	return live
}

// enqueue adds player to the waiting room and pops a full group if one is ready.
func (a *Assembler) enqueue(player *Player) []*Player {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.waiting.Add(player)
	return a.popGroup()
}

// requeue puts players back ahead of everyone waiting, keeping their order.
func (a *Assembler) requeue(players []*Player) []*Player {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := queue.New()
	for _, p := range players {
		q.Add(p)
	}
	for a.waiting.Length() > 0 {
		q.Add(a.waiting.Remove())
	}
	a.waiting = q
	return a.popGroup()
}

// popGroup must be called with mu held.
func (a *Assembler) popGroup() []*Player {
	if a.waiting.Length() < a.playersPerMatch {
		return nil
	}
	group := make([]*Player, 0, a.playersPerMatch)
	for i := 0; i < a.playersPerMatch; i++ {
		group = append(group, a.waiting.Remove().(*Player))
	}
	return group
}

func (a *Assembler) dropWaiting() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.waiting.Length() > 0 {
		p := a.waiting.Remove().(*Player)
		_, _ = p.Disconnect()
	}
}

func sendEvent(p *Player, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Send(transport.TextMessage(string(data)))
}

func names(players []*Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name()
	}
	return out
}
