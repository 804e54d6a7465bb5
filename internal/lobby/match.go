package lobby

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/lobbyd/pkg/client"
	"github.com/vango-dev/lobbyd/pkg/transport"
)

// match relays every frame from one player to all others until fewer than
// two players remain.
type match struct {
	id      uuid.UUID
	name    string
	players []*Player
	logger  *slog.Logger

	mu      sync.Mutex
	present map[*Player]bool
}

func newMatch(id uuid.UUID, name string, players []*Player, logger *slog.Logger) *match {
	present := make(map[*Player]bool, len(players))
	for _, p := range players {
		_ = p.Join(id)
		present[p] = true
	}
	return &match{
		id:      id,
		name:    name,
		players: players,
		logger:  logger.With("session_id", id, "match", name),
		present: present,
	}
}

func (m *match) names() []string {
	return names(m.players)
}

// run is the engine body of the match. Every player has already received
// match_start.
func (m *match) run(context.Context) (uuid.UUID, error) {
	var g errgroup.Group
	for _, p := range m.players {
		p := p
		g.Go(func() error {
			return m.play(p)
		})
	}
	err := g.Wait()
	m.logger.Info("match over")
	return m.id, err
}

// play relays p's frames until p leaves or its stream ends.
func (m *match) play(p *Player) error {
	end, err := p.ReceiveLoop(func(msg transport.Message) client.Flow {
		if msg.Kind == transport.Text && msg.Text() == LeaveCommand {
			return client.Stop
		}
		m.broadcast(p, msg)
		return client.Continue
	})
	if err != nil {
		// Already dropped by a failed send or the last-player rule.
		return nil
	}
	m.logger.Debug("player loop ended", "player", p.Name(), "reason", end)
	m.drop(p)
	return nil
}

// broadcast sends msg to every present player except from. Players whose
// send fails are dropped.
func (m *match) broadcast(from *Player, msg transport.Message) {
	for _, p := range m.others(from) {
		if err := p.Send(msg); err != nil {
			m.logger.Info("send failed, dropping player", "player", p.Name(), "error", err)
			m.drop(p)
		}
	}
}

func (m *match) others(from *Player) []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Player, 0, len(m.present))
	for _, p := range m.players {
		if p != from && m.present[p] {
			out = append(out, p)
		}
	}
	return out
}

// drop disconnects p once and tells the rest. When a single player is left
// in a multi-player match, that player is dropped too.
func (m *match) drop(p *Player) {
	m.mu.Lock()
	if !m.present[p] {
		m.mu.Unlock()
		return
	}
	delete(m.present, p)
	remaining := make([]*Player, 0, len(m.present))
	for _, q := range m.players {
		if m.present[q] {
			remaining = append(remaining, q)
		}
	}
	m.mu.Unlock()

	if d, err := p.Disconnect(); err == nil {
		_ = d.Leave()
	}
	m.logger.Info("player left", "player", p.Name())

	left := Event{Type: EventPlayerLeft, Name: p.Name()}
	for _, q := range remaining {
		_ = sendEvent(q, left)
	}
	if len(remaining) == 1 && len(m.players) > 1 {
		m.drop(remaining[0])
	}
}

// abandon disconnects every player of a match that never started.
func (m *match) abandon() {
	for _, p := range m.players {
		m.drop(p)
	}
}
