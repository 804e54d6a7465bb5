// Package gateway terminates WebSocket upgrade handshakes and hands the
// resulting streams to lobby assembly over a bounded channel.
//
// Upgrade requests are answered by the handshake itself; delivery of the
// stream then happens in the background, waiting while the channel is full.
// Any other request is answered with a JSON listing of active sessions and
// delivers nothing.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/lobbyd/pkg/engine"
	"github.com/vango-dev/lobbyd/pkg/transport"
)

// DefaultCapacity is the default delivery channel capacity.
const DefaultCapacity = 100

const tracerName = "github.com/vango-dev/lobbyd/pkg/gateway"

// ErrDeliveryClosed is returned when a stream cannot be delivered because the
// gateway was closed.
var ErrDeliveryClosed = errors.New("gateway: delivery channel closed")

// Directory supplies the session listing for non-upgrade requests.
type Directory interface {
	Entries() []engine.Entry
}

// Observer receives gateway events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// HandshakeCompleted is called after every upgrade attempt.
	HandshakeCompleted(err error)

	// StreamDelivered is called after every delivery attempt.
	StreamDelivered(err error)
}

type nopObserver struct{}

func (nopObserver) HandshakeCompleted(error) {}
func (nopObserver) StreamDelivered(error)    {}

// Listing is the body of a non-upgrade response.
type Listing struct {
	Sessions []engine.Entry `json:"sessions"`
	Count    int            `json:"count"`
}

// Gateway is an http.Handler producing transport streams.
type Gateway struct {
	dir        Directory
	upgrader   websocket.Upgrader
	connConfig transport.ConnConfig
	logger     *slog.Logger
	observer   Observer
	tracer     trace.Tracer

	streams chan transport.Stream

	// mu guards closed against new deliveries starting; inflight tracks the
	// ones already started so the channel is only closed once they settle.
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a Gateway listing sessions from dir.
func New(dir Directory, opts ...Option) *Gateway {
	cfg := config{
		capacity:   DefaultCapacity,
		connConfig: transport.DefaultConnConfig(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity < 0 {
		cfg.capacity = DefaultCapacity
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default().With("component", "gateway")
	}
	if cfg.observer == nil {
		cfg.observer = nopObserver{}
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}

	return &Gateway{
		dir:        dir,
		upgrader:   cfg.upgrader,
		connConfig: cfg.connConfig,
		logger:     cfg.logger,
		observer:   cfg.observer,
		tracer:     cfg.tracerProvider.Tracer(tracerName),
		streams:    make(chan transport.Stream, cfg.capacity),
		done:       make(chan struct{}),
	}
}

// Streams returns the receive half of the delivery channel. It is closed
// after Close once every pending delivery has settled.
func (g *Gateway) Streams() <-chan transport.Stream {
	return g.streams
}

// ServeHTTP upgrades WebSocket requests and lists sessions otherwise.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		g.handleUpgrade(w, r)
		return
	}
	g.handleListing(w, r)
}

// handleUpgrade performs the handshake and starts the background delivery.
// gorilla writes the HTTP error response itself when the handshake fails.
func (g *Gateway) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	_, span := g.tracer.Start(r.Context(), "gateway.handshake",
		trace.WithAttributes(attribute.String("net.peer", r.RemoteAddr)))
	defer span.End()

	ws, err := g.upgrader.Upgrade(w, r, nil)
	g.observer.HandshakeCompleted(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		g.logger.Warn("websocket handshake failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	stream := transport.NewConn(ws, g.connConfig)
	if !g.beginDelivery() {
		g.observer.StreamDelivered(ErrDeliveryClosed)
		g.logger.Warn("dropping connection", "remote_addr", stream.RemoteAddr(), "error", ErrDeliveryClosed)
		_ = stream.Close()
		return
	}
	go g.deliver(stream)
}

func (g *Gateway) beginDelivery() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false
	}
	g.inflight.Add(1)
	return true
}

// deliver pushes stream onto the channel, waiting while it is full.
func (g *Gateway) deliver(stream transport.Stream) {
	defer g.inflight.Done()

	select {
	case g.streams <- stream:
		g.observer.StreamDelivered(nil)
		g.logger.Debug("stream delivered", "remote_addr", stream.RemoteAddr())
	case <-g.done:
		g.observer.StreamDelivered(ErrDeliveryClosed)
		g.logger.Warn("dropping connection", "remote_addr", stream.RemoteAddr(), "error", ErrDeliveryClosed)
		_ = stream.Close()
	}
}

func (g *Gateway) handleListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var entries []engine.Entry
	if g.dir != nil {
		entries = g.dir.Entries()
	}
	if entries == nil {
		entries = []engine.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(Listing{Sessions: entries, Count: len(entries)}); err != nil {
		g.logger.Error("listing encode failed", "error", err)
	}
}

// Close stops accepting deliveries. Deliveries waiting for space fail and
// close their connection. Close returns once the delivery channel is closed.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.done)
	g.mu.Unlock()

	g.inflight.Wait()
	close(g.streams)
}
