// Package server wires the session engine, the connection gateway and lobby
// assembly behind one HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/lobbyd/internal/config"
	lerrors "github.com/vango-dev/lobbyd/internal/errors"
	"github.com/vango-dev/lobbyd/internal/lobby"
	"github.com/vango-dev/lobbyd/internal/metrics"
	"github.com/vango-dev/lobbyd/pkg/engine"
	"github.com/vango-dev/lobbyd/pkg/gateway"
	"github.com/vango-dev/lobbyd/pkg/transport"
)

// Server is the lobbyd HTTP/WebSocket server.
type Server struct {
	config *config.Config

	engine  *engine.Engine[uuid.UUID]
	jobs    chan<- engine.Job[uuid.UUID]
	gateway *gateway.Gateway
	lobby   *lobby.Assembler

	metrics  *metrics.Collector
	registry *prometheus.Registry

	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := slog.Default().With("component", "server")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(metrics.WithRegistry(registry))

	eng, jobs := engine.New[uuid.UUID](
		engine.WithMaxSessions(cfg.MaxSessions),
		engine.WithQueueCapacity(cfg.QueueCapacity),
		engine.WithObserver(collector),
	)
	gw := gateway.New(eng.Registry(),
		gateway.WithCapacity(cfg.DeliveryCapacity),
		gateway.WithObserver(collector),
		gateway.WithUpgrader(websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		}),
		gateway.WithConnConfig(transport.ConnConfig{
			MaxMessageSize: cfg.MaxMessageSize,
			WriteTimeout:   cfg.WriteTimeout,
		}),
	)
	assembler := lobby.New(gw.Streams(), jobs, lobby.Config{PlayersPerMatch: cfg.PlayersPerMatch})

	s := &Server{
		config:   cfg,
		engine:   eng,
		jobs:     jobs,
		gateway:  gw,
		lobby:    assembler,
		metrics:  collector,
		registry: registry,
		logger:   logger,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/", s.gateway)
	r.Handle("/ws", s.gateway)
	r.Handle("/sessions", s.gateway)
	r.Get("/healthz", s.handleHealth)
	if s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Engine returns the session engine.
func (s *Server) Engine() *engine.Engine[uuid.UUID] {
	return s.engine
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

// Run binds the configured address and serves until SIGINT, SIGTERM or ctx
// is done.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return lerrors.New("E120").
			WithDetail("Could not listen on " + s.config.Address).
			WithSuggestion("Pick another address with --addr or LOBBYD_ADDRESS").
			Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the engine, lobby assembly and HTTP server on ln until ctx is
// done. On return the listener is closed, the gateway has stopped delivering
// and the submission channel is closed. Sessions still running are not
// waited for.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.engine.Run)

	g.Go(func() error {
		// The assembler is the only submitter, so the channel closes with it.
		defer close(s.jobs)
		return s.lobby.Run(context.Background())
	})

	g.Go(func() error {
		s.logger.Info("server starting", "address", ln.Addr().String(), "max_sessions", s.engine.MaxSessions())
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return lerrors.New("E120").Wrap(err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down...")
		return s.shutdown()
	})

	err := g.Wait()
	s.logger.Info("server stopped", "active_sessions", s.engine.Registry().Len())
	return err
}

// shutdown stops the listener and then the gateway, which ends lobby assembly.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.gateway.Close()
	if err != nil {
		s.logger.Error("shutdown error", "error", err)
		return lerrors.New("E121").Wrap(err)
	}
	return nil
}
