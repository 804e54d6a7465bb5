// Package engine runs game sessions concurrently under a fixed ceiling.
//
// Sessions are submitted as Jobs on a bounded channel. The Engine starts a
// goroutine per job; each goroutine waits for one of N permits, publishes the
// session in the Registry, runs the body to completion and then, on every
// exit path, retracts the entry and returns the permit. A body that errors or
// panics never affects other sessions or the submission loop.
//
// # Usage
//
//	eng, jobs := engine.New[uuid.UUID](engine.WithMaxSessions(100))
//	go eng.Run()
//
//	jobs <- engine.NewJob(id, "Arena 1", func(ctx context.Context) (uuid.UUID, error) {
//	    return id, play(ctx)
//	})
//
//	close(jobs) // Run returns; running sessions are not cancelled.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxSessions is the default concurrency ceiling.
	DefaultMaxSessions = 100

	// DefaultQueueCapacity is the default submission channel capacity.
	DefaultQueueCapacity = 100

	tracerName = "github.com/vango-dev/lobbyd/pkg/engine"
)

// ErrAlreadyRunning is returned by Run when the engine is already running.
var ErrAlreadyRunning = errors.New("engine: already running")

// Body is the game logic of one session. It returns the session's ID when
// the session ends; the ID must equal the one the job was submitted with.
type Body[ID comparable] func(ctx context.Context) (ID, error)

// Job is the unit submitted to the Engine.
type Job[ID comparable] struct {
	ID   ID
	Name string
	Body Body[ID]
}

// NewJob creates a Job.
func NewJob[ID comparable](id ID, name string, body Body[ID]) Job[ID] {
	return Job[ID]{ID: id, Name: name, Body: body}
}

// Observer receives session lifecycle notifications. Implementations must be
// safe for concurrent use.
type Observer interface {
	// SessionStarted is called once the session holds a permit and is listed.
	SessionStarted(name string, permitWait time.Duration)

	// SessionFinished is called when the body returns. err is nil or a *FaultError.
	SessionFinished(name string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string, time.Duration)         {}
func (nopObserver) SessionFinished(string, time.Duration, error) {}

type config struct {
	maxSessions    int
	queueCapacity  int
	logger         *slog.Logger
	observer       Observer
	tracerProvider trace.TracerProvider
}

// Option configures an Engine.
type Option func(*config)

// WithMaxSessions sets the number of sessions allowed to run at once.
func WithMaxSessions(n int) Option {
	return func(c *config) {
		c.maxSessions = n
	}
}

// WithQueueCapacity sets the submission channel capacity.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		c.queueCapacity = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithTracerProvider sets the provider used for session spans.
// Default: the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// Engine schedules submitted sessions under a concurrency ceiling and owns
// the Registry of active sessions.
type Engine[ID comparable] struct {
	jobs        <-chan Job[ID]
	permits     *semaphore.Weighted
	maxSessions int
	registry    *Registry[ID]

	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer

	running atomic.Bool
}

// New creates an Engine and returns it with the send half of its submission
// channel. Closing that channel makes Run return.
func New[ID comparable](opts ...Option) (*Engine[ID], chan<- Job[ID]) {
	cfg := config{
		maxSessions:   DefaultMaxSessions,
		queueCapacity: DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSessions <= 0 {
		cfg.maxSessions = DefaultMaxSessions
	}
	if cfg.queueCapacity < 0 {
		cfg.queueCapacity = DefaultQueueCapacity
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default().With("component", "engine")
	}
	if cfg.observer == nil {
		cfg.observer = nopObserver{}
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}

	jobs := make(chan Job[ID], cfg.queueCapacity)
	e := &Engine[ID]{
		jobs:        jobs,
		permits:     semaphore.NewWeighted(int64(cfg.maxSessions)),
		maxSessions: cfg.maxSessions,
		registry:    newRegistry[ID](),
		logger:      cfg.logger,
		observer:    cfg.observer,
		tracer:      cfg.tracerProvider.Tracer(tracerName),
	}
	return e, jobs
}

// Registry returns the live registry of active sessions.
func (e *Engine[ID]) Registry() *Registry[ID] {
	return e.registry
}

// MaxSessions returns the concurrency ceiling.
func (e *Engine[ID]) MaxSessions() int {
	return e.maxSessions
}

// Run admits submitted jobs until the submission channel is closed. It does
// not wait for sessions that are still running when it returns.
func (e *Engine[ID]) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine running", "max_sessions", e.maxSessions)
	for job := range e.jobs {
		go e.execute(job)
	}
	e.logger.Info("submission channel closed", "active", e.registry.Len())
	return nil
}

// execute runs one job and reports the outcome once its permit and
// registry entry have been released.
func (e *Engine[ID]) execute(job Job[ID]) {
	elapsed, err := e.admit(job)

	if err != nil {
		var fault *FaultError
		if errors.As(err, &fault) && fault.Panic != nil {
			e.logger.Error("session panicked",
				"session_id", job.ID,
				"name", job.Name,
				"panic", fault.Panic,
				"stack", string(fault.Stack))
		} else {
			e.logger.Warn("session failed", "session_id", job.ID, "name", job.Name, "error", err)
		}
	} else {
		e.logger.Debug("session finished", "session_id", job.ID, "name", job.Name, "elapsed", elapsed)
	}
	e.observer.SessionFinished(job.Name, elapsed, err)
}

// admit holds a permit and a registry entry for the lifetime of the body.
// Both are released on every path out of the body.
func (e *Engine[ID]) admit(job Job[ID]) (time.Duration, error) {
	queued := time.Now()

	// A background context never cancels, so Acquire only waits.
	_ = e.permits.Acquire(context.Background(), 1)
	defer e.permits.Release(1)

	e.registry.insert(job.ID, job.Name)
	defer e.registry.remove(job.ID)

	wait := time.Since(queued)
	e.observer.SessionStarted(job.Name, wait)
	e.logger.Debug("session started", "session_id", job.ID, "name", job.Name, "permit_wait", wait)

	started := time.Now()
	err := e.runBody(job)
	return time.Since(started), err
}

// runBody executes the body inside a span and converts every failure,
// including a panic, into a *FaultError.
func (e *Engine[ID]) runBody(job Job[ID]) (err error) {
	sid := fmt.Sprint(job.ID)
	ctx, span := e.tracer.Start(context.Background(), "engine.session",
		trace.WithAttributes(
			attribute.String("session.id", sid),
			attribute.String("session.name", job.Name),
		))
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{SessionID: sid, Name: job.Name, Err: ErrPanic, Panic: r, Stack: debug.Stack()}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if job.Body == nil {
		return &FaultError{SessionID: sid, Name: job.Name, Err: ErrNilBody}
	}

	got, bodyErr := job.Body(ctx)
	if bodyErr != nil {
		return &FaultError{SessionID: sid, Name: job.Name, Err: bodyErr}
	}
	if got != job.ID {
		return &FaultError{
			SessionID: sid,
			Name:      job.Name,
			Err:       fmt.Errorf("%w: submitted %s, returned %v", ErrIDMismatch, sid, got),
		}
	}
	return nil
}

// Submit sends job on jobs, waiting while the channel is full. It gives up
// only when ctx is done.
func Submit[ID comparable](ctx context.Context, jobs chan<- Job[ID], job Job[ID]) error {
	select {
	case jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine: submit %q: %w", job.Name, ctx.Err())
	}
}
