// Package dispatcher routes user intents, named by command strings, to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned when dispatching to a buffered handler after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is one user intent issued by the shell.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// Arg returns the i-th argument or "" when absent.
func (e Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(context.Context, Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
// Buffered handlers must not mutate session state; they are for skippable work.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan queued
	closed  bool
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan queued),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registration happens before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
// Synchronous handlers run to completion on the caller's goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(ctx, e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Close stops accepting buffered events and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan queued, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for q := range buffer {
			_, _ = h(q.ctx, q.event)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	return func(ctx context.Context, e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}

		q := queued{ctx: context.WithoutCancel(ctx), event: e}
		if blocking {
			buffer <- q
			return "queued", nil
		}

		select {
		case buffer <- q:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", e.Args)

		result, err := h(ctx, e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
