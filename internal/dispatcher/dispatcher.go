// Package dispatcher routes console commands to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownCommand is returned by Dispatch for commands without a handler.
var ErrUnknownCommand = errors.New("unknown command")

// Event is one parsed console line.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of a structured logger the dispatcher writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Runner executes a function on another goroutine and waits for it.
// *loop.Loop is a Runner.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
	Len() int
}

// Option configures handler registration.
type Option func(*route)

// OnLoop makes the handler run on r's goroutine. Dispatch waits up to timeout for it;
// zero waits forever.
func OnLoop(r Runner, timeout time.Duration) Option {
	return func(rt *route) {
		rt.runner = r
		rt.timeout = timeout
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(rt *route) {
		rt.logged = true
	}
}

type route struct {
	command string
	handle  HandlerFunc
	runner  Runner
	timeout time.Duration
	logged  bool
}

type instruments struct {
	pending   metric.Int64ObservableGauge
	processed metric.Int64Counter
	latency   metric.Float64Histogram
}

// Dispatcher maps command names to handlers.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]*route
	logger Logger
	inst   instruments
}

// New creates a Dispatcher reporting to the global OTel meter provider.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes: make(map[string]*route),
		logger: logger,
	}
	if err := d.instrument(otel.Meter("github.com/SUSTechPOINTS/boxeditor/internal/dispatcher")); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	d.inst.pending, err = m.Int64ObservableGauge("dispatcher.loop.pending",
		metric.WithDescription("Tasks waiting on the editor loop"))
	if err != nil {
		return fmt.Errorf("creating pending gauge: %w", err)
	}
	if _, err = m.RegisterCallback(d.observePending, d.inst.pending); err != nil {
		return fmt.Errorf("registering pending callback: %w", err)
	}

	d.inst.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Commands handled"))
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.inst.latency, err = m.Float64Histogram("dispatcher.events.duration",
		metric.WithDescription("Time from dispatch to handler result"),
		metric.WithUnit("ms"))
	if err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}
	return nil
}

// observePending reports each distinct runner once.
func (d *Dispatcher) observePending(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var seen []Runner
	for _, rt := range d.routes {
		if rt.runner == nil || slices.Contains(seen, rt.runner) {
			continue
		}
		seen = append(seen, rt.runner)
		o.ObserveInt64(d.inst.pending, int64(rt.runner.Len()))
	}
	return nil
}

// Register binds command to h. A later registration of the same command replaces it.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	rt := &route{command: command, handle: h}
	for _, opt := range opts {
		opt(rt)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[command] = rt
}

// Dispatch runs the handler registered for e.Command.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	rt, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if rt.logged {
		d.logger.Debug("handling event", "command", rt.command, "args", len(e.Args))
	}
	result, err := d.call(rt, e)
	d.record(rt.command, e.Timestamp, err)
	if rt.logged {
		elapsed := time.Since(e.Timestamp)
		if err != nil {
			d.logger.Error("event failed", "command", rt.command, "duration", elapsed, "error", err)
		} else {
			d.logger.Debug("event complete", "command", rt.command, "duration", elapsed)
		}
	}
	return result, err
}

func (d *Dispatcher) call(rt *route, e Event) (any, error) {
	if rt.runner == nil {
		return rt.handle(e)
	}

	ctx := context.Background()
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}

	var result any
	err := rt.runner.Do(ctx, func() error {
		var err error
		result, err = rt.handle(e)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s: editor loop busy: %w", e.Command, err)
	}
	return result, err
}

func (d *Dispatcher) record(command string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("result", status),
	)
	ctx := context.Background()
	d.inst.processed.Add(ctx, 1, attrs)
	d.inst.latency.Record(ctx, float64(time.Since(started).Microseconds())/1000, attrs)
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands returns the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	slices.Sort(out)
	return out
}
