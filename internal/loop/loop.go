// Package loop runs the editor's single logical thread.
//
// Every editor and session operation executes on the loop goroutine. Asynchronous
// collaborators (world activation, save, reload, transfer) finish their work elsewhere and
// Post the completion back, so continuations interleave but never run concurrently.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/SUSTechPOINTS/boxeditor/internal/queue"
)

// Loop is a FIFO executor. Post never blocks.
type Loop struct {
	pending *queue.Queue[func()]
	wake    chan struct{}
	logger  *slog.Logger
}

// New creates a loop. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		pending: queue.New[func()](),
		wake:    make(chan struct{}, 1),
		logger:  logger,
	}
}

// Post schedules fn to run on the loop goroutine after everything already queued.
func (l *Loop) Post(fn func()) {
	l.pending.Push(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued continuations.
func (l *Loop) Len() int {
	return l.pending.Len()
}

// Run executes posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending executes queued functions, including any they post, until the queue is empty.
// Tests drive the loop with it instead of Run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		batch := l.pending.Drain()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			l.safeCall(fn)
			n++
		}
	}
}

// Do posts fn and waits for it to finish. It must not be called from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	l.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("loop task panicked: %v", r)
				panic(r)
			}
		}()
		done <- fn()
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
