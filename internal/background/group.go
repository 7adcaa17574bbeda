// Package background runs work that must outlive the request that queued it.
package background

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Task is deferred work. Its error is logged, never returned to a client.
type Task func(ctx context.Context) error

// Group tracks running tasks so a server can drain them before exiting. The
// zero errgroup never cancels, and every task reports its own error, so one
// failure leaves the others running.
type Group struct {
	tasks    errgroup.Group
	logger   *slog.Logger
	inFlight prometheus.Gauge
}

// NewGroup returns a Group. inFlight may be nil.
func NewGroup(logger *slog.Logger, inFlight prometheus.Gauge) *Group {
	return &Group{
		logger:   logger,
		inFlight: inFlight,
	}
}

// Go starts task on its own goroutine. ctx should already be detached from
// any request cancellation.
func (g *Group) Go(ctx context.Context, task Task) {
	if g.inFlight != nil {
		g.inFlight.Inc()
	}

	g.tasks.Go(func() error {
		if g.inFlight != nil {
			defer g.inFlight.Dec()
		}

		if err := run(ctx, task); err != nil {
			g.logger.Error("background task failed", "error", err)
		}
		return nil
	})
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())
		}
	}()
	return task(ctx)
}

// Wait blocks until every started task returned or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = g.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
