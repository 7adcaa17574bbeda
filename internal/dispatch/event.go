package dispatch

import (
	"context"
	"net/http"
	"sync"

	"github.com/dreschagin/edge-adapter/internal/background"
)

// FetchEvent carries one request through the dispatcher and collects work
// that has to run after the response is sent.
type FetchEvent struct {
	Request *http.Request

	mu       sync.Mutex
	pending  []background.Task
	released bool
	start    func(background.Task)
}

func newFetchEvent(r *http.Request) *FetchEvent {
	return &FetchEvent{Request: r}
}

// WaitUntil queues task. Tasks queued before the response is written start
// right after it; tasks queued later start immediately.
func (e *FetchEvent) WaitUntil(task background.Task) {
	e.mu.Lock()
	if !e.released {
		e.pending = append(e.pending, task)
		e.mu.Unlock()
		return
	}
	start := e.start
	e.mu.Unlock()

	start(task)
}

// release starts every queued task on group with a context that survives the
// request.
func (e *FetchEvent) release(ctx context.Context, group *background.Group) {
	detached := context.WithoutCancel(ctx)
	start := func(task background.Task) {
		group.Go(detached, task)
	}

	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.released = true
	e.start = start
	e.mu.Unlock()

	for _, task := range pending {
		start(task)
	}
}
