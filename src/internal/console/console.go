// Package console implements the two terminal frontends for consuming the
// orchestrator's event stream: a bare line-per-event frontend for
// non-interactive/piped use, and an interactive bubbletea frontend for a
// live terminal. Both are external collaborators - neither does any
// job-completion bookkeeping of its own; that stays inside
// internal/orchestrator (see its WithEventSink option), which is the bus's
// one true consumer.
package console

import (
	"sync"

	"gitlab.com/simongoricar/euphony/src/internal/event"
)

// Counters tracks the aggregate outcome of a run. Observe is safe to call
// from any goroutine, but in practice only the frontend's own event loop
// ever calls it - there is exactly one consumer of the event stream per
// frontend.
type Counters struct {
	mu sync.Mutex

	Started     uint64
	Finished    uint64
	Failed      uint64
	Cancelled   uint64
	BytesCopied uint64
}

// Observe updates the counters for one event. Safe for concurrent use,
// though both frontends here only ever call it from their own event loop.
func (c *Counters) Observe(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt := e.(type) {
	case event.Starting:
		c.Started++
	case event.Finished:
		c.Finished++
		if !evt.Result.OK {
			c.Failed++
		}
		c.BytesCopied += evt.Result.BytesCopied
	case event.Cancelled:
		c.Cancelled++
	}
}

// Snapshot returns a copy of the current counters.
func (c *Counters) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		Started:     c.Started,
		Finished:    c.Finished,
		Failed:      c.Failed,
		Cancelled:   c.Cancelled,
		BytesCopied: c.BytesCopied,
	}
}
