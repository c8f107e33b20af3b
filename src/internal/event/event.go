// Package event implements the progress/event bus that job implementations
// report into and the orchestrator consumes from: a single typed event
// stream, multi-producer / single-consumer, with one consumer owning the
// aggregate counters - modeled here as a plain buffered Go channel, since
// that already gives MPSC semantics without a separate broadcast mechanism.
package event

import (
	"time"

	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

// Result is a job's outcome, reported as part of Finished. Exactly one of
// OK or the error fields is meaningful, mirroring the Rust
// `Ok{verbose?} | Errored{message, verbose?}` tagged union.
type Result struct {
	OK bool

	// BytesCopied is set only for a successful CopyFile job.
	BytesCopied uint64

	// Message is the short failure description; set only when !OK.
	Message string

	// Verbose is optional captured stdout/stderr, shown on request.
	Verbose string
}

// OkResult builds a successful Result.
func OkResult() Result { return Result{OK: true} }

// OkCopyResult builds a successful Result carrying a byte count.
func OkCopyResult(bytesCopied uint64) Result { return Result{OK: true, BytesCopied: bytesCopied} }

// ErroredResult builds a failed Result.
func ErroredResult(message, verbose string) Result {
	return Result{OK: false, Message: message, Verbose: verbose}
}

// Event is the tagged union of everything a job or the pool coordinator can
// report: Starting, Finished, Cancelled, Log.
type Event interface {
	isEvent()
}

// Starting is emitted once, at the very beginning of a job's Run. Time is
// stamped from the job's injected clock.Clock, not time.Now, so that tests
// can assert on deterministic timestamps.
type Starting struct {
	ID       planner.QueueItemID
	FileType planner.FileType
	Path     string
	Time     time.Time
}

func (Starting) isEvent() {}

// Finished is emitted exactly once per job that runs to completion (whether
// that completion is success or failure) - never for a job that observed
// cancellation before finishing.
type Finished struct {
	ID       planner.QueueItemID
	FileType planner.FileType
	Path     string
	Result   Result
	Time     time.Time
}

func (Finished) isEvent() {}

// Cancelled is emitted instead of Finished when a job observes the shared
// cancel flag before its underlying work completed.
type Cancelled struct {
	ID       planner.QueueItemID
	FileType planner.FileType
	Path     string
	Time     time.Time
}

func (Cancelled) isEvent() {}

// Log is a free-form line for the frontend's scrolling log view; it carries
// no job identity.
type Log struct {
	Text string
	Time time.Time
}

func (Log) isEvent() {}

// Bus is a single MPSC event channel: many job goroutines call Send, one
// orchestrator goroutine ranges over Events.
type Bus struct {
	events chan Event
}

// NewBus creates a Bus with the given channel buffer size. A large buffer is
// recommended, since job goroutines must never block on a slow consumer
// mid-job.
func NewBus(bufferSize int) *Bus {
	return &Bus{events: make(chan Event, bufferSize)}
}

// Send publishes an event. Safe for concurrent use by any number of
// producers.
func (b *Bus) Send(e Event) {
	b.events <- e
}

// Events returns the receive-only channel the single consumer ranges over.
func (b *Bus) Events() <-chan Event {
	return b.events
}

// Close closes the underlying channel. Callers MUST ensure no further Send
// calls are in flight - typically called only after the worker pool has
// fully joined.
func (b *Bus) Close() {
	close(b.events)
}

// ControlMessage flows from the frontend back to the orchestrator, letting
// it request an early, graceful stop.
type ControlMessage int

const (
	// Exit requests the orchestrator set the pool's cancel flag and stop
	// enqueueing further albums.
	Exit ControlMessage = iota
)
