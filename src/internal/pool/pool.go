// Package pool implements a cancellable worker pool: up to max_workers jobs
// run concurrently, coordinated by one goroutine that ticks roughly every
// 50ms, fed by a FIFO pending queue.
//
// Go has no non-blocking "has this goroutine finished" check on a bare
// goroutine, so each running task here carries its own completion channel;
// the coordinator's per-tick scan does a non-blocking select on each one to
// discover which tasks have finished since the last tick.
package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/jobs"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "pool"})

// coordinatorTick is the fixed cadence the coordinator loop polls at.
const coordinatorTick = 50 * time.Millisecond

// State is the pool's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// StopReason says why the coordinator returned. There is exactly one
// variant today since the coordinator loop has no other exit path: waiting
// without first cancelling only returns once something else sets the shared
// cancellation flag. Kept single-valued rather than inventing a second
// "drained naturally" stop reason nothing in this pool produces.
type StopReason int

const (
	StoppedByCancellation StopReason = iota
)

var (
	// ErrAlreadyRunning is returned by Start when the pool is already running.
	ErrAlreadyRunning = errors.New("pool is already running")
	// ErrNotRunning is returned by Join/CancelAndJoin when the pool was never started.
	ErrNotRunning = errors.New("pool is not running")
	// ErrStopped is returned by Queue once the pool has fully stopped.
	ErrStopped = errors.New("pool has stopped and no longer accepts jobs")
)

type runningTask struct {
	id   string
	done chan struct{}
}

// Pool is a cancellable, bounded-concurrency worker pool for jobs.CancellableTask.
type Pool struct {
	maxWorkers int
	cancelFlag *atomic.Bool
	bus        *event.Bus
	clock      clock.Clock

	stateMu sync.Mutex
	state   State

	coordinatorDone chan StopReason

	pendingMu sync.Mutex
	pending   []jobs.CancellableTask

	runningMu sync.Mutex
	running   []runningTask
}

// New builds an idle pool. maxWorkers must be at least 1.
func New(maxWorkers int, bus *event.Bus, clk clock.Clock) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var cancelFlag atomic.Bool

	return &Pool{
		maxWorkers: maxWorkers,
		cancelFlag: &cancelFlag,
		bus:        bus,
		clock:      clk,
		state:      StateIdle,
	}
}

// Queue appends task to the pending FIFO queue. Accepted in both Idle and
// Running state, rejected once the pool has Stopped.
func (p *Pool) Queue(task jobs.CancellableTask) error {
	p.stateMu.Lock()
	state := p.state
	p.stateMu.Unlock()

	if state == StateStopped {
		return ErrStopped
	}

	p.pendingMu.Lock()
	p.pending = append(p.pending, task)
	p.pendingMu.Unlock()
	return nil
}

// Start spawns the single coordinator goroutine. Calling Start twice is an error.
func (p *Pool) Start() error {
	p.stateMu.Lock()
	if p.state != StateIdle {
		p.stateMu.Unlock()
		return ErrAlreadyRunning
	}
	p.state = StateRunning
	p.coordinatorDone = make(chan StopReason, 1)
	p.stateMu.Unlock()

	go p.runCoordinator()
	return nil
}

// HasWorkLeft reports whether any job is pending or still running.
func (p *Pool) HasWorkLeft() bool {
	p.pendingMu.Lock()
	pendingEmpty := len(p.pending) == 0
	p.pendingMu.Unlock()

	p.runningMu.Lock()
	runningEmpty := len(p.running) == 0
	p.runningMu.Unlock()

	return !pendingEmpty || !runningEmpty
}

// IsRunning reports whether the coordinator goroutine is still live.
func (p *Pool) IsRunning() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state == StateRunning
}

// CancellationFlag returns the shared flag external callers can set to
// request cancellation without going through CancelAndJoin.
func (p *Pool) CancellationFlag() *atomic.Bool {
	return p.cancelFlag
}

// CancelAndJoin sets the cancellation flag and waits for the coordinator to stop.
func (p *Pool) CancelAndJoin() (StopReason, error) {
	p.cancelFlag.Store(true)
	return p.Join()
}

// Join waits for the coordinator to stop, without setting the cancellation
// flag. The coordinator only stops once that flag is set, so Join returns
// only after something else (e.g. CancelAndJoin) has set it.
func (p *Pool) Join() (StopReason, error) {
	p.stateMu.Lock()
	done := p.coordinatorDone
	started := done != nil
	p.stateMu.Unlock()

	if !started {
		return 0, ErrNotRunning
	}

	reason := <-done

	p.stateMu.Lock()
	p.state = StateStopped
	p.stateMu.Unlock()

	return reason, nil
}

func (p *Pool) runCoordinator() {
	ticker := time.NewTicker(coordinatorTick)
	defer ticker.Stop()

	for range ticker.C {
		if p.cancelFlag.Load() {
			p.drainOnCancellation()
			return
		}
		p.tick()
	}
}

// tick reaps finished running tasks, then spawns fresh ones from pending
// until either running is full or pending is empty.
func (p *Pool) tick() {
	p.runningMu.Lock()
	stillRunning := p.running[:0]
	for _, t := range p.running {
		select {
		case <-t.done:
			// Finished since the last tick; drop it.
		default:
			stillRunning = append(stillRunning, t)
		}
	}
	p.running = stillRunning
	freeSlots := p.maxWorkers - len(p.running)
	p.runningMu.Unlock()

	if freeSlots <= 0 {
		return
	}

	p.pendingMu.Lock()
	n := freeSlots
	if n > len(p.pending) {
		n = len(p.pending)
	}
	toStart := p.pending[:n]
	p.pending = p.pending[n:]
	p.pendingMu.Unlock()

	for _, task := range toStart {
		p.spawn(task)
	}
}

func (p *Pool) spawn(task jobs.CancellableTask) {
	done := make(chan struct{})

	p.runningMu.Lock()
	p.running = append(p.running, runningTask{id: task.ID, done: done})
	p.runningMu.Unlock()

	go func() {
		defer close(done)
		task.Execute(p.cancelFlag, p.bus)
	}()
}

// drainOnCancellation waits for every currently-running task to finish (they
// are expected to observe the cancellation flag themselves and exit soon),
// discards whatever is still pending without running it, and signals the
// coordinator's stop.
func (p *Pool) drainOnCancellation() {
	log.Debug("cancellation flag set, waiting for active workers and clearing pending queue")
	p.bus.Send(event.Log{
		Text: "cancellation requested: waiting for active jobs and dropping the pending queue",
		Time: p.clock.Now(),
	})

	p.runningMu.Lock()
	running := p.running
	p.running = nil
	p.runningMu.Unlock()

	for _, t := range running {
		<-t.done
	}

	p.pendingMu.Lock()
	p.pending = nil
	p.pendingMu.Unlock()

	log.Debug("coordinator stopping: cancellation flag was set")
	p.coordinatorDone <- StoppedByCancellation
}
