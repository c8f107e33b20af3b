// Package jobs implements the three single-use file operations the planner
// emits - TranscodeAudioJob, CopyFileJob, DeleteFileJob - and the
// CancellableTask wrapper the worker pool queues and runs them through.
package jobs

import (
	"math/rand"
	"sync/atomic"

	"gitlab.com/simongoricar/euphony/src/internal/event"
)

// idAlphabet is the alphanumeric alphabet a random logging id is drawn from.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomID returns an 8-character alphanumeric string. It identifies one
// task instance in log lines; it is distinct from the planner.QueueItemID a
// frontend assigned the job for display purposes.
func randomID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}

// Job is a single-use unit of work. Implementations are TranscodeAudioJob,
// CopyFileJob and DeleteFileJob. Run must send exactly one Starting event
// followed by exactly one of Finished or Cancelled.
type Job interface {
	Run(cancelFlag *atomic.Bool, bus *event.Bus)
}

// CancellableTask wraps a Job with the random id it is logged under. Go
// closures and interface values are already safe to hand to another
// goroutine, so unlike a boxed closure in languages without that guarantee,
// this wrapper only needs to carry identity alongside the job.
type CancellableTask struct {
	ID string

	job Job
}

// NewCancellableTask wraps job, assigning it a fresh random id.
func NewCancellableTask(job Job) CancellableTask {
	return CancellableTask{ID: randomID(), job: job}
}

// Execute runs the wrapped job exactly once.
func (t CancellableTask) Execute(cancelFlag *atomic.Bool, bus *event.Bus) {
	t.job.Run(cancelFlag, bus)
}
