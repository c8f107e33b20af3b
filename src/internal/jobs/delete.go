package jobs

import (
	"os"
	"sync/atomic"

	"github.com/fwojciec/clock"

	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

// DeleteFileJob removes one transcoded or copied file, or an excess/unknown
// file, from the target library. Not polled for cancellation: a single
// os.Remove call is fast enough that there is no meaningful window to
// interrupt.
type DeleteFileJob struct {
	id    string
	queue planner.QueueItemID
	clock clock.Clock

	targetPath      string
	fileType        planner.FileType
	ignoreIfMissing bool
}

// NewDeleteFileJob constructs a delete job. ignoreIfMissing controls
// whether a missing target is a successful no-op (removed-in-source jobs,
// where the historical target may never have existed) or a failure
// (excess-in-target jobs, where the scan that produced this job observed
// the file moments earlier).
func NewDeleteFileJob(
	queue planner.QueueItemID,
	targetPath string,
	fileType planner.FileType,
	ignoreIfMissing bool,
	clk clock.Clock,
) *DeleteFileJob {
	return &DeleteFileJob{
		id:              randomID(),
		queue:           queue,
		clock:           clk,
		targetPath:      targetPath,
		fileType:        fileType,
		ignoreIfMissing: ignoreIfMissing,
	}
}

func (j *DeleteFileJob) Run(_ *atomic.Bool, bus *event.Bus) {
	bus.Send(event.Starting{ID: j.queue, FileType: j.fileType, Path: j.targetPath, Time: j.clock.Now()})

	info, statErr := os.Stat(j.targetPath)
	switch {
	case statErr != nil && os.IsNotExist(statErr):
		if j.ignoreIfMissing {
			j.finishOK(bus)
		} else {
			j.finishErrored(bus, "target file does not exist", "")
		}
		return
	case statErr != nil:
		j.finishErrored(bus, "could not stat target file", statErr.Error())
		return
	case info.IsDir():
		j.finishErrored(bus, "target path exists but is a directory, not a file", "")
		return
	}

	if err := os.Remove(j.targetPath); err != nil {
		j.finishErrored(bus, "could not remove target file", err.Error())
		return
	}

	j.finishOK(bus)
}

func (j *DeleteFileJob) finishOK(bus *event.Bus) {
	bus.Send(event.Finished{ID: j.queue, FileType: j.fileType, Path: j.targetPath, Result: event.OkResult(), Time: j.clock.Now()})
}

func (j *DeleteFileJob) finishErrored(bus *event.Bus, message, verbose string) {
	bus.Send(event.Finished{
		ID: j.queue, FileType: j.fileType, Path: j.targetPath,
		Result: event.ErroredResult(message, verbose),
		Time:   j.clock.Now(),
	})
}
