package jobs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fwojciec/clock"
	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

// CopyFileJob copies one data file (artwork, playlists, liner notes, ...)
// into the target library, unchanged. Not cancellable in this revision: a
// plain io.Copy has no natural mid-copy decision point, and that's a known
// limitation rather than something papered over with a busy-poll on every
// chunk.
type CopyFileJob struct {
	id    string
	queue planner.QueueItemID
	clock clock.Clock

	sourcePath string
	targetPath string
	targetDir  string
}

// NewCopyFileJob validates sourcePath against the library's data extension
// set.
func NewCopyFileJob(
	queue planner.QueueItemID,
	sourcePath, targetPath string,
	dataExtensions albumfiles.ExtensionSets,
	clk clock.Clock,
) (*CopyFileJob, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(sourcePath)), ".")
	if _, ok := dataExtensions.Data[ext]; !ok {
		return nil, errors.Wrapf(
			ErrInvalidExtension,
			"source file '%s' has extension '%s', not a configured data extension for this library",
			sourcePath, ext,
		)
	}

	return &CopyFileJob{
		id:         randomID(),
		queue:      queue,
		clock:      clk,
		sourcePath: sourcePath,
		targetPath: targetPath,
		targetDir:  filepath.Dir(targetPath),
	}, nil
}

func (j *CopyFileJob) Run(_ *atomic.Bool, bus *event.Bus) {
	bus.Send(event.Starting{ID: j.queue, FileType: planner.FileTypeData, Path: j.targetPath, Time: j.clock.Now()})

	if err := os.MkdirAll(j.targetDir, 0o755); err != nil {
		bus.Send(event.Finished{
			ID: j.queue, FileType: planner.FileTypeData, Path: j.targetPath,
			Result: event.ErroredResult("could not create target file's missing parent directory", err.Error()),
			Time:   j.clock.Now(),
		})
		return
	}

	bytesCopied, err := copyFileContents(j.sourcePath, j.targetPath)
	if err != nil {
		bus.Send(event.Finished{
			ID: j.queue, FileType: planner.FileTypeData, Path: j.targetPath,
			Result: event.ErroredResult(
				"copy failed",
				errors.Wrapf(err, "copying '%s' to '%s'", j.sourcePath, j.targetPath).Error(),
			),
			Time: j.clock.Now(),
		})
		return
	}

	bus.Send(event.Finished{
		ID: j.queue, FileType: planner.FileTypeData, Path: j.targetPath,
		Result: event.OkCopyResult(bytesCopied),
		Time:   j.clock.Now(),
	})
}

func copyFileContents(sourcePath, targetPath string) (uint64, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return 0, errors.Wrap(err, "cannot open source file")
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return 0, errors.Wrap(err, "cannot create target file")
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return uint64(written), errors.Wrap(err, "cannot copy file contents")
	}
	return uint64(written), nil
}
