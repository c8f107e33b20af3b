// Package orchestrator wires the view graph, job planner, worker pool and
// event bus together into the end-to-end run: for every library, walk its
// artists and albums, plan and queue each changed album's jobs, wait for
// that album's jobs to finish, and persist fresh snapshots only if every one
// of them succeeded.
package orchestrator

import (
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/fwojciec/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/jobs"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
	"gitlab.com/simongoricar/euphony/src/internal/pool"
	"gitlab.com/simongoricar/euphony/src/internal/snapshot"
	"gitlab.com/simongoricar/euphony/src/internal/views"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "orchestrator"})

// LibraryRuntime pairs a view-graph Library with the transcoder it should
// run for that library's audio jobs. OutputExtension on both sides MUST
// agree - it is the library's configuration, just needed in two shapes by
// two different packages.
type LibraryRuntime struct {
	Library    *views.Library
	Transcoder jobs.TranscoderConfig
}

// Summary is the outcome of one Run call, the information the CLI layer
// needs to choose an exit code: 0 for success, 1 if any album errored or the
// run was cancelled, anything else for a fatal error before a summary could
// be produced.
type Summary struct {
	RunID           string
	AlbumsProcessed int
	AlbumsErrored   int
	Cancelled       bool
}

// HasFailures reports whether the run should be reported as exit code 1.
func (s Summary) HasFailures() bool {
	return s.AlbumsErrored > 0 || s.Cancelled
}

// Orchestrator holds the shared pool, event bus and id generator used across
// every library processed in one Run call.
type Orchestrator struct {
	pool  *pool.Pool
	bus   *event.Bus
	clock clock.Clock

	nextID    atomic.Uint64
	cancelled atomic.Bool

	eventSink func(event.Event)
	runID     string
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithEventSink registers a callback invoked for every event the
// orchestrator drains off the bus - Starting/Finished/Cancelled/Log alike -
// before the orchestrator's own bookkeeping for that event. Since the bus is a single-consumer channel and the
// orchestrator itself is that consumer (it needs Finished/Cancelled to know
// when an album's jobs are done), this is how a frontend gets to see the
// same stream for rendering progress: the orchestrator owns the
// job-completion bookkeeping, and the sink owns the display-side counters.
func WithEventSink(sink func(event.Event)) Option {
	return func(o *Orchestrator) { o.eventSink = sink }
}

// WithRunID lets the caller supply the run's correlation id up front
// instead of letting Run generate one - the CLI needs it before Run
// returns, to seed the interactive frontend's header with the same id that
// Run announces in its "run <id> started" event, logs as the run_id field
// of its per-library scan line, and returns on Summary.RunID. Other log
// lines, including the pool's, do not carry it.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// New builds an Orchestrator around an already-constructed (but not yet
// started) pool and bus. Run calls p.Start itself.
func New(p *pool.Pool, bus *event.Bus, clk clock.Clock, opts ...Option) *Orchestrator {
	o := &Orchestrator{pool: p, bus: bus, clock: clk}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts the pool, walks every library's view graph, and processes every
// artist/album with pending changes in deterministic (sorted) order. control
// may be nil; if non-nil, an event.Exit received on it sets the cancellation
// flag, no further albums are started, and the pool is cancelled: jobs still
// running observe the flag and pending ones are dropped. The interrupted
// album's snapshots are not written.
func (o *Orchestrator) Run(libraries []LibraryRuntime, control <-chan event.ControlMessage) (Summary, error) {
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := Summary{RunID: runID}
	runLog := log.WithField("run_id", runID)

	if err := o.pool.Start(); err != nil {
		return summary, errors.Wrap(err, "starting worker pool")
	}

	o.bus.Send(event.Log{
		Text: "run " + runID + " started",
		Time: o.clock.Now(),
	})

	for _, lr := range libraries {
		if o.cancelled.Load() {
			break
		}

		runLog.WithField("library", lr.Library.Name()).Debug("scanning library for changed albums")

		artists, err := lr.Library.ScanForArtistsWithChangedAlbums()
		if err != nil {
			return summary, errors.Wrapf(err, "scanning library '%s'", lr.Library.Name())
		}

		for _, artistName := range sortedArtistKeys(artists) {
			if o.cancelled.Load() {
				break
			}

			artistChanges := artists[artistName]
			for _, albumTitle := range sortedAlbumKeys(artistChanges.Albums) {
				if o.cancelled.Load() {
					break
				}

				albumChanges := artistChanges.Albums[albumTitle]
				allOK, err := o.processAlbum(lr, albumChanges, control)
				if err != nil {
					return summary, errors.Wrapf(
						err, "processing album '%s' by '%s' in library '%s'",
						albumTitle, artistName, lr.Library.Name(),
					)
				}

				summary.AlbumsProcessed++
				if !allOK {
					summary.AlbumsErrored++
				}
			}
		}
	}

	summary.Cancelled = o.cancelled.Load()

	// The coordinator only ever stops once the cancellation flag is set (see
	// internal/pool's StopReason), so shutting it down at the end of a
	// completed run needs the same call as an actual cancellation - by this
	// point every album already fully drained its own jobs, so there is
	// nothing left running or pending for CancelAndJoin to cut short.
	if _, err := o.pool.CancelAndJoin(); err != nil {
		return summary, err
	}

	return summary, nil
}

// processAlbum plans and queues one album's jobs, waits for all of them to
// resolve, and persists fresh snapshots on a clean sweep. It returns whether
// every job finished OK (false on any job error, cancellation, or an Exit
// control message observed mid-album).
func (o *Orchestrator) processAlbum(lr LibraryRuntime, ac views.AlbumChanges, control <-chan event.ControlMessage) (bool, error) {
	album := ac.Album

	pending := make(map[planner.QueueItemID]struct{})
	enqueue := func(ctx planner.JobContext) (planner.QueueItemID, error) {
		id := planner.QueueItemID(strconv.FormatUint(o.nextID.Add(1), 10))
		pending[id] = struct{}{}
		return id, nil
	}

	plannedJobs, err := planner.Plan(ac.Changes, album.SourceRoot(), album.TargetRoot(), lr.Library.OutputExtension(), enqueue)
	if err != nil {
		return false, errors.Wrap(err, "planning jobs")
	}

	for _, pj := range plannedJobs {
		job, err := o.buildJob(pj, lr)
		if err != nil {
			return false, err
		}
		if err := o.pool.Queue(jobs.NewCancellableTask(job)); err != nil {
			return false, errors.Wrap(err, "queueing job")
		}
	}

	allOK := true
	remaining := len(pending)

	for remaining > 0 {
		select {
		case msg, open := <-control:
			if !open {
				control = nil
				continue
			}
			if msg == event.Exit {
				o.cancelled.Store(true)
				allOK = false
				return allOK, nil
			}

		case e, open := <-o.bus.Events():
			if !open {
				return allOK, nil
			}

			if o.eventSink != nil {
				o.eventSink(e)
			}

			switch evt := e.(type) {
			case event.Finished:
				if _, tracked := pending[evt.ID]; tracked {
					delete(pending, evt.ID)
					remaining--
					if !evt.Result.OK {
						allOK = false
					}
				}
			case event.Cancelled:
				if _, tracked := pending[evt.ID]; tracked {
					delete(pending, evt.ID)
					remaining--
					allOK = false
					o.cancelled.Store(true)
				}
			case event.Starting, event.Log:
				// Frontend-only concerns; the orchestrator itself only
				// tracks completion.
			}
		}
	}

	if allOK {
		if err := o.persistSnapshots(album, ac.FileList, lr.Library.OutputExtension()); err != nil {
			return false, errors.Wrap(err, "persisting snapshots")
		}
	} else {
		log.WithFields(logrus.Fields{
			"artist": album.Artist().Name(),
			"album":  album.Title(),
		}).Warn("album had at least one failed or cancelled job, snapshots left unwritten for retry")
	}
	return allOK, nil
}

// buildJob turns one planned job context into a concrete jobs.Job, per the
// action variant the planner chose.
func (o *Orchestrator) buildJob(pj planner.PlannedJob, lr LibraryRuntime) (jobs.Job, error) {
	switch action := pj.Context.Action.(type) {
	case planner.TranscodeAction:
		return jobs.NewTranscodeAudioJob(
			pj.ID, action.SourcePath, action.TargetPath(),
			lr.Library.Extensions(), lr.Transcoder, o.clock,
		)
	case planner.CopyAction:
		return jobs.NewCopyFileJob(
			pj.ID, action.SourcePath, action.TargetPath(),
			lr.Library.Extensions(), o.clock,
		)
	case planner.DeleteAction:
		ignoreIfMissing := action.Reason == planner.DeleteReasonRemovedFromSource
		return jobs.NewDeleteFileJob(pj.ID, action.TargetPath(), pj.Context.FileType, ignoreIfMissing, o.clock), nil
	default:
		return nil, errors.Errorf("unhandled planner action type %T", action)
	}
}

// persistSnapshots generates fresh source and target snapshots from the
// already-scanned file list and writes them. A snapshot is written only
// after all jobs for its album complete with an OK result - enforced by the
// caller only invoking this when allOK.
func (o *Orchestrator) persistSnapshots(album *views.Album, fileList albumfiles.FileList, outputExt string) error {
	sourceSnap, err := snapshot.GenerateSource(fileList, album.SourceRoot())
	if err != nil {
		return errors.Wrap(err, "generating fresh source snapshot")
	}
	if err := snapshot.SaveSource(album.SourceRoot(), sourceSnap); err != nil {
		return errors.Wrap(err, "saving source snapshot")
	}

	targetSnap, err := snapshot.GenerateTarget(fileList, album.TargetRoot(), outputExt)
	if err != nil {
		return errors.Wrap(err, "generating fresh target snapshot")
	}
	if err := snapshot.SaveTarget(album.TargetRoot(), targetSnap); err != nil {
		return errors.Wrap(err, "saving target snapshot")
	}
	return nil
}

// sortedArtistKeys and sortedAlbumKeys give Run a deterministic walk order
// over the view graph's maps, so two runs over an unchanged library process
// albums in the same sequence.
func sortedArtistKeys(m map[string]views.ArtistChanges) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAlbumKeys(m map[string]views.AlbumChanges) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
