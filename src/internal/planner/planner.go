// Package planner turns one album's classified Changes into an ordered,
// cancellable job list.
package planner

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/changes"
)

// FileType classifies the file a job acts on - audio, data, or (delete-only)
// unknown-extension.
type FileType int

const (
	FileTypeAudio FileType = iota
	FileTypeData
	FileTypeUnknown
)

func (t FileType) String() string {
	switch t {
	case FileTypeAudio:
		return "audio"
	case FileTypeData:
		return "data"
	case FileTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// TranscodeReason, CopyReason and DeleteReason name which change set
// produced a job, for display and logging.
type TranscodeReason int

const (
	TranscodeReasonAdded TranscodeReason = iota
	TranscodeReasonChanged
	TranscodeReasonMissingInTranscoded
)

type CopyReason int

const (
	CopyReasonAdded CopyReason = iota
	CopyReasonChanged
	CopyReasonMissingInTranscoded
)

type DeleteReason int

const (
	DeleteReasonRemovedFromSource DeleteReason = iota
	DeleteReasonExcessInTranscoded
)

// Action is the tagged union of what a job does: Transcode, Copy or Delete.
// Exactly one of TranscodeAction/CopyAction/DeleteAction is set.
type Action interface {
	// TargetPath returns the job's target-side path, the one value every
	// action variant carries and the one the enqueue-time safety check
	// inspects.
	TargetPath() string
	isAction()
}

type TranscodeAction struct {
	SourcePath string
	targetPath string
	Reason     TranscodeReason
}

func (a TranscodeAction) TargetPath() string { return a.targetPath }
func (TranscodeAction) isAction()            {}

type CopyAction struct {
	SourcePath string
	targetPath string
	Reason     CopyReason
}

func (a CopyAction) TargetPath() string { return a.targetPath }
func (CopyAction) isAction()            {}

type DeleteAction struct {
	targetPath string
	Reason     DeleteReason
}

func (a DeleteAction) TargetPath() string { return a.targetPath }
func (DeleteAction) isAction()            {}

// JobContext is the full description of one job: what kind of file it acts
// on, and the action (with its reason) to take.
type JobContext struct {
	FileType FileType
	Action   Action
}

// QueueItemID is an opaque identifier the caller's EnqueueFunc assigns to a
// job it has registered with a frontend.
type QueueItemID string

// EnqueueFunc registers ctx with the frontend (e.g. to show a queued row in
// the TUI) and returns the id the resulting job will carry, or an error to
// abort planning.
type EnqueueFunc func(ctx JobContext) (QueueItemID, error)

// PlannedJob pairs a JobContext with the id its EnqueueFunc call returned.
type PlannedJob struct {
	ID      QueueItemID
	Context JobContext
}

// ErrSuspiciousDeletePath is returned (and aborts planning with no further
// side effects) when a Delete job's target path does not live under the
// album's target root.
var ErrSuspiciousDeletePath = errors.New("delete job target path escapes the album target directory")

// Plan builds the ordered job list for c, in a fixed emission order:
//  1. Transcode: added audio, changed audio, missing-in-transcoded audio.
//  2. Copy: added data, changed data, missing-in-transcoded data.
//  3. Delete: removed-in-source audio, then data.
//  4. Delete: excess-in-target audio, then data, then unknown.
//
// sourceRoot/targetRoot/outputExt let Plan derive each job's target path
// from the classifier's source-side paths (the ChangeSet sets carry only
// absolute source paths - the target path is a pure function of it, the
// same function AlbumFileList uses to build the source<->target map).
// enqueue is called once per job, in emission order; an error aborts
// planning immediately and is returned to the caller.
func Plan(c changes.Changes, sourceRoot, targetRoot, outputExt string, enqueue EnqueueFunc) ([]PlannedJob, error) {
	var plan []PlannedJob

	appendTranscode := func(paths []string, reason TranscodeReason) error {
		for _, src := range paths {
			rel, err := filepath.Rel(sourceRoot, src)
			if err != nil {
				return errors.Wrapf(err, "relativizing '%s'", src)
			}
			tgt := filepath.Join(targetRoot, albumfiles.ReplaceExt(rel, outputExt))
			job, err := enqueueOne(enqueue, JobContext{
				FileType: FileTypeAudio,
				Action:   TranscodeAction{SourcePath: src, targetPath: tgt, Reason: reason},
			})
			if err != nil {
				return err
			}
			plan = append(plan, job)
		}
		return nil
	}

	appendCopy := func(paths []string, reason CopyReason) error {
		for _, src := range paths {
			rel, err := filepath.Rel(sourceRoot, src)
			if err != nil {
				return errors.Wrapf(err, "relativizing '%s'", src)
			}
			tgt := filepath.Join(targetRoot, rel)
			job, err := enqueueOne(enqueue, JobContext{
				FileType: FileTypeData,
				Action:   CopyAction{SourcePath: src, targetPath: tgt, Reason: reason},
			})
			if err != nil {
				return err
			}
			plan = append(plan, job)
		}
		return nil
	}

	appendDelete := func(targetPaths []string, fileType FileType, reason DeleteReason) error {
		for _, tgt := range targetPaths {
			if err := checkDeleteSafety(tgt, targetRoot); err != nil {
				return err
			}
			job, err := enqueueOne(enqueue, JobContext{
				FileType: fileType,
				Action:   DeleteAction{targetPath: tgt, Reason: reason},
			})
			if err != nil {
				return err
			}
			plan = append(plan, job)
		}
		return nil
	}

	appendDeletePairs := func(pairs []changes.PathPair, fileType FileType, reason DeleteReason) error {
		targets := make([]string, len(pairs))
		for i, p := range pairs {
			targets[i] = p.Target
		}
		return appendDelete(targets, fileType, reason)
	}

	if err := appendTranscode(c.AddedInSource.Audio, TranscodeReasonAdded); err != nil {
		return nil, err
	}
	if err := appendTranscode(c.ChangedInSource.Audio, TranscodeReasonChanged); err != nil {
		return nil, err
	}
	if err := appendTranscode(c.MissingInTranscoded.Audio, TranscodeReasonMissingInTranscoded); err != nil {
		return nil, err
	}

	if err := appendCopy(c.AddedInSource.Data, CopyReasonAdded); err != nil {
		return nil, err
	}
	if err := appendCopy(c.ChangedInSource.Data, CopyReasonChanged); err != nil {
		return nil, err
	}
	if err := appendCopy(c.MissingInTranscoded.Data, CopyReasonMissingInTranscoded); err != nil {
		return nil, err
	}

	if err := appendDeletePairs(c.RemovedInSource.Audio, FileTypeAudio, DeleteReasonRemovedFromSource); err != nil {
		return nil, err
	}
	if err := appendDeletePairs(c.RemovedInSource.Data, FileTypeData, DeleteReasonRemovedFromSource); err != nil {
		return nil, err
	}

	if err := appendDelete(c.ExcessInTranscoded.Audio, FileTypeAudio, DeleteReasonExcessInTranscoded); err != nil {
		return nil, err
	}
	if err := appendDelete(c.ExcessInTranscoded.Data, FileTypeData, DeleteReasonExcessInTranscoded); err != nil {
		return nil, err
	}
	if err := appendDelete(c.ExcessInTranscoded.Unknown, FileTypeUnknown, DeleteReasonExcessInTranscoded); err != nil {
		return nil, err
	}

	return plan, nil
}

func enqueueOne(enqueue EnqueueFunc, ctx JobContext) (PlannedJob, error) {
	id, err := enqueue(ctx)
	if err != nil {
		return PlannedJob{}, errors.Wrap(err, "enqueue callback failed")
	}
	return PlannedJob{ID: id, Context: ctx}, nil
}

// checkDeleteSafety enforces that every Delete job's target path must be a
// descendant of the album's target root.
func checkDeleteSafety(target, targetRoot string) error {
	rel, err := filepath.Rel(targetRoot, target)
	if err != nil {
		return errors.Wrapf(ErrSuspiciousDeletePath, "'%s' relative to '%s': %v", target, targetRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Wrapf(ErrSuspiciousDeletePath, "'%s' escapes '%s'", target, targetRoot)
	}
	return nil
}
