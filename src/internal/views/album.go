package views

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/changes"
	"gitlab.com/simongoricar/euphony/src/internal/snapshot"
)

// Album is one album directory within an Artist, plus the per-album scan
// depth loaded from its optional .album.override.euphony sidecar.
type Album struct {
	artist    *Artist
	title     string
	scanDepth int
}

// newAlbum constructs an Album, loading its override file if present. The
// override file only ever needs to be read once per album per run, so
// loading it eagerly at construction (rather than lazily on first scan)
// keeps Album immutable after construction and safe to share across
// goroutines without locking.
func newAlbum(artist *Artist, title string) (*Album, error) {
	sourceDir := filepath.Join(artist.SourceDir(), title)

	cfg, err := loadAlbumConfiguration(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "loading album configuration for '%s'", sourceDir)
	}

	return &Album{
		artist:    artist,
		title:     title,
		scanDepth: int(cfg.Scan.Depth),
	}, nil
}

// Artist returns the artist this album belongs to.
func (a *Album) Artist() *Artist {
	return a.artist
}

// Title returns the album's directory name.
func (a *Album) Title() string {
	return a.title
}

// SourceRoot is the album directory in the original collection.
func (a *Album) SourceRoot() string {
	return filepath.Join(a.artist.SourceDir(), a.title)
}

// TargetRoot is the matching album directory inside the transcoded library.
func (a *Album) TargetRoot() string {
	return filepath.Join(a.artist.TargetDir(), a.title)
}

func (a *Album) extensions() albumfiles.ExtensionSets {
	return a.artist.library.config.Extensions
}

func (a *Album) outputExtension() string {
	return a.artist.library.config.OutputExtension
}

// TrackedSourceFiles scans the album directory (up to its configured scan
// depth) and classifies every file it finds by extension. See
// albumfiles.Scan.
func (a *Album) TrackedSourceFiles() (albumfiles.FileList, error) {
	return albumfiles.Scan(a.SourceRoot(), a.scanDepth, a.extensions())
}

// ScanForChanges is the single entry point that glues a tracked-files scan,
// both saved snapshots (if any), a fresh source snapshot, a scan of the
// target album directory, and the change classifier into one result. If no prior run has completed successfully,
// the saved snapshots are simply absent and every tracked file is reported
// as added.
func (a *Album) ScanForChanges() (changes.Changes, error) {
	_, result, err := a.ScanForChangesWithFileList()
	return result, err
}

// ScanForChangesWithFileList is ScanForChanges, additionally returning the
// tracked-files scan it used to build the fresh snapshots. The orchestrator
// needs this list again once a run finishes to persist fresh snapshots, and
// re-scanning the album directory a second time for that would redo I/O
// this call already did.
func (a *Album) ScanForChangesWithFileList() (albumfiles.FileList, changes.Changes, error) {
	sourceRoot := a.SourceRoot()
	targetRoot := a.TargetRoot()
	outputExt := a.outputExtension()

	fileList, err := a.TrackedSourceFiles()
	if err != nil {
		return albumfiles.FileList{}, changes.Changes{}, errors.Wrapf(err, "scanning album directory '%s'", sourceRoot)
	}

	savedSource, err := loadSavedSource(sourceRoot)
	if err != nil {
		return albumfiles.FileList{}, changes.Changes{}, err
	}

	freshSource, err := snapshot.GenerateSource(fileList, sourceRoot)
	if err != nil {
		return albumfiles.FileList{}, changes.Changes{}, errors.Wrapf(err, "generating fresh source snapshot for '%s'", sourceRoot)
	}

	savedTarget, err := loadSavedTarget(targetRoot)
	if err != nil {
		return albumfiles.FileList{}, changes.Changes{}, err
	}

	// Before the first successful run the target album directory may not
	// exist yet; that is an empty target, not a scan failure.
	var freshTarget albumfiles.TargetScan
	if _, statErr := os.Stat(targetRoot); !os.IsNotExist(statErr) {
		freshTarget, err = albumfiles.ScanTarget(targetRoot, a.scanDepth, outputExt, a.extensions())
		if err != nil {
			return albumfiles.FileList{}, changes.Changes{}, errors.Wrapf(err, "scanning target album directory '%s'", targetRoot)
		}
	}

	// The target sidecar written by snapshot.SaveTarget lives in targetRoot
	// but is euphony's own state, not an excess file to delete.
	kept := freshTarget.Unknown[:0]
	for _, rel := range freshTarget.Unknown {
		if rel != ".album.transcode-state.euphony" {
			kept = append(kept, rel)
		}
	}
	freshTarget.Unknown = kept

	result := changes.Classify(changes.Input{
		SavedSource: savedSource,
		FreshSource: freshSource.TrackedFiles,
		SavedTarget: savedTarget,
		FreshTarget: freshTarget,
		FileList:    fileList,
		SourceRoot:  sourceRoot,
		TargetRoot:  targetRoot,
		OutputExt:   outputExt,
	})
	return fileList, result, nil
}

// loadSavedSource loads the source sidecar, treating "no prior state"
// (missing file, schema mismatch, or parse failure) as a nil snapshot
// rather than an error - see snapshot.LoadSource.
func loadSavedSource(sourceRoot string) (*snapshot.SourceAlbumSnapshot, error) {
	saved, err := snapshot.LoadSource(sourceRoot)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoPriorState) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "loading source snapshot for '%s'", sourceRoot)
	}
	return &saved, nil
}

// loadSavedTarget is loadSavedSource for the target sidecar.
func loadSavedTarget(targetRoot string) (*snapshot.TranscodedAlbumSnapshot, error) {
	saved, err := snapshot.LoadTarget(targetRoot)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoPriorState) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "loading target snapshot for '%s'", targetRoot)
	}
	return &saved, nil
}
