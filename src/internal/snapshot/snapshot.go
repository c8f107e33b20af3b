// Package snapshot persists and loads the two per-album sidecar documents
// that euphony uses to remember what it did on the previous successful run:
// the source album snapshot and the transcoded (target) album snapshot.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/fsutil"
	"gitlab.com/simongoricar/euphony/src/internal/meta"
)

// CurrentSchemaVersion is the schema version this build writes and expects
// to read. A mismatch on load is treated as "no snapshot" (ErrNoPriorState),
// forcing a full re-process of the album rather than failing the run - the
// worst outcome of a schema bump is wasted work, never corruption.
const CurrentSchemaVersion uint32 = 2

const (
	sourceSidecarName = ".album.source-state.euphony"
	targetSidecarName = ".album.transcode-state.euphony"
)

// AlbumFileState is the wire shape of a per-file metadata snapshot: two
// disjoint maps of album-root-relative path to FileMeta.
type AlbumFileState struct {
	Audio map[string]meta.FileMeta `json:"audio_files"`
	Data  map[string]meta.FileMeta `json:"data_files"`
}

func newAlbumFileState() AlbumFileState {
	return AlbumFileState{Audio: map[string]meta.FileMeta{}, Data: map[string]meta.FileMeta{}}
}

// pathSides is the wire shape of a split audio/data path-to-path mapping.
type pathSides struct {
	Audio map[string]string `json:"audio"`
	Data  map[string]string `json:"data"`
}

// SourceAlbumSnapshot describes the state of a source album directory as of
// its last successful run. It is persisted as sourceSidecarName inside that
// directory.
type SourceAlbumSnapshot struct {
	SchemaVersion uint32         `json:"schema_version"`
	TrackedFiles  AlbumFileState `json:"tracked_files"`
}

// TranscodedAlbumSnapshot describes the state of the corresponding target
// album directory as of its last successful run. It is persisted as
// targetSidecarName inside that directory.
type TranscodedAlbumSnapshot struct {
	SchemaVersion      uint32         `json:"schema_version"`
	TranscodedToSource pathSides      `json:"transcoded_to_original_file_paths"`
	TranscodedFiles    AlbumFileState `json:"transcoded_files"`
}

// LoadSource reads the source sidecar from dir. A missing file, a schema
// mismatch, or a parse failure all return ErrNoPriorState; any other I/O
// failure returns ErrIO.
func LoadSource(dir string) (SourceAlbumSnapshot, error) {
	var snap SourceAlbumSnapshot
	raw, err := readSidecar(filepath.Join(dir, sourceSidecarName))
	if err != nil {
		return SourceAlbumSnapshot{}, err
	}
	if jsonErr := json.Unmarshal(raw, &snap); jsonErr != nil {
		return SourceAlbumSnapshot{}, errors.Wrapf(ErrNoPriorState, "cannot parse '%s': %v", sourceSidecarName, jsonErr)
	}
	if snap.SchemaVersion != CurrentSchemaVersion {
		return SourceAlbumSnapshot{}, errors.Wrapf(ErrNoPriorState, "schema version %d != %d", snap.SchemaVersion, CurrentSchemaVersion)
	}
	return snap, nil
}

// LoadTarget reads the target sidecar from dir, with the same error
// semantics as LoadSource.
func LoadTarget(dir string) (TranscodedAlbumSnapshot, error) {
	var snap TranscodedAlbumSnapshot
	raw, err := readSidecar(filepath.Join(dir, targetSidecarName))
	if err != nil {
		return TranscodedAlbumSnapshot{}, err
	}
	if jsonErr := json.Unmarshal(raw, &snap); jsonErr != nil {
		return TranscodedAlbumSnapshot{}, errors.Wrapf(ErrNoPriorState, "cannot parse '%s': %v", targetSidecarName, jsonErr)
	}
	if snap.SchemaVersion != CurrentSchemaVersion {
		return TranscodedAlbumSnapshot{}, errors.Wrapf(ErrNoPriorState, "schema version %d != %d", snap.SchemaVersion, CurrentSchemaVersion)
	}
	return snap, nil
}

func readSidecar(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoPriorState, "'%s' does not exist", path)
		}
		return nil, errors.Wrapf(ErrIO, "reading '%s': %v", path, err)
	}
	return raw, nil
}

// SaveSource serializes snap as JSON and writes it to dir's source sidecar,
// overwriting any existing one. The write is staged via a temp file and
// renamed into place so that a crash mid-write can never leave behind a
// file that looks newer than it is.
func SaveSource(dir string, snap SourceAlbumSnapshot) error {
	return writeSidecar(filepath.Join(dir, sourceSidecarName), snap)
}

// SaveTarget is SaveSource for the target sidecar.
func SaveTarget(dir string, snap TranscodedAlbumSnapshot) error {
	return writeSidecar(filepath.Join(dir, targetSidecarName), snap)
}

func writeSidecar(path string, v interface{}) error {
	if isRegular, err := fsutil.IsRegularFile(path); err != nil {
		return errors.Wrapf(ErrIO, "checking '%s': %v", path, err)
	} else if !isRegular {
		if exists, _ := fsutil.Exists(path); exists {
			return errors.Wrapf(ErrNotRegularFile, "'%s'", path)
		}
	}

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrIO, "marshalling '%s': %v", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-euphony-snapshot-*")
	if err != nil {
		return errors.Wrapf(ErrIO, "creating temp file for '%s': %v", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(ErrIO, "writing '%s': %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(ErrIO, "closing temp file for '%s': %v", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(ErrIO, "renaming temp file onto '%s': %v", path, err)
	}
	return nil
}

// GenerateSource builds a fresh SourceAlbumSnapshot by reading FileMeta for
// every path in fl. Every path must exist - a missing source file is fatal,
// since it means the in-memory file list and the disk disagree about what
// was just scanned.
func GenerateSource(fl albumfiles.FileList, sourceRoot string) (SourceAlbumSnapshot, error) {
	state := newAlbumFileState()
	for _, rel := range fl.AudioFiles {
		fm, err := meta.FromPath(filepath.Join(sourceRoot, rel))
		if err != nil {
			return SourceAlbumSnapshot{}, errors.Wrapf(ErrMissingSourceFile, "'%s': %v", rel, err)
		}
		state.Audio[rel] = fm
	}
	for _, rel := range fl.DataFiles {
		fm, err := meta.FromPath(filepath.Join(sourceRoot, rel))
		if err != nil {
			return SourceAlbumSnapshot{}, errors.Wrapf(ErrMissingSourceFile, "'%s': %v", rel, err)
		}
		state.Data[rel] = fm
	}
	return SourceAlbumSnapshot{SchemaVersion: CurrentSchemaVersion, TrackedFiles: state}, nil
}

// GenerateTarget builds a fresh TranscodedAlbumSnapshot from fl (the
// *source* file list) and targetRoot, using outputExt to derive expected
// target paths. Unlike GenerateSource, missing target files are silently
// skipped - the target may legitimately be incomplete before the first
// successful run (e.g. when called after a partial failure).
func GenerateTarget(fl albumfiles.FileList, targetRoot, outputExt string) (TranscodedAlbumSnapshot, error) {
	state := newAlbumFileState()
	toSource := pathSides{Audio: map[string]string{}, Data: map[string]string{}}

	sourceToTarget := fl.SourceToTargetRelative(outputExt)

	for srcRel, tgtRel := range sourceToTarget.Audio {
		fm, err := meta.FromPath(filepath.Join(targetRoot, tgtRel))
		if err != nil {
			continue
		}
		state.Audio[tgtRel] = fm
		toSource.Audio[tgtRel] = srcRel
	}
	for srcRel, tgtRel := range sourceToTarget.Data {
		fm, err := meta.FromPath(filepath.Join(targetRoot, tgtRel))
		if err != nil {
			continue
		}
		state.Data[tgtRel] = fm
		toSource.Data[tgtRel] = srcRel
	}

	return TranscodedAlbumSnapshot{
		SchemaVersion:      CurrentSchemaVersion,
		TranscodedToSource: toSource,
		TranscodedFiles:    state,
	}, nil
}
