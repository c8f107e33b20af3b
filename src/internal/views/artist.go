package views

import (
	"path/filepath"

	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/changes"
	"gitlab.com/simongoricar/euphony/src/internal/fsutil"
)

// Artist is one artist directory within a Library: a plain back-reference
// to the library plus the artist's directory name (euphony never reads
// audio tags to determine an artist name - the directory tree is the only
// source of truth).
type Artist struct {
	library *Library
	name    string
}

func newArtist(library *Library, name string) *Artist {
	return &Artist{library: library, name: name}
}

// Library returns the library this artist belongs to.
func (a *Artist) Library() *Library {
	return a.library
}

// Name returns the artist's directory name.
func (a *Artist) Name() string {
	return a.name
}

// SourceDir is the artist directory in the original collection.
func (a *Artist) SourceDir() string {
	return filepath.Join(a.library.RootInSource(), a.name)
}

// TargetDir is the matching artist directory inside the transcoded library.
func (a *Artist) TargetDir() string {
	return filepath.Join(a.library.RootInTarget(), a.name)
}

// Albums lists every album directory directly under the artist directory,
// keyed by album title.
func (a *Artist) Albums() (map[string]*Album, error) {
	names, err := albumfiles.ListSubdirectories(a.SourceDir())
	if err != nil {
		return nil, errors.Wrapf(err, "scanning artist directory '%s'", a.SourceDir())
	}

	albums := make(map[string]*Album, len(names))
	for _, name := range names {
		album, err := newAlbum(a, name)
		if err != nil {
			return nil, err
		}
		albums[name] = album
	}
	return albums, nil
}

// Album returns the named album, or ok=false if no such directory exists
// under the artist directory.
func (a *Artist) Album(title string) (album *Album, ok bool, err error) {
	isDir, err := fsutil.IsDir(filepath.Join(a.SourceDir(), title))
	if err != nil {
		return nil, false, errors.Wrapf(err, "checking album directory")
	}
	if !isDir {
		return nil, false, nil
	}

	album, err = newAlbum(a, title)
	if err != nil {
		return nil, false, err
	}
	return album, true, nil
}

// AlbumChanges pairs an Album with its detected changes and the tracked
// file list that produced them, so a caller that needs to persist fresh
// snapshots after processing the changes doesn't have to re-scan the album
// directory to get one.
type AlbumChanges struct {
	Album    *Album
	FileList albumfiles.FileList
	Changes  changes.Changes
}

// ScanForAlbumsWithChanges returns every album by this artist that has at
// least one pending change (including one never transcoded before), keyed
// by album title.
func (a *Artist) ScanForAlbumsWithChanges() (map[string]AlbumChanges, error) {
	albums, err := a.Albums()
	if err != nil {
		return nil, err
	}

	result := make(map[string]AlbumChanges, len(albums))
	for title, album := range albums {
		fileList, albumChanges, err := album.ScanForChangesWithFileList()
		if err != nil {
			return nil, errors.Wrapf(err, "scanning album '%s' for changes", title)
		}
		if !albumChanges.HasChanges() {
			continue
		}
		result[title] = AlbumChanges{Album: album, FileList: fileList, Changes: albumChanges}
	}
	return result, nil
}
