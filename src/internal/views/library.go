// Package views implements the library/artist/album view graph: a
// read-mostly tree that turns on-disk directory structure into the objects
// the orchestrator walks to find work.
//
// Each view below is an ordinary struct linked by plain pointers: a child
// holds a back-reference to its parent, and Go's garbage collector has no
// trouble with the resulting cycle. Writes only ever happen at
// construction, so there is nothing left for a lock to protect.
package views

import (
	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/fsutil"
)

// Library is the root of the view graph for one configured source library.
type Library struct {
	config LibraryConfig
}

// NewLibrary wraps a LibraryConfig in a Library view.
func NewLibrary(config LibraryConfig) *Library {
	return &Library{config: config}
}

// Name returns the library's configured name.
func (l *Library) Name() string {
	return l.config.Name
}

// RootInSource is the library's root directory in the untranscoded source
// collection.
func (l *Library) RootInSource() string {
	return l.config.SourceRoot
}

// RootInTarget is the matching root directory inside the transcoded library.
func (l *Library) RootInTarget() string {
	return l.config.TargetRoot
}

// Extensions returns the library's configured audio/data extension sets.
func (l *Library) Extensions() albumfiles.ExtensionSets {
	return l.config.Extensions
}

// OutputExtension returns the transcoder's configured output extension.
func (l *Library) OutputExtension() string {
	return l.config.OutputExtension
}

// Artists lists every artist directory directly under the library root,
// skipping any name in the library's ignored-directory list, keyed by
// directory name.
func (l *Library) Artists() (map[string]*Artist, error) {
	names, err := albumfiles.ListSubdirectories(l.config.SourceRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning library root '%s'", l.config.SourceRoot)
	}

	artists := make(map[string]*Artist, len(names))
	for _, name := range names {
		if l.config.isIgnored(name) {
			continue
		}
		artists[name] = newArtist(l, name)
	}
	return artists, nil
}

// Artist returns the named artist, or ok=false if no such directory exists
// under the library root.
func (l *Library) Artist(name string) (artist *Artist, ok bool, err error) {
	artist = newArtist(l, name)

	isDir, err := fsutil.IsDir(artist.SourceDir())
	if err != nil {
		return nil, false, errors.Wrapf(err, "checking artist directory '%s'", artist.SourceDir())
	}
	if !isDir {
		return nil, false, nil
	}
	return artist, true, nil
}

// ArtistChanges pairs an Artist with the subset of its albums that have
// pending changes, keyed by album title.
type ArtistChanges struct {
	Artist *Artist
	Albums map[string]AlbumChanges
}

// ScanForArtistsWithChangedAlbums is the orchestrator's entry point: every
// artist in the library that has at least one album with changes, keyed by
// artist name.
func (l *Library) ScanForArtistsWithChangedAlbums() (map[string]ArtistChanges, error) {
	artists, err := l.Artists()
	if err != nil {
		return nil, err
	}

	result := make(map[string]ArtistChanges, len(artists))
	for name, artist := range artists {
		albums, err := artist.ScanForAlbumsWithChanges()
		if err != nil {
			return nil, errors.Wrapf(err, "scanning artist '%s' for changed albums", name)
		}
		if len(albums) == 0 {
			continue
		}
		result[name] = ArtistChanges{Artist: artist, Albums: albums}
	}
	return result, nil
}
