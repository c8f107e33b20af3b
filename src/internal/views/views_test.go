package views

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/snapshot"
)

func mustExtSets(t *testing.T) albumfiles.ExtensionSets {
	t.Helper()
	sets, err := albumfiles.NewExtensionSets([]string{"flac"}, []string{"jpg"})
	require.NoError(t, err)
	return sets
}

func newTestLibrary(t *testing.T) (*Library, string, string) {
	t.Helper()
	sourceRoot := t.TempDir()
	targetRoot := t.TempDir()

	lib := NewLibrary(LibraryConfig{
		Name:                  "test",
		SourceRoot:            sourceRoot,
		TargetRoot:            targetRoot,
		IgnoredDirectoryNames: []string{".ignored"},
		Extensions:            mustExtSets(t),
		OutputExtension:       "mp3",
	})
	return lib, sourceRoot, targetRoot
}

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLibrary_ArtistsSkipsIgnoredDirectories(t *testing.T) {
	lib, sourceRoot, _ := newTestLibrary(t)

	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "Artist A"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "Artist B"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, ".ignored"), 0o755))

	artists, err := lib.Artists()
	require.NoError(t, err)
	require.Len(t, artists, 2)
	require.Contains(t, artists, "Artist A")
	require.Contains(t, artists, "Artist B")
	require.NotContains(t, artists, ".ignored")
}

func TestLibrary_ArtistReportsMissingAsNotOk(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	_, ok, err := lib.Artist("Nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestArtist_AlbumsAndAlbum(t *testing.T) {
	lib, sourceRoot, _ := newTestLibrary(t)
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "Artist A", "Album One"), 0o755))

	artist, ok, err := lib.Artist("Artist A")
	require.NoError(t, err)
	require.True(t, ok)

	albums, err := artist.Albums()
	require.NoError(t, err)
	require.Contains(t, albums, "Album One")

	album, ok, err := artist.Album("Album One")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filepath.Join(sourceRoot, "Artist A", "Album One"), album.SourceRoot())

	_, ok, err = artist.Album("Nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAlbum_ScanForChanges_NoPriorStateMarksEverythingAdded(t *testing.T) {
	lib, sourceRoot, _ := newTestLibrary(t)
	albumDir := filepath.Join(sourceRoot, "Artist A", "Album One")
	writeFile(t, filepath.Join(albumDir, "01.flac"), "audio")
	writeFile(t, filepath.Join(albumDir, "cover.jpg"), "cover")

	artist, ok, err := lib.Artist("Artist A")
	require.NoError(t, err)
	require.True(t, ok)

	album, ok, err := artist.Album("Album One")
	require.NoError(t, err)
	require.True(t, ok)

	result, err := album.ScanForChanges()
	require.NoError(t, err)
	require.True(t, result.HasChanges())
	require.Len(t, result.AddedInSource.Audio, 1)
	require.Len(t, result.AddedInSource.Data, 1)
	require.Empty(t, result.RemovedInSource.Audio)
}

func TestAlbum_ScanForChanges_NoChangesOnceTranscodedStateMatches(t *testing.T) {
	lib, sourceRoot, targetRoot := newTestLibrary(t)
	albumSourceDir := filepath.Join(sourceRoot, "Artist A", "Album One")
	albumTargetDir := filepath.Join(targetRoot, "Artist A", "Album One")
	writeFile(t, filepath.Join(albumSourceDir, "01.flac"), "audio")
	writeFile(t, filepath.Join(albumTargetDir, "01.mp3"), "transcoded audio")

	artist, ok, err := lib.Artist("Artist A")
	require.NoError(t, err)
	require.True(t, ok)
	album, ok, err := artist.Album("Album One")
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate a prior successful run: persist snapshots matching current disk state.
	fileList, err := album.TrackedSourceFiles()
	require.NoError(t, err)

	sourceSnap, err := snapshot.GenerateSource(fileList, albumSourceDir)
	require.NoError(t, err)
	require.NoError(t, snapshot.SaveSource(albumSourceDir, sourceSnap))

	targetSnap, err := snapshot.GenerateTarget(fileList, albumTargetDir, "mp3")
	require.NoError(t, err)
	require.NoError(t, snapshot.SaveTarget(albumTargetDir, targetSnap))

	result, err := album.ScanForChanges()
	require.NoError(t, err)
	require.False(t, result.HasChanges())
}

func TestAlbum_ScanDepthOverrideIsRespected(t *testing.T) {
	lib, sourceRoot, _ := newTestLibrary(t)
	albumDir := filepath.Join(sourceRoot, "Artist A", "Album One")
	writeFile(t, filepath.Join(albumDir, "disc1", "01.flac"), "audio")
	writeFile(t, filepath.Join(albumDir, ".album.override.euphony"), "[scan]\ndepth = 1\n")

	artist, ok, err := lib.Artist("Artist A")
	require.NoError(t, err)
	require.True(t, ok)

	album, ok, err := artist.Album("Album One")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, album.scanDepth)

	fileList, err := album.TrackedSourceFiles()
	require.NoError(t, err)
	require.Len(t, fileList.AudioFiles, 1)
}

func TestAlbum_ScanDepthDefaultsToZeroWithoutOverride(t *testing.T) {
	lib, sourceRoot, _ := newTestLibrary(t)
	albumDir := filepath.Join(sourceRoot, "Artist A", "Album One")
	writeFile(t, filepath.Join(albumDir, "disc1", "01.flac"), "audio")

	artist, ok, err := lib.Artist("Artist A")
	require.NoError(t, err)
	require.True(t, ok)

	album, ok, err := artist.Album("Album One")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, album.scanDepth)

	fileList, err := album.TrackedSourceFiles()
	require.NoError(t, err)
	require.Empty(t, fileList.AudioFiles, "the nested file must not be found at scan depth 0")
}
