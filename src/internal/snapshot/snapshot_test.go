package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
)

func TestLoadSource_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSource(dir)
	require.ErrorIs(t, err, ErrNoPriorState)
}

func TestSaveAndLoadSource_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.flac"), []byte("abc"), 0o644))

	fl := albumfiles.FileList{AudioFiles: []string{"01.flac"}}
	snap, err := GenerateSource(fl, dir)
	require.NoError(t, err)
	require.NoError(t, SaveSource(dir, snap))

	loaded, err := LoadSource(dir)
	require.NoError(t, err)
	require.Equal(t, snap, loaded)
}

func TestLoadSource_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sourceSidecarName), []byte(`{"schema_version":1,"tracked_files":{"audio_files":{},"data_files":{}}}`), 0o644))
	_, err := LoadSource(dir)
	require.ErrorIs(t, err, ErrNoPriorState)
}

func TestLoadSource_CorruptIsNoPriorState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sourceSidecarName), []byte(`not json`), 0o644))
	_, err := LoadSource(dir)
	require.ErrorIs(t, err, ErrNoPriorState)
}

func TestGenerateSource_MissingFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	fl := albumfiles.FileList{AudioFiles: []string{"missing.flac"}}
	_, err := GenerateSource(fl, dir)
	require.ErrorIs(t, err, ErrMissingSourceFile)
}

func TestGenerateTarget_SkipsMissingFiles(t *testing.T) {
	srcDir := t.TempDir()
	tgtDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "01.flac"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tgtDir, "01.mp3"), []byte("xyz"), 0o644))

	fl := albumfiles.FileList{AudioFiles: []string{"01.flac"}, DataFiles: []string{"cover.jpg"}}
	snap, err := GenerateTarget(fl, tgtDir, "mp3")
	require.NoError(t, err)
	require.Contains(t, snap.TranscodedFiles.Audio, "01.mp3")
	require.NotContains(t, snap.TranscodedFiles.Data, "cover.jpg")
	require.Equal(t, "01.flac", snap.TranscodedToSource.Audio["01.mp3"])
}

func TestSave_RejectsNonRegularTarget(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, sourceSidecarName)
	require.NoError(t, os.Mkdir(sub, 0o755))

	_, err := GenerateSource(albumfiles.FileList{}, dir)
	require.NoError(t, err)
	err = SaveSource(dir, SourceAlbumSnapshot{SchemaVersion: CurrentSchemaVersion})
	require.ErrorIs(t, err, ErrNotRegularFile)
}
