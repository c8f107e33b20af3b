package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/jobs"
	"gitlab.com/simongoricar/euphony/src/internal/pool"
	"gitlab.com/simongoricar/euphony/src/internal/snapshot"
	"gitlab.com/simongoricar/euphony/src/internal/views"
)

// fakeClock is a deterministic clock.Clock for assertions in these tests.
type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func mustExtSets(t *testing.T, audio, data []string) albumfiles.ExtensionSets {
	t.Helper()
	sets, err := albumfiles.NewExtensionSets(audio, data)
	require.NoError(t, err)
	return sets
}

// copyTranscoder is a transcoder that always succeeds, standing in for a
// real audio encoder the way the jobs package's own tests do.
func copyTranscoder() jobs.TranscoderConfig {
	return jobs.TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "cp '{INPUT_FILE}' '{OUTPUT_FILE}'"},
		OutputExtension: "mp3",
	}
}

// failingTranscoder always exits nonzero, so every job it runs reports an
// errored Result.
func failingTranscoder() jobs.TranscoderConfig {
	return jobs.TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "echo boom 1>&2; exit 1 # {INPUT_FILE} {OUTPUT_FILE}"},
		OutputExtension: "mp3",
	}
}

// slowTranscoder sleeps long enough for a test to reliably send a
// cancellation signal before it would otherwise finish.
func slowTranscoder() jobs.TranscoderConfig {
	return jobs.TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "sleep 5; cp '{INPUT_FILE}' '{OUTPUT_FILE}'"},
		OutputExtension: "mp3",
	}
}

func newLibraryRuntime(t *testing.T, name string, transcoder jobs.TranscoderConfig) (LibraryRuntime, string) {
	t.Helper()
	root := t.TempDir()
	sourceRoot := filepath.Join(root, "source")
	targetRoot := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(sourceRoot, 0o755))
	require.NoError(t, os.MkdirAll(targetRoot, 0o755))

	cfg := views.LibraryConfig{
		Name:            name,
		SourceRoot:      sourceRoot,
		TargetRoot:      targetRoot,
		Extensions:      mustExtSets(t, []string{"flac"}, []string{"jpg"}),
		OutputExtension: "mp3",
	}

	return LibraryRuntime{
		Library:    views.NewLibrary(cfg),
		Transcoder: transcoder,
	}, root
}

func writeAlbum(t *testing.T, lr LibraryRuntime, artist, album string) (sourceDir string) {
	t.Helper()
	sourceDir = filepath.Join(lr.Library.RootInSource(), artist, album)
	require.NoError(t, os.MkdirAll(sourceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "01.flac"), []byte("track one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "cover.jpg"), []byte("cover"), 0o644))
	return sourceDir
}

func newOrchestrator(bufferSize, maxWorkers int) (*Orchestrator, *event.Bus) {
	bus := event.NewBus(bufferSize)
	p := pool.New(maxWorkers, bus, fakeClock{})
	return New(p, bus, fakeClock{}), bus
}

func TestRun_SuccessfulAlbumPersistsSnapshotsAndIncrementsSummary(t *testing.T) {
	lr, _ := newLibraryRuntime(t, "main", copyTranscoder())
	sourceDir := writeAlbum(t, lr, "Artist", "Album")

	o, _ := newOrchestrator(32, 2)

	summary, err := o.Run([]LibraryRuntime{lr}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.AlbumsProcessed)
	require.Equal(t, 0, summary.AlbumsErrored)
	require.False(t, summary.Cancelled)
	require.False(t, summary.HasFailures())

	targetDir := filepath.Join(lr.Library.RootInTarget(), "Artist", "Album")
	_, err = os.Stat(filepath.Join(targetDir, "01.mp3"))
	require.NoError(t, err, "transcoded file should have been written")
	_, err = os.Stat(filepath.Join(targetDir, "cover.jpg"))
	require.NoError(t, err, "copied data file should have been written")

	_, err = snapshot.LoadSource(sourceDir)
	require.NoError(t, err, "source snapshot should have been persisted after a clean run")
	_, err = snapshot.LoadTarget(targetDir)
	require.NoError(t, err, "target snapshot should have been persisted after a clean run")
}

func TestRun_SecondRunWithNoChangesFindsNothingToDo(t *testing.T) {
	lr, _ := newLibraryRuntime(t, "main", copyTranscoder())
	writeAlbum(t, lr, "Artist", "Album")

	o1, _ := newOrchestrator(32, 2)
	summary1, err := o1.Run([]LibraryRuntime{lr}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary1.AlbumsProcessed)

	o2, _ := newOrchestrator(32, 2)
	summary2, err := o2.Run([]LibraryRuntime{lr}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, summary2.AlbumsProcessed, "an unchanged album should not be scheduled again")
}

func TestRun_FailedJobLeavesSnapshotsUnwrittenForRetry(t *testing.T) {
	lr, _ := newLibraryRuntime(t, "main", failingTranscoder())
	sourceDir := writeAlbum(t, lr, "Artist", "Album")

	o, _ := newOrchestrator(32, 2)
	summary, err := o.Run([]LibraryRuntime{lr}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.AlbumsProcessed)
	require.Equal(t, 1, summary.AlbumsErrored)
	require.True(t, summary.HasFailures())

	_, err = snapshot.LoadSource(sourceDir)
	require.ErrorIs(t, err, snapshot.ErrNoPriorState, "a failed album must not get a persisted snapshot")
}

func TestRun_ExitControlMessageStopsBeforeLaterAlbums(t *testing.T) {
	lr, _ := newLibraryRuntime(t, "main", slowTranscoder())
	writeAlbum(t, lr, "Artist", "AlbumA")
	writeAlbum(t, lr, "Artist", "AlbumB")

	o, _ := newOrchestrator(32, 1)

	control := make(chan event.ControlMessage, 1)
	control <- event.Exit

	summary, err := o.Run([]LibraryRuntime{lr}, control)
	require.NoError(t, err)
	require.True(t, summary.Cancelled)
	require.True(t, summary.HasFailures())
	require.LessOrEqual(t, summary.AlbumsProcessed, 1)
}

func TestRun_MultipleLibrariesProcessedInOrder(t *testing.T) {
	lr1, _ := newLibraryRuntime(t, "first", copyTranscoder())
	writeAlbum(t, lr1, "Artist", "Album")

	lr2, _ := newLibraryRuntime(t, "second", copyTranscoder())
	writeAlbum(t, lr2, "OtherArtist", "OtherAlbum")

	o, _ := newOrchestrator(32, 2)
	summary, err := o.Run([]LibraryRuntime{lr1, lr2}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, summary.AlbumsProcessed)
	require.Equal(t, 0, summary.AlbumsErrored)
}
