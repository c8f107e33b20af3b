package jobs

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

// fakeClock is a deterministic clock.Clock for assertions on event.Time.
type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func mustExtSets(t *testing.T, audio, data []string) albumfiles.ExtensionSets {
	t.Helper()
	sets, err := albumfiles.NewExtensionSets(audio, data)
	require.NoError(t, err)
	return sets
}

// drain collects every event already sent on bus without blocking.
func drain(bus *event.Bus) []event.Event {
	var out []event.Event
	for {
		select {
		case e := <-bus.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestNewTranscodeAudioJob_RejectsWrongSourceExtension(t *testing.T) {
	cfg := TranscoderConfig{BinaryPath: "ffmpeg", ArgsTemplate: []string{"-i", "{INPUT_FILE}", "{OUTPUT_FILE}"}, OutputExtension: "mp3"}
	_, err := NewTranscodeAudioJob("1", "/src/01.mp3", "/tgt/01.mp3", mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.ErrorIs(t, err, ErrInvalidExtension)
}

func TestNewTranscodeAudioJob_RejectsWrongTargetExtension(t *testing.T) {
	cfg := TranscoderConfig{BinaryPath: "ffmpeg", ArgsTemplate: []string{"-i", "{INPUT_FILE}", "{OUTPUT_FILE}"}, OutputExtension: "mp3"}
	_, err := NewTranscodeAudioJob("1", "/src/01.flac", "/tgt/01.ogg", mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.ErrorIs(t, err, ErrInvalidExtension)
}

func TestNewTranscodeAudioJob_RequiresBothPlaceholders(t *testing.T) {
	cfg := TranscoderConfig{BinaryPath: "ffmpeg", ArgsTemplate: []string{"-i", "{INPUT_FILE}"}, OutputExtension: "mp3"}
	_, err := NewTranscodeAudioJob("1", "/src/01.flac", "/tgt/01.mp3", mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.ErrorIs(t, err, ErrMissingPlaceholder)
}

func TestTranscodeAudioJob_SuccessEmitsStartingThenFinishedOK(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "01.flac")
	target := filepath.Join(dir, "out", "01.mp3")
	require.NoError(t, os.WriteFile(source, []byte("fake audio"), 0o644))

	cfg := TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "cp '{INPUT_FILE}' '{OUTPUT_FILE}'"},
		OutputExtension: "mp3",
	}

	job, err := NewTranscodeAudioJob("q1", source, target, mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.NoError(t, err)

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.Len(t, events, 2)

	starting, ok := events[0].(event.Starting)
	require.True(t, ok)
	require.Equal(t, planner.FileTypeAudio, starting.FileType)
	require.Equal(t, target, starting.Path)

	finished, ok := events[1].(event.Finished)
	require.True(t, ok)
	require.True(t, finished.Result.OK)

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "fake audio", string(contents))
}

func TestTranscodeAudioJob_NonzeroExitEmitsFinishedErrored(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "01.flac")
	target := filepath.Join(dir, "01.mp3")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	cfg := TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "echo boom '{INPUT_FILE}' '{OUTPUT_FILE}' 1>&2; exit 1"},
		OutputExtension: "mp3",
	}

	job, err := NewTranscodeAudioJob("q1", source, target, mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.NoError(t, err)

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.Len(t, events, 2)

	finished := events[1].(event.Finished)
	require.False(t, finished.Result.OK)
	require.Contains(t, finished.Result.Verbose, "boom")
}

func TestTranscodeAudioJob_CancellationKillsAndEmitsCancelled(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "01.flac")
	target := filepath.Join(dir, "01.mp3")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	cfg := TranscoderConfig{
		BinaryPath:      "/bin/sh",
		ArgsTemplate:    []string{"-c", "sleep 5; cp '{INPUT_FILE}' '{OUTPUT_FILE}'"},
		OutputExtension: "mp3",
	}

	job, err := NewTranscodeAudioJob("q1", source, target, mustExtSets(t, []string{"flac"}, nil), cfg, fakeClock{})
	require.NoError(t, err)

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool

	done := make(chan struct{})
	go func() {
		job.Run(&cancelFlag, bus)
		close(done)
	}()

	time.Sleep(75 * time.Millisecond)
	cancelFlag.Store(true)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe cancellation in time")
	}
	bus.Close()

	events := drain(bus)
	require.Len(t, events, 2)
	_, ok := events[1].(event.Cancelled)
	require.True(t, ok, "expected second event to be Cancelled, got %T", events[1])

	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr), "target should not have been written by a killed transcoder")
}

func TestCopyFileJob_RejectsWrongExtension(t *testing.T) {
	_, err := NewCopyFileJob("1", "/src/cover.bin", "/tgt/cover.bin", mustExtSets(t, nil, []string{"jpg"}), fakeClock{})
	require.ErrorIs(t, err, ErrInvalidExtension)
}

func TestCopyFileJob_SuccessCopiesBytesAndReportsCount(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "cover.jpg")
	target := filepath.Join(dir, "out", "cover.jpg")
	require.NoError(t, os.WriteFile(source, []byte("cover bytes"), 0o644))

	job, err := NewCopyFileJob("q1", source, target, mustExtSets(t, nil, []string{"jpg"}), fakeClock{})
	require.NoError(t, err)

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.Len(t, events, 2)
	finished := events[1].(event.Finished)
	require.True(t, finished.Result.OK)
	require.Equal(t, uint64(len("cover bytes")), finished.Result.BytesCopied)

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "cover bytes", string(contents))
}

func TestDeleteFileJob_RemovesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "old.mp3")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	job := NewDeleteFileJob("q1", target, planner.FileTypeAudio, false, fakeClock{})

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.Len(t, events, 2)
	require.True(t, events[1].(event.Finished).Result.OK)
	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr))
}

func TestDeleteFileJob_MissingAndIgnoredIsOK(t *testing.T) {
	job := NewDeleteFileJob("q1", "/does/not/exist.mp3", planner.FileTypeAudio, true, fakeClock{})

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.True(t, events[1].(event.Finished).Result.OK)
}

func TestDeleteFileJob_MissingAndNotIgnoredIsErrored(t *testing.T) {
	job := NewDeleteFileJob("q1", "/does/not/exist.mp3", planner.FileTypeAudio, false, fakeClock{})

	bus := event.NewBus(10)
	var cancelFlag atomic.Bool
	job.Run(&cancelFlag, bus)
	bus.Close()

	events := drain(bus)
	require.False(t, events[1].(event.Finished).Result.OK)
}
