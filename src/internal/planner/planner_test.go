package planner

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/changes"
)

var errDummy = errors.New("enqueue failed")

func TestPlan_EmissionOrder(t *testing.T) {
	srcRoot := "/music/source/Album"
	tgtRoot := "/music/target/Album"

	c := changes.Changes{
		AddedInSource: changes.ChangeSet{
			Audio: []string{filepath.Join(srcRoot, "02.flac")},
			Data:  []string{filepath.Join(srcRoot, "cover.jpg")},
		},
		ChangedInSource: changes.ChangeSet{
			Audio: []string{filepath.Join(srcRoot, "01.flac")},
		},
		MissingInTranscoded: changes.ChangeSet{
			Audio: []string{filepath.Join(srcRoot, "03.flac")},
		},
		RemovedInSource: changes.PairSet{
			Audio: []changes.PathPair{{Source: filepath.Join(srcRoot, "old.flac"), Target: filepath.Join(tgtRoot, "old.mp3")}},
		},
		ExcessInTranscoded: changes.ExcessSet{
			Data:    []string{filepath.Join(tgtRoot, "notes.txt")},
			Unknown: []string{filepath.Join(tgtRoot, "rogue.bin")},
		},
	}

	var kinds []string
	enqueue := func(ctx JobContext) (QueueItemID, error) {
		switch a := ctx.Action.(type) {
		case TranscodeAction:
			kinds = append(kinds, "transcode:"+a.SourcePath)
		case CopyAction:
			kinds = append(kinds, "copy:"+a.SourcePath)
		case DeleteAction:
			kinds = append(kinds, "delete:"+a.TargetPath())
		}
		return QueueItemID(kinds[len(kinds)-1]), nil
	}

	plan, err := Plan(c, srcRoot, tgtRoot, "mp3", enqueue)
	require.NoError(t, err)
	require.Len(t, plan, 7)

	want := []string{
		"transcode:" + filepath.Join(srcRoot, "02.flac"), // added audio
		"transcode:" + filepath.Join(srcRoot, "01.flac"), // changed audio
		"transcode:" + filepath.Join(srcRoot, "03.flac"), // missing-in-transcoded audio
		"copy:" + filepath.Join(srcRoot, "cover.jpg"),    // added data
		"delete:" + filepath.Join(tgtRoot, "old.mp3"),    // removed-in-source audio
		"delete:" + filepath.Join(tgtRoot, "notes.txt"),  // excess-in-target data
		// (no excess-in-target audio in this fixture, then unknown:)
	}
	// rogue.bin (excess-in-target unknown) is emitted last, after data.
	want = append(want, "delete:"+filepath.Join(tgtRoot, "rogue.bin"))

	require.Equal(t, want, kinds)
}

func TestPlan_TranscodeTargetPathDerivation(t *testing.T) {
	srcRoot, tgtRoot := "/src/Album", "/tgt/Album"
	c := changes.Changes{AddedInSource: changes.ChangeSet{Audio: []string{filepath.Join(srcRoot, "01.flac")}}}

	var got TranscodeAction
	_, err := Plan(c, srcRoot, tgtRoot, "mp3", func(ctx JobContext) (QueueItemID, error) {
		got = ctx.Action.(TranscodeAction)
		return "1", nil
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tgtRoot, "01.mp3"), got.TargetPath())
}

func TestPlan_SuspiciousDeletePathAborts(t *testing.T) {
	srcRoot, tgtRoot := "/src/Album", "/tgt/Album"
	c := changes.Changes{
		ExcessInTranscoded: changes.ExcessSet{Data: []string{"/tgt/OtherAlbum/leak.jpg"}},
	}

	calls := 0
	_, err := Plan(c, srcRoot, tgtRoot, "mp3", func(ctx JobContext) (QueueItemID, error) {
		calls++
		return "x", nil
	})
	require.ErrorIs(t, err, ErrSuspiciousDeletePath)
	require.Zero(t, calls)
}

func TestPlan_EnqueueErrorAbortsEarly(t *testing.T) {
	srcRoot, tgtRoot := "/src/Album", "/tgt/Album"
	c := changes.Changes{
		AddedInSource: changes.ChangeSet{Audio: []string{
			filepath.Join(srcRoot, "01.flac"),
			filepath.Join(srcRoot, "02.flac"),
		}},
	}

	calls := 0
	_, err := Plan(c, srcRoot, tgtRoot, "mp3", func(ctx JobContext) (QueueItemID, error) {
		calls++
		return "", errDummy
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
