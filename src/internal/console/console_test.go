package console

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

func TestCounters_ObserveTracksFinishedFailedCancelled(t *testing.T) {
	var c Counters

	c.Observe(event.Starting{ID: "1", Path: "a.flac", Time: time.Time{}})
	c.Observe(event.Finished{ID: "1", Path: "a.flac", Result: event.OkResult(), Time: time.Time{}})
	c.Observe(event.Finished{ID: "2", Path: "b.flac", Result: event.ErroredResult("boom", ""), Time: time.Time{}})
	c.Observe(event.Cancelled{ID: "3", Path: "c.flac", Time: time.Time{}})
	c.Observe(event.Finished{ID: "4", Path: "cover.jpg", Result: event.OkCopyResult(1024), Time: time.Time{}})

	snap := c.Snapshot()
	require.Equal(t, uint64(1), snap.Started)
	require.Equal(t, uint64(3), snap.Finished)
	require.Equal(t, uint64(1), snap.Failed)
	require.Equal(t, uint64(1), snap.Cancelled)
	require.Equal(t, uint64(1024), snap.BytesCopied)
}

func TestCounters_SnapshotIsIndependentCopy(t *testing.T) {
	var c Counters
	c.Observe(event.Starting{ID: planner.QueueItemID("1"), Path: "a.flac"})

	snap := c.Snapshot()
	c.Observe(event.Starting{ID: planner.QueueItemID("2"), Path: "b.flac"})

	require.Equal(t, uint64(1), snap.Started)
	require.Equal(t, uint64(2), c.Snapshot().Started)
}
