package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

func TestBare_HandleEventWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	b := NewBare(&buf)

	b.HandleEvent(event.Starting{ID: planner.QueueItemID("1"), Path: "01.flac"})
	b.HandleEvent(event.Finished{ID: planner.QueueItemID("1"), Path: "01.flac", Result: event.OkResult()})
	b.HandleEvent(event.Finished{ID: planner.QueueItemID("2"), Path: "02.flac", Result: event.ErroredResult("transcoder exited 1", "")})

	out := buf.String()
	require.Contains(t, out, "starting")
	require.Contains(t, out, "01.flac")
	require.Contains(t, out, "failed")
	require.Contains(t, out, "transcoder exited 1")
}

func TestBare_WriteSummaryReportsCounts(t *testing.T) {
	var buf bytes.Buffer
	b := NewBare(&buf)

	b.HandleEvent(event.Finished{ID: planner.QueueItemID("1"), Path: "cover.jpg", Result: event.OkCopyResult(2048)})
	b.HandleEvent(event.Finished{ID: planner.QueueItemID("2"), Path: "02.flac", Result: event.ErroredResult("boom", "")})

	b.WriteSummary(1, 1)

	out := buf.String()
	require.True(t, strings.Contains(out, "1 albums processed"))
	require.True(t, strings.Contains(out, "1 errored"))
	require.True(t, strings.Contains(out, "2 jobs finished"))
	require.True(t, strings.Contains(out, "1 failed"))
	require.True(t, strings.Contains(out, "copied"))
}
