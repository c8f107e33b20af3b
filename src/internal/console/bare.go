package console

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gitlab.com/simongoricar/euphony/src/internal/event"
)

// Bare is the non-interactive frontend: one line per event, written directly
// to w as they arrive, rather than anything terminal-control-aware.
type Bare struct {
	w        io.Writer
	counters Counters
	printer  *message.Printer
}

// NewBare builds a Bare frontend writing to w.
func NewBare(w io.Writer) *Bare {
	return &Bare{w: w, printer: message.NewPrinter(language.English)}
}

// HandleEvent renders one event as a status line and folds it into the
// running counters. Intended as the callback passed to
// orchestrator.WithEventSink.
func (b *Bare) HandleEvent(e event.Event) {
	b.counters.Observe(e)

	switch evt := e.(type) {
	case event.Starting:
		fmt.Fprintf(b.w, "%-10s %s\n", "starting", evt.Path)
	case event.Finished:
		if evt.Result.OK {
			fmt.Fprintf(b.w, "%-10s %s\n", "done", evt.Path)
		} else {
			fmt.Fprintf(b.w, "%-10s %s: %s\n", "failed", evt.Path, evt.Result.Message)
		}
	case event.Cancelled:
		fmt.Fprintf(b.w, "%-10s %s\n", "cancelled", evt.Path)
	case event.Log:
		fmt.Fprintf(b.w, "%-10s %s\n", "log", evt.Text)
	}
}

// WriteSummary prints the final aggregate counts, thousands-grouped via
// message.NewPrinter(language.English).
func (b *Bare) WriteSummary(albumsProcessed, albumsErrored int) {
	counters := b.counters.Snapshot()

	b.printer.Fprintf(b.w, "\n%d albums processed, %d errored\n", albumsProcessed, albumsErrored)
	b.printer.Fprintf(
		b.w, "%d jobs finished, %d failed, %d cancelled\n",
		counters.Finished, counters.Failed, counters.Cancelled,
	)
	if counters.BytesCopied > 0 {
		fmt.Fprintf(b.w, "%s copied\n", humanize.Bytes(counters.BytesCopied))
	}
}
