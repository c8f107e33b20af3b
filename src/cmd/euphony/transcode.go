package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/clock"
	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/simongoricar/euphony/src/internal/config"
	"gitlab.com/simongoricar/euphony/src/internal/console"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/orchestrator"
	"gitlab.com/simongoricar/euphony/src/internal/pool"
)

var (
	useTUI bool
	watch  bool
)

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Transcode and mirror every configured library into the aggregated target",
	Long:  "Scan every configured library for changed albums, transcode or copy what changed, and remove anything left over in the target with no source counterpart.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTranscode(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	transcodeCmd.Flags().BoolVar(&useTUI, "tui", false, "use the interactive terminal frontend instead of plain status lines")
	transcodeCmd.Flags().BoolVar(&watch, "watch", false, "keep running, re-transcoding whenever a source library changes")
	rootCmd.AddCommand(transcodeCmd)
}

func runTranscode() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if watch {
		return watchAndRun(cfg)
	}

	summary, err := runOnce(cfg)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		os.Exit(1)
	}
	return nil
}

// runOnce performs exactly one full transcode run and reports the outcome
// on whichever frontend the user selected.
func runOnce(cfg config.Config) (orchestrator.Summary, error) {
	runtimes, err := cfg.LibraryRuntimes()
	if err != nil {
		return orchestrator.Summary{}, err
	}

	bus := event.NewBus(1024)
	workerPool := pool.New(cfg.WorkerCount(), bus, clock.New())
	runID := uuid.NewString()

	if useTUI {
		return runWithTUI(runtimes, bus, workerPool, runID)
	}
	return runBare(runtimes, bus, workerPool, runID)
}

func runBare(
	runtimes []orchestrator.LibraryRuntime, bus *event.Bus, workerPool *pool.Pool, runID string,
) (orchestrator.Summary, error) {
	frontend := console.NewBare(os.Stdout)

	o := orchestrator.New(workerPool, bus, clock.New(),
		orchestrator.WithRunID(runID),
		orchestrator.WithEventSink(frontend.HandleEvent),
	)

	summary, err := o.Run(runtimes, nil)
	if err != nil {
		return summary, err
	}

	frontend.WriteSummary(summary.AlbumsProcessed, summary.AlbumsErrored)
	return summary, nil
}

func runWithTUI(
	runtimes []orchestrator.LibraryRuntime, bus *event.Bus, workerPool *pool.Pool, runID string,
) (orchestrator.Summary, error) {
	events := make(chan event.Event, 1024)
	control := make(chan event.ControlMessage, 1)

	o := orchestrator.New(workerPool, bus, clock.New(),
		orchestrator.WithRunID(runID),
		orchestrator.WithEventSink(func(e event.Event) { events <- e }),
	)

	program := console.RunStart(runID, events, control)

	type runResult struct {
		summary orchestrator.Summary
		err     error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		summary, err := o.Run(runtimes, control)
		close(events)
		resultCh <- runResult{summary, err}
	}()

	if _, err := program.Run(); err != nil {
		return orchestrator.Summary{}, err
	}

	result := <-resultCh
	return result.summary, result.err
}

// watchAndRun runs the orchestrator once immediately, then again every time
// one of the configured library roots changes: a notify.Watch per watched
// root feeds one shared channel, consumed by a single loop that triggers a
// new run. There is no diffing step here - every triggered run is a
// complete, ordinary invocation of the core, exactly like the first, since
// partial reprocessing is out of scope and every run is already idempotent
// on unchanged input.
func watchAndRun(cfg config.Config) error {
	if _, err := runOnce(cfg); err != nil {
		return err
	}

	changes := make(chan notify.EventInfo, 64)
	defer notify.Stop(changes)

	for _, key := range cfg.SortedLibraryKeys() {
		root := cfg.Libraries[key].Path
		if err := notify.Watch(filepath.Join(root, "..."), changes, notify.All); err != nil {
			return fmt.Errorf("cannot watch library '%s': %w", cfg.Libraries[key].Name, err)
		}
	}

	logrus.Info("watching for source library changes, press ctrl+c to stop")

	for range changes {
		drainPending(changes)
		logrus.Info("change detected, re-running transcode")
		if _, err := runOnce(cfg); err != nil {
			logrus.WithError(err).Error("run failed, will retry on next change")
		}
	}
	return nil
}

// drainPending collects any additional change events that arrived while the
// previous run was still draining so a burst of filesystem events (e.g. an
// album copied in as many small writes) triggers one re-run, not many.
func drainPending(changes <-chan notify.EventInfo) {
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}
