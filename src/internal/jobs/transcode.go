package jobs

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fwojciec/clock"
	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/event"
	"gitlab.com/simongoricar/euphony/src/internal/planner"
)

// cancellationPollInterval is the fixed tick used to poll a running
// transcoder for either exit or cancellation.
const cancellationPollInterval = 50 * time.Millisecond

// TranscoderConfig is the external transcoder contract: a binary plus an
// argument template interpolated per job.
type TranscoderConfig struct {
	BinaryPath      string
	ArgsTemplate    []string
	OutputExtension string
}

// ErrMissingPlaceholder is returned when an argument template is missing
// {INPUT_FILE} or {OUTPUT_FILE}.
var ErrMissingPlaceholder = errors.New("transcoder argument template is missing a required placeholder")

// ErrInvalidExtension is returned by a job constructor when a source or
// target path's extension does not match the library's configuration.
var ErrInvalidExtension = errors.New("path has an unexpected extension for this operation")

// TranscodeAudioJob runs the configured transcoder binary on one audio file.
type TranscodeAudioJob struct {
	id    string
	queue planner.QueueItemID
	clock clock.Clock

	sourcePath string
	targetPath string
	targetDir  string

	binaryPath string
	args       []string
}

// NewTranscodeAudioJob validates sourcePath/targetPath against the library's
// configuration and interpolates cfg's argument template at construction
// time, before any work is queued.
func NewTranscodeAudioJob(
	queue planner.QueueItemID,
	sourcePath, targetPath string,
	audioExtensions albumfiles.ExtensionSets,
	cfg TranscoderConfig,
	clk clock.Clock,
) (*TranscodeAudioJob, error) {
	sourceExt := strings.TrimPrefix(strings.ToLower(filepath.Ext(sourcePath)), ".")
	if _, ok := audioExtensions.Audio[sourceExt]; !ok {
		return nil, errors.Wrapf(
			ErrInvalidExtension,
			"source file '%s' has extension '%s', not a configured audio extension for this library",
			sourcePath, sourceExt,
		)
	}

	wantExt := strings.TrimPrefix(strings.ToLower(cfg.OutputExtension), ".")
	targetExt := strings.TrimPrefix(strings.ToLower(filepath.Ext(targetPath)), ".")
	if targetExt != wantExt {
		return nil, errors.Wrapf(
			ErrInvalidExtension,
			"target file '%s' has extension '%s', expected transcoder output extension '%s'",
			targetPath, targetExt, wantExt,
		)
	}

	args, err := interpolateArgs(cfg.ArgsTemplate, sourcePath, targetPath)
	if err != nil {
		return nil, err
	}

	return &TranscodeAudioJob{
		id:         randomID(),
		queue:      queue,
		clock:      clk,
		sourcePath: sourcePath,
		targetPath: targetPath,
		targetDir:  filepath.Dir(targetPath),
		binaryPath: cfg.BinaryPath,
		args:       args,
	}, nil
}

// interpolateArgs substitutes {INPUT_FILE}/{OUTPUT_FILE} into every element
// of template, requiring that both placeholders appear at least once
// somewhere in the template (not necessarily the same element).
func interpolateArgs(template []string, sourcePath, targetPath string) ([]string, error) {
	var hasInput, hasOutput bool
	args := make([]string, len(template))
	for i, arg := range template {
		if strings.Contains(arg, "{INPUT_FILE}") {
			hasInput = true
		}
		if strings.Contains(arg, "{OUTPUT_FILE}") {
			hasOutput = true
		}
		arg = strings.ReplaceAll(arg, "{INPUT_FILE}", sourcePath)
		args[i] = strings.ReplaceAll(arg, "{OUTPUT_FILE}", targetPath)
	}
	if !hasInput || !hasOutput {
		return nil, errors.Wrapf(ErrMissingPlaceholder, "template %v", template)
	}
	return args, nil
}

func (j *TranscodeAudioJob) Run(cancelFlag *atomic.Bool, bus *event.Bus) {
	bus.Send(event.Starting{ID: j.queue, FileType: planner.FileTypeAudio, Path: j.targetPath, Time: j.clock.Now()})

	if err := os.MkdirAll(j.targetDir, 0o755); err != nil {
		j.emitErrored(bus, "could not create target file's missing parent directory", err.Error())
		return
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(j.binaryPath, j.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound how long Wait keeps draining stdout/stderr once the transcoder
	// has exited, so a killed process whose own children still hold the
	// pipes open cannot hold up cancellation.
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		j.emitErrored(bus, "could not spawn transcoder", err.Error())
		return
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	ticker := time.NewTicker(cancellationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case waitErr := <-waitDone:
			j.emitFinished(bus, waitErr, stdout.String(), stderr.String())
			return
		case <-ticker.C:
			// A process exit that raced the tick must still win: check
			// waitDone non-blockingly before honouring cancellation, so a
			// transcoder that finished writing its output a moment before
			// the flag was set is never reported as Cancelled.
			select {
			case waitErr := <-waitDone:
				j.emitFinished(bus, waitErr, stdout.String(), stderr.String())
				return
			default:
			}

			if cancelFlag.Load() {
				_ = cmd.Process.Kill()
				<-waitDone
				bus.Send(event.Cancelled{ID: j.queue, FileType: planner.FileTypeAudio, Path: j.targetPath, Time: j.clock.Now()})
				return
			}
		}
	}
}

func (j *TranscodeAudioJob) emitFinished(bus *event.Bus, waitErr error, stdout, stderr string) {
	if waitErr == nil {
		bus.Send(event.Finished{
			ID: j.queue, FileType: planner.FileTypeAudio, Path: j.targetPath,
			Result: event.OkResult(),
			Time:   j.clock.Now(),
		})
		return
	}

	bus.Send(event.Finished{
		ID: j.queue, FileType: planner.FileTypeAudio, Path: j.targetPath,
		Result: event.ErroredResult(
			fmt.Sprintf("transcoder exited with error: %v", waitErr),
			fmt.Sprintf("stdout:\n%s\nstderr:\n%s", stdout, stderr),
		),
		Time: j.clock.Now(),
	})
}

func (j *TranscodeAudioJob) emitErrored(bus *event.Bus, message, verbose string) {
	bus.Send(event.Finished{
		ID: j.queue, FileType: planner.FileTypeAudio, Path: j.targetPath,
		Result: event.ErroredResult(message, verbose),
		Time:   j.clock.Now(),
	})
}
