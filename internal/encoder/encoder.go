// Package encoder runs encoding subprocesses and turns their output into
// progress samples.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"reencoder/internal/progress"
	"reencoder/internal/translate"
	"reencoder/internal/util"
)

// Defaults for Spec fields left zero.
const (
	DefaultTailLines   = 20
	DefaultOutputWaits = 6
	DefaultOutputDelay = 100 * time.Millisecond
	eventBuffer        = 16
)

// Spec describes one encode.
type Spec struct {
	Argv     []string // resolved command, program first
	Engine   translate.Engine
	Duration time.Duration // media duration of the input, 0 if unknown
	Output   string        // file the command writes; awaited after exit 0

	// Parser overrides the engine's progress parser.
	Parser ProgressParser

	Grace     time.Duration // interrupt-to-kill delay on cancellation
	TailLines int           // stderr lines kept for Failure

	// Lines receives every output line that is not progress. It is called
	// from the stdout and stderr readers concurrently.
	Lines func(stream progress.LogStream, line string)

	Runner util.CmdRunner
	Logger *zap.Logger
}

// Result describes a finished encode.
type Result struct {
	Output   string
	Bytes    int64
	Duration time.Duration // wall time
}

// Task is a running encode. Progress is delivered on Events; Wait blocks
// until the process has exited.
type Task struct {
	events chan Sample
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	parser ProgressParser
	tail   []string
	keep   int

	res Result
	err error
}

// Start launches the encode described by spec and returns immediately.
// Launch failures are reported by Wait as *LaunchError. Cancelling ctx or
// calling Cancel interrupts the process; it is killed if it has not exited
// after spec.Grace.
func Start(ctx context.Context, spec Spec) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		events: make(chan Sample, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		parser: spec.Parser,
		keep:   spec.TailLines,
	}
	if t.parser == nil {
		t.parser = NewProgressParser(spec.Engine, spec.Duration)
	}
	if t.keep <= 0 {
		t.keep = DefaultTailLines
	}
	go t.run(ctx, spec)
	return t
}

// Events yields progress samples. It is closed when the process exits.
// Samples are dropped while the consumer is behind, so a slow reader never
// stalls the encoder.
func (t *Task) Events() <-chan Sample { return t.events }

// Cancel asks the process to stop.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once Wait would not block.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait returns the outcome once the process has exited.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.res, t.err
}

func (t *Task) run(ctx context.Context, spec Spec) {
	defer close(t.done)
	defer t.cancel()
	defer close(t.events)

	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(spec.Argv) == 0 {
		t.err = &LaunchError{Err: errors.New("empty command")}
		return
	}
	runner := spec.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	started := time.Now()
	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:       spec.Argv[0],
		Args:       spec.Argv[1:],
		Grace:      spec.Grace,
		StdoutLine: func(line string) { t.line(spec, progress.StreamStdout, line) },
		StderrLine: func(line string) { t.line(spec, progress.StreamStderr, line) },
		Logger:     logger,
	})
	t.res = Result{Output: spec.Output, Duration: time.Since(started)}

	var startErr *util.StartError
	switch {
	case errors.As(runErr, &startErr):
		t.err = &LaunchError{Path: startErr.Path, Err: startErr}
		return
	case runErr != nil && ctx.Err() != nil:
		_ = util.RemoveIfExists(spec.Output)
		t.err = fmt.Errorf("encode cancelled: %w", ctx.Err())
		return
	case runErr != nil:
		_ = util.RemoveIfExists(spec.Output)
		t.mu.Lock()
		tail := append([]string(nil), t.tail...)
		t.mu.Unlock()
		t.err = &Failure{Code: res.Code, Tail: tail, Err: runErr}
		return
	}

	if spec.Output == "" {
		return
	}
	fi, err := util.WaitForFile(ctx, spec.Output, DefaultOutputWaits, DefaultOutputDelay)
	if err != nil {
		t.err = &Failure{Code: 0, Err: err}
		return
	}
	t.res.Bytes = fi.Size()
	logger.Debug("encode finished",
		zap.String("output", spec.Output),
		zap.Int64("bytes", t.res.Bytes),
		zap.Duration("took", t.res.Duration),
	)
}

// line is called by the stdout and stderr readers concurrently. Samples
// are sent while t.mu is held so they arrive in parse order.
func (t *Task) line(spec Spec, stream progress.LogStream, line string) {
	t.mu.Lock()
	s, ok := t.parser.UpdateFromLine(line)
	if ok {
		select {
		case t.events <- s:
		default:
		}
		t.mu.Unlock()
		return
	}
	if stream == progress.StreamStderr {
		t.tail = append(t.tail, line)
		if len(t.tail) > t.keep {
			t.tail = t.tail[len(t.tail)-t.keep:]
		}
	}
	t.mu.Unlock()

	if spec.Lines != nil {
		spec.Lines(stream, line)
	}
}
