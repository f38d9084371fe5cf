// Package pipeline runs a batch of files through inspection, track
// selection, command translation and encoding.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"reencoder/internal/encoder"
	"reencoder/internal/model"
	"reencoder/internal/preset"
	"reencoder/internal/progress"
	"reencoder/internal/tracks"
	"reencoder/internal/translate"
	"reencoder/internal/util"
	"reencoder/internal/util/format"
)

// Inspector lists the tracks of a media file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (tracks.Analysis, error)
}

// Metrics observes finished files and batches.
type Metrics interface {
	FileDone(r progress.Result, took time.Duration)
	BatchDone(took time.Duration)
}

// Tools holds resolved binary paths. An empty path keeps the program named
// by the template.
type Tools struct {
	FFmpeg    string
	HandBrake string
	Mkvinfo   string
	FFprobe   string
}

// Rules are the detection rules for the two selectable kinds.
type Rules struct {
	Audio    tracks.RuleSet
	Subtitle tracks.RuleSet
}

// Service runs batches. It is safe to call Run concurrently with
// different batches.
type Service struct {
	runner    util.CmdRunner
	reporter  progress.Reporter
	logger    *zap.Logger
	inspector Inspector
	metrics   Metrics

	tools    Tools
	rules    Rules
	template translate.Template
	preset   *preset.Preset
	engine   translate.Engine

	grace     time.Duration
	tailLines int
	tempDir   string
}

// Option configures a Service.
type Option func(*Service)

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter (used by TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithInspector replaces the mkvinfo/ffprobe inspector.
func WithInspector(in Inspector) Option {
	return func(s *Service) {
		s.inspector = in
	}
}

// WithMetrics attaches a metrics observer.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTools sets the binary paths.
func WithTools(t Tools) Option {
	return func(s *Service) {
		s.tools = t
	}
}

// WithRules sets the track detection rules.
func WithRules(r Rules) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithTemplate runs every file through a stored command template. The
// engine is inferred from its program name.
func WithTemplate(t translate.Template) Option {
	return func(s *Service) {
		s.template = t
		s.preset = nil
		s.engine = t.Engine()
	}
}

// WithPreset generates the command for engine e from p when the batch
// starts.
func WithPreset(p preset.Preset, e translate.Engine) Option {
	return func(s *Service) {
		s.preset = &p
		s.template = translate.Template{}
		s.engine = e
	}
}

// WithGrace sets how long a cancelled encoder may take to exit before it
// is killed.
func WithGrace(d time.Duration) Option {
	return func(s *Service) {
		s.grace = d
	}
}

// WithTailLines sets how many stderr lines a failed encode keeps.
func WithTailLines(n int) Option {
	return func(s *Service) {
		s.tailLines = n
	}
}

// WithTempDir sets where burn-in subtitles are extracted.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.inspector == nil {
		s.inspector = &tracks.Inspector{
			Runner:  s.runner,
			Mkvinfo: s.tools.Mkvinfo,
			FFprobe: s.tools.FFprobe,
			Logger:  s.logger,
		}
	}
	if s.engine == "" {
		s.engine = translate.EngineFFmpeg
	}
	if s.tailLines <= 0 {
		s.tailLines = encoder.DefaultTailLines
	}
	return s
}

// Result is the outcome of a batch.
type Result struct {
	BatchID   string
	Files     []FileStatus // batch order
	Warnings  []string
	Cancelled bool
	Duration  time.Duration
}

// Count returns how many files ended in stage st.
func (r Result) Count(st progress.Stage) int {
	n := 0
	for _, f := range r.Files {
		if f.Status.Stage == st {
			n++
		}
	}
	return n
}

// Err combines the errors of every failed file, or returns nil.
func (r Result) Err() error {
	var err error
	for _, f := range r.Files {
		if f.Status.Stage == progress.StageError && f.Status.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", filepath.Base(f.File.Source), f.Status.Err))
		}
	}
	return err
}

// run is the state of one Run call.
type run struct {
	batch   model.Batch
	table   *Table
	tmpl    translate.Template
	workdir string
	log     *zap.Logger

	mu           sync.Mutex
	warnings     []string
	launched     bool
	launchWarned bool
}

func (r *run) warn(msg string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
	r.log.Warn(msg)
}

// Run processes b and returns once every started file is terminal. Only
// batch-level problems, such as a preset that cannot be translated, are
// returned as an error; those abort before any file starts. Per-file
// failures are recorded in the Result.
func (s *Service) Run(ctx context.Context, b model.Batch) (Result, error) {
	started := time.Now()
	log := s.logger.With(zap.String("batch", b.ID))

	tmpl, err := s.resolveTemplate(log)
	if err != nil {
		return Result{BatchID: b.ID}, err
	}
	if unknown := tmpl.Unknown(); len(unknown) > 0 {
		log.Warn("template has unrecognised tokens, passing them through",
			zap.Strings("tokens", unknown),
			zap.String("template", tmpl.String()),
		)
	}

	r := &run{batch: b, table: NewTable(b.Files), tmpl: tmpl, log: log}
	if needsSubtitleFile(tmpl) {
		r.workdir, err = s.subtitleDir(b.Options.DryRun)
		if err != nil {
			return Result{BatchID: b.ID}, fmt.Errorf("subtitle workdir: %w", err)
		}
		if !b.Options.DryRun {
			defer os.RemoveAll(r.workdir)
		}
	}

	log.Info("batch started",
		zap.Int("files", len(b.Files)),
		zap.String("mode", string(b.Options.Mode)),
		zap.Int("workers", b.Options.Workers()),
		zap.Bool("dry_run", b.Options.DryRun),
		zap.String("engine", string(s.engine)),
	)

	if b.Options.Workers() <= 1 {
		s.runSequential(ctx, r)
	} else {
		s.runParallel(ctx, r, b.Options.Workers())
	}

	res := Result{
		BatchID:   b.ID,
		Files:     r.table.Snapshot(),
		Warnings:  r.warnings,
		Cancelled: ctx.Err() != nil,
		Duration:  time.Since(started),
	}
	if s.metrics != nil {
		s.metrics.BatchDone(res.Duration)
	}
	log.Info("batch finished",
		zap.Int("complete", res.Count(progress.StageComplete)),
		zap.Int("failed", res.Count(progress.StageError)),
		zap.Int("skipped", res.Count(progress.StageSkipped)),
		zap.Int("cancelled", res.Count(progress.StageCancelled)),
		zap.Int("pending", res.Count(progress.StagePending)),
		zap.String("took", format.Clock(res.Duration)),
	)
	return res, nil
}

func (s *Service) resolveTemplate(log *zap.Logger) (translate.Template, error) {
	if s.preset == nil {
		if s.template.IsZero() {
			return translate.Template{}, errors.New("no preset or command template configured")
		}
		return s.template, nil
	}
	tmpl, notes, err := translate.Generate(*s.preset, s.engine)
	if err != nil {
		return translate.Template{}, fmt.Errorf("preset %q: %w", s.preset.Name, err)
	}
	for _, n := range notes {
		log.Info("preset setting not translated", zap.String("preset", s.preset.Name), zap.String("note", n))
	}
	return tmpl, nil
}

func (s *Service) subtitleDir(dryRun bool) (string, error) {
	if dryRun {
		if s.tempDir != "" {
			return s.tempDir, nil
		}
		return filepath.Join(os.TempDir(), "reencoder"), nil
	}
	return util.MakeTempWorkdir(s.tempDir, "subs")
}

// runSequential reaches a terminal stage for each file before starting the
// next. Files after a cancellation stay pending.
func (s *Service) runSequential(ctx context.Context, r *run) {
	for _, f := range r.batch.Files {
		if ctx.Err() != nil {
			return
		}
		s.processFile(ctx, r, f)
	}
}

// runParallel processes up to workers files at once.
func (s *Service) runParallel(ctx context.Context, r *run, workers int) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

loop:
	for _, f := range r.batch.Files {
		select {
		case <-ctx.Done():
			break loop
		case semaphore <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-semaphore
			break loop
		}

		wg.Add(1)
		go func(f model.File) {
			defer wg.Done()
			defer func() { <-semaphore }()
			s.processFile(ctx, r, f)
		}(f)
	}
	wg.Wait()
}

// processFile drives f from pending to a terminal stage.
func (s *Service) processFile(ctx context.Context, r *run, f model.File) {
	log := r.log.With(zap.String("job", f.ID), zap.String("file", f.Source))

	if r.batch.Options.SkipExisting && util.FileExists(f.Output) {
		log.Info("output exists, skipping", zap.String("output", f.Output))
		s.finish(r, f, progress.StageSkipped, "output exists", nil, 0)
		return
	}

	if !s.advance(r, f, progress.StageAnalyzing, "inspecting tracks") {
		return
	}
	a, d, err := s.analyze(ctx, f, log)
	if err != nil {
		s.fail(ctx, r, f, log, progress.StageAnalyzing, err)
		return
	}
	if s.cancelled(ctx, r, f) {
		return
	}

	if !s.advance(r, f, progress.StageTranslating, "building command") {
		return
	}
	p, err := s.plan(r, f, a, d)
	if err != nil {
		s.fail(ctx, r, f, log, progress.StageTranslating, err)
		return
	}
	r.table.SetCommand(f.ID, p.Command)

	if r.batch.Options.DryRun {
		s.advance(r, f, progress.StageEncoding, "dry run")
		log.Info("dry run, not encoding", zap.String("command", p.Command))
		s.finish(r, f, progress.StageComplete, "planned (dry run)", nil, 0)
		return
	}

	if p.Subtitle != nil {
		if err := s.extractSubtitle(ctx, f, p, log); err != nil {
			s.fail(ctx, r, f, log, progress.StageTranslating, err)
			return
		}
		defer util.RemoveIfExists(p.SubtitleFile)
	}
	if s.cancelled(ctx, r, f) {
		return
	}

	if !s.advance(r, f, progress.StageEncoding, "encoding") {
		return
	}
	out, err := s.encode(ctx, r, f, p, a.Duration, log)
	if err != nil {
		s.fail(ctx, r, f, log, progress.StageEncoding, err)
		return
	}
	log.Info("encoded",
		zap.String("output", out.Output),
		zap.Int64("bytes", out.Bytes),
		zap.Duration("took", out.Duration),
	)
	s.finish(r, f, progress.StageComplete, fmt.Sprintf("Saved: %s (%s)", filepath.Base(out.Output), format.HumanizeBytes(out.Bytes)), nil, out.Bytes)
}

func (s *Service) encode(ctx context.Context, r *run, f model.File, p Plan, total time.Duration, log *zap.Logger) (encoder.Result, error) {
	if err := util.EnsureDir(filepath.Dir(f.Output)); err != nil {
		return encoder.Result{}, fmt.Errorf("create output dir: %w", err)
	}
	output := ""
	if p.WritesOutput {
		output = f.Output
	}
	task := encoder.Start(ctx, encoder.Spec{
		Argv:      p.Argv,
		Engine:    p.Engine,
		Duration:  total,
		Output:    output,
		Grace:     s.grace,
		TailLines: s.tailLines,
		Lines: func(stream progress.LogStream, line string) {
			if s.reporter != nil {
				s.reporter.Log(progress.Log{JobID: f.ID, Stream: stream, Line: line})
			}
		},
		Runner: s.runner,
		Logger: log,
	})

	for smp := range task.Events() {
		r.markLaunched()
		eta := time.Duration(-1)
		if smp.ETA >= 0 {
			eta = smp.ETA
		}
		msg := ""
		if smp.Speed > 0 {
			msg = fmt.Sprintf("%.2fx", smp.Speed)
		}
		r.table.SetProgress(f.ID, smp.Percent, eta, msg)
		s.emitSample(f, smp)
	}
	res, err := task.Wait()
	var le *encoder.LaunchError
	if !errors.As(err, &le) {
		r.markLaunched()
	}
	return res, err
}

func (r *run) markLaunched() {
	r.mu.Lock()
	r.launched = true
	r.mu.Unlock()
}

// launchFailed reports whether a launch failure should be logged in full.
// The first one in a batch where nothing has launched yet becomes a single
// batch-level warning; the rest are logged at debug level.
func (r *run) launchFailed(err *encoder.LaunchError) bool {
	r.mu.Lock()
	first := !r.launched && !r.launchWarned
	if first {
		r.launchWarned = true
	}
	r.mu.Unlock()
	if first {
		r.warn(fmt.Sprintf("encoder could not be started: %v", err))
	}
	return first
}

// advance moves f to a running stage and reports it.
func (s *Service) advance(r *run, f model.File, to progress.Stage, msg string) bool {
	st, err := r.table.Transition(f.ID, to, msg, nil)
	if err != nil {
		r.log.Error("status transition rejected", zap.String("job", f.ID), zap.Error(err))
		return false
	}
	s.emitStatus(f, st)
	return true
}

// cancelled moves f to cancelled if ctx is done.
func (s *Service) cancelled(ctx context.Context, r *run, f model.File) bool {
	if ctx.Err() == nil {
		return false
	}
	s.finish(r, f, progress.StageCancelled, "cancelled", ctx.Err(), 0)
	return true
}

// fail records err against f. Errors caused by cancellation end the file
// as cancelled instead.
func (s *Service) fail(ctx context.Context, r *run, f model.File, log *zap.Logger, stage progress.Stage, err error) {
	if ctx.Err() != nil {
		log.Info("cancelled", zap.String("stage", string(stage)), zap.Error(err))
		s.finish(r, f, progress.StageCancelled, "cancelled", err, 0)
		return
	}

	var (
		le *encoder.LaunchError
		fe *encoder.Failure
	)
	switch {
	case errors.As(err, &le):
		if !r.launchFailed(le) {
			log.Debug("encoder launch failed", zap.Error(err))
		}
	case errors.As(err, &fe):
		log.Error("encode failed",
			zap.String("stage", string(stage)),
			zap.Int("exit_code", fe.Code),
			zap.String("stderr_tail", fe.Detail()),
			zap.Error(err),
		)
	default:
		log.Error("file failed", zap.String("stage", string(stage)), zap.Error(err))
	}
	s.finish(r, f, progress.StageError, err.Error(), err, 0)
}

// finish moves f to a terminal stage and reports the result.
func (s *Service) finish(r *run, f model.File, to progress.Stage, msg string, err error, bytes int64) {
	st, terr := r.table.Transition(f.ID, to, msg, err)
	if terr != nil {
		r.log.Error("status transition rejected", zap.String("job", f.ID), zap.Error(terr))
		return
	}
	s.emitStatus(f, st)
	res := progress.Result{
		JobID:      f.ID,
		Stage:      to,
		SourcePath: f.Source,
		OutputPath: f.Output,
		Bytes:      bytes,
		Command:    st.Command,
		Err:        err,
	}
	if s.reporter != nil {
		s.reporter.Result(res)
	}
	if s.metrics != nil {
		s.metrics.FileDone(res, st.Ended.Sub(st.Started))
	}
}

func (s *Service) emitStatus(f model.File, st Status) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{
		JobID:   f.ID,
		Stage:   st.Stage,
		Percent: st.Percent,
		Message: st.Message,
	})
}

func (s *Service) emitSample(f model.File, smp encoder.Sample) {
	if s.reporter == nil {
		return
	}
	u := progress.Update{
		JobID:   f.ID,
		Stage:   progress.StageEncoding,
		Percent: smp.Percent,
	}
	if smp.ETA >= 0 {
		eta := smp.ETA
		u.ETA = &eta
	}
	if smp.Elapsed > 0 {
		el := smp.Elapsed
		u.Elapsed = &el
	}
	if smp.Speed > 0 {
		sp := smp.Speed
		u.Speed = &sp
		u.Message = fmt.Sprintf("%.2fx", sp)
	}
	if smp.FPS > 0 {
		fps := smp.FPS
		u.FPS = &fps
	}
	s.reporter.Update(u)
}
