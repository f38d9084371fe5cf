package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"reencoder/internal/config"
	"reencoder/internal/dirs"
	"reencoder/internal/logging"
	"reencoder/internal/metrics"
	"reencoder/internal/model"
	"reencoder/internal/pipeline"
	"reencoder/internal/preset"
	"reencoder/internal/progress"
	"reencoder/internal/scan"
	"reencoder/internal/templates"
	"reencoder/internal/translate"
	"reencoder/internal/ui"
	"reencoder/internal/util/deps"
)

type runMode struct {
	ForceTUI   bool
	DryRunOnly bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [paths...]",
		Short:         "Encode video files and directories",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

// commandSource is where the batch command comes from: a preset or a
// stored template.
type commandSource struct {
	option pipeline.Option
	engine translate.Engine
	ext    string // output extension; empty keeps the source's
	label  string
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	if err := config.BindRunFlags(viper.GetViper(), cmd.Flags()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	settings, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dryRun = dryRun || mode.DryRunOnly
	noUI, _ := cmd.Flags().GetBool("no-ui")
	recursive, _ := cmd.Flags().GetBool("recursive")

	src, err := resolveCommandSource(ctx, cmd, settings)
	if err != nil {
		return err
	}

	batch, err := buildBatch(args, recursive, src.ext, settings, dryRun)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	tools, err := resolveTools(settings, src.engine, dryRun)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}

	if !dryRun {
		unlock, err := lockBatch()
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		defer unlock()
	}

	useTUI := mode.ForceTUI || (!noUI && !mode.DryRunOnly && isTerminal())
	if useTUI {
		// The view owns the terminal; logs go to a file instead.
		fileLog, closeLog, err := tuiLogger(settings)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		defer closeLog()
		log = fileLog
	}

	tempDir, _ := dirs.TempBaseDir()
	opts := []pipeline.Option{
		src.option,
		pipeline.WithLogger(log),
		pipeline.WithTools(tools),
		pipeline.WithRules(pipeline.Rules{Audio: settings.AudioRules(), Subtitle: settings.SubtitleRules()}),
		pipeline.WithGrace(settings.Encode.Grace),
		pipeline.WithTailLines(settings.Encode.StderrTail),
		pipeline.WithTempDir(tempDir),
	}
	var batchMetrics *metrics.Batch
	if settings.Metrics.File != "" {
		batchMetrics = metrics.NewBatch()
		opts = append(opts, pipeline.WithMetrics(batchMetrics))
	}

	log.Info("starting batch",
		zap.String("source", src.label),
		zap.Int("files", len(batch.Files)),
		zap.Bool("tui", useTUI),
	)

	var res pipeline.Result
	if useTUI {
		res, err = ui.Run(ctx, batch, func(ctx context.Context, rep progress.Reporter) (pipeline.Result, error) {
			return pipeline.NewService(append(opts, pipeline.WithReporter(rep))...).Run(ctx, batch)
		})
	} else {
		names := make(map[string]string, len(batch.Files))
		for _, f := range batch.Files {
			names[f.ID] = filepath.Base(f.Source)
		}
		rep := newTextReporter(cmd.OutOrStdout(), names)
		res, err = pipeline.NewService(append(opts, pipeline.WithReporter(rep))...).Run(ctx, batch)
	}
	if err != nil {
		var te *translate.Error
		if errors.As(err, &te) {
			return &ExitError{Code: ExitPresetError, Err: err}
		}
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	printSummary(cmd.OutOrStdout(), res)

	if batchMetrics != nil {
		if err := batchMetrics.WriteFile(settings.Metrics.File); err != nil {
			log.Warn("could not write metrics file", zap.String("path", settings.Metrics.File), zap.Error(err))
		}
	}

	switch {
	case res.Cancelled:
		return &ExitError{Code: ExitCancelled, Err: errors.New("batch cancelled")}
	case res.Count(progress.StageError) > 0:
		return &ExitError{Code: ExitFileErrors, Err: fmt.Errorf("%d file(s) failed: %w", res.Count(progress.StageError), res.Err())}
	}
	return nil
}

func resolveCommandSource(ctx context.Context, cmd *cobra.Command, settings config.Settings) (commandSource, error) {
	presetPath, _ := cmd.Flags().GetString("preset")
	templateName, _ := cmd.Flags().GetString("template")
	switch {
	case presetPath != "" && templateName != "":
		return commandSource{}, &ExitError{Code: ExitCLIError, Err: errors.New("use either --preset or --template, not both")}
	case presetPath != "":
		p, err := preset.Load(presetPath)
		if err != nil {
			return commandSource{}, &ExitError{Code: ExitPresetError, Err: err}
		}
		return commandSource{
			option: pipeline.WithPreset(p, settings.Output.Backend),
			engine: settings.Output.Backend,
			ext:    p.Container.Extension(),
			label:  fmt.Sprintf("preset %q (%s)", p.Name, settings.Output.Backend),
		}, nil
	case templateName != "":
		store, err := openStore(ctx)
		if err != nil {
			return commandSource{}, &ExitError{Code: ExitCLIError, Err: err}
		}
		defer store.Close()
		e, err := store.Load(ctx, templateName)
		if err != nil {
			return commandSource{}, templateError(err)
		}
		t, err := e.Template()
		if err != nil {
			return commandSource{}, &ExitError{Code: ExitPresetError, Err: err}
		}
		return commandSource{
			option: pipeline.WithTemplate(t),
			engine: t.Engine(),
			label:  fmt.Sprintf("template %q", e.Name),
		}, nil
	}
	return commandSource{}, &ExitError{Code: ExitCLIError, Err: errors.New("no command given: pass --preset FILE or --template NAME")}
}

func buildBatch(args []string, recursive bool, ext string, settings config.Settings, dryRun bool) (model.Batch, error) {
	sources, err := scan.Discover(args, scan.Options{Recursive: recursive, SkipSuffix: settings.Output.Suffix})
	if err != nil {
		return model.Batch{}, err
	}
	if len(sources) == 0 {
		return model.Batch{}, errors.New("no video files found")
	}
	pairs := make([]model.Pair, 0, len(sources))
	for _, s := range sources {
		n := scan.Naming{Dir: settings.Output.Dir, Suffix: settings.Output.Suffix, Ext: ext}
		if n.Ext == "" {
			n.Ext = filepath.Ext(s.Path)
		}
		out, err := scan.OutputPath(s, n)
		if err != nil {
			return model.Batch{}, err
		}
		pairs = append(pairs, model.Pair{Source: s.Path, Output: out})
	}
	return model.NewBatch(pairs, settings.BatchOptions(dryRun)), nil
}

// resolveTools finds the binaries a batch needs. The encoder is only
// required when files will actually be encoded.
func resolveTools(settings config.Settings, engine translate.Engine, dryRun bool) (pipeline.Tools, error) {
	var t pipeline.Tools
	t.Mkvinfo, _ = deps.FindMkvinfo(settings.Tools.Mkvinfo)
	ffprobe, probeErr := deps.FindFFprobe(settings.Tools.FFprobe)
	t.FFprobe = ffprobe
	if t.Mkvinfo == "" && t.FFprobe == "" {
		return t, fmt.Errorf("no inspection tool: install MKVToolNix (mkvinfo) or ffprobe: %w", probeErr)
	}

	ffmpeg, ffErr := deps.FindFFmpeg(settings.Tools.FFmpeg)
	t.FFmpeg = ffmpeg
	if engine == translate.EngineHandBrake {
		hb, err := deps.FindHandBrake(settings.Tools.HandBrake)
		if err != nil && !dryRun {
			return t, err
		}
		t.HandBrake = hb
		return t, nil
	}
	if ffErr != nil && !dryRun {
		return t, ffErr
	}
	return t, nil
}

// lockBatch keeps two batches from running at the same time.
func lockBatch() (func(), error) {
	path, err := dirs.BatchLockPath()
	if err != nil {
		return nil, err
	}
	if err := dirs.Ensure(filepath.Dir(path)); err != nil {
		return nil, err
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("batch lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another batch is already running (lock %s)", path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func tuiLogger(settings config.Settings) (*zap.Logger, func(), error) {
	dir, err := dirs.StateDir()
	if err != nil {
		return nil, nil, err
	}
	if err := dirs.Ensure(dir); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "reencoder.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l, err := logging.New(logging.Options{Level: settings.Log.Level, Format: "json", Output: f})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return l, func() {
		_ = l.Sync()
		_ = f.Close()
	}, nil
}

func openStore(ctx context.Context) (*templates.Store, error) {
	path, err := dirs.TemplateDBPath()
	if err != nil {
		return nil, err
	}
	return templates.Open(ctx, path)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func configString(key string) string { return viper.GetString(key) }
