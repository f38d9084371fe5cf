package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"reencoder/internal/config"
	"reencoder/internal/logging"
)

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 2
	ExitPresetError = 3
	ExitFileErrors  = 4
	ExitCancelled   = 5
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reencoder [paths...]",
		Short: "Batch re-encode videos with automatic track selection",
		Long: "reencoder inspects each video, picks the audio and subtitle tracks by language and name rules, " +
			"turns a HandBrake preset (or a saved command template) into an ffmpeg or HandBrakeCLI command " +
			"and encodes the batch sequentially or in parallel.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runExecute(cmd, args, runMode{})
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: config.{yaml,toml,json} in the config dir)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console, json")
	pf.String("ffmpeg", "", "Path to ffmpeg")
	pf.String("handbrake", "", "Path to HandBrakeCLI")
	pf.String("mkvinfo", "", "Path to mkvinfo")
	pf.String("ffprobe", "", "Path to ffprobe")

	// `reencoder <paths>` behaves like `reencoder run <paths>`.
	bindRunFlags(root.Flags())

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newTracksCmd())
	root.AddCommand(newPresetCmd())
	root.AddCommand(newTemplateCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.StringP("preset", "p", "", "HandBrake preset JSON file")
	fs.StringP("template", "t", "", "Name of a saved command template (instead of --preset)")
	fs.String("backend", "ffmpeg", "Encoder for --preset: ffmpeg, handbrake")
	fs.String("mode", "sequential", "Scheduling: sequential, parallel")
	fs.IntP("jobs", "j", 2, "Concurrent encodes in parallel mode")
	fs.Bool("skip-existing", false, "Skip files whose output already exists")
	fs.Bool("dry-run", false, "Plan and log every command without encoding")
	fs.BoolP("recursive", "r", false, "Search directories recursively")
	fs.String("suffix", "_encoded", "Appended to each output name")
	fs.StringP("out-dir", "o", "", "Output root (default: next to each source)")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
	fs.String("metrics-file", "", "Write batch metrics in Prometheus text format to this file")
}

// setup loads the configuration and installs the logger for every command.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	logger, err := logging.New(logging.Options{
		Level:  configString("log.level"),
		Format: configString("log.format"),
	})
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("logger: %w", err)}
	}
	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	return nil
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
