// Package config resolves settings from defaults, the config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"reencoder/internal/dirs"
	"reencoder/internal/model"
	"reencoder/internal/tracks"
	"reencoder/internal/translate"
)

// EnvPrefix prefixes every environment variable, e.g. REENCODER_OUTPUT_JOBS.
const EnvPrefix = "REENCODER"

// Tools are explicit binary paths. Empty means look the tool up on PATH.
type Tools struct {
	FFmpeg    string `mapstructure:"ffmpeg"`
	HandBrake string `mapstructure:"handbrake"`
	Mkvinfo   string `mapstructure:"mkvinfo"`
	FFprobe   string `mapstructure:"ffprobe"`
}

// Output controls naming and scheduling.
type Output struct {
	Dir          string           `mapstructure:"dir"`
	Suffix       string           `mapstructure:"suffix"`
	Mode         model.Mode       `mapstructure:"mode"`
	Jobs         int              `mapstructure:"jobs"`
	SkipExisting bool             `mapstructure:"skip_existing"`
	Backend      translate.Engine `mapstructure:"backend"`
}

// Rules are the raw detection rules of one track kind.
type Rules struct {
	Languages []string `mapstructure:"languages"`
	Names     []string `mapstructure:"names"`
	Excludes  []string `mapstructure:"excludes"`
}

// Detect groups the per-kind rules. Rules never apply across kinds.
type Detect struct {
	Audio    Rules `mapstructure:"audio"`
	Subtitle Rules `mapstructure:"subtitle"`
}

type Encode struct {
	Grace      time.Duration `mapstructure:"grace"`
	StderrTail int           `mapstructure:"stderr_tail"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Metrics struct {
	File string `mapstructure:"file"`
}

// Settings is the validated configuration. It is passed by value into
// the components that need it.
type Settings struct {
	Tools   Tools   `mapstructure:"tools"`
	Output  Output  `mapstructure:"output"`
	Detect  Detect  `mapstructure:"detect"`
	Encode  Encode  `mapstructure:"encode"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`

	audio, subtitle tracks.RuleSet
}

var defaultExcludes = []string{"Japanese", "JPN", "日本語"}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tools.ffmpeg", "")
	v.SetDefault("tools.handbrake", "")
	v.SetDefault("tools.mkvinfo", "")
	v.SetDefault("tools.ffprobe", "")

	v.SetDefault("output.dir", "")
	v.SetDefault("output.suffix", "_encoded")
	v.SetDefault("output.mode", string(model.ModeSequential))
	v.SetDefault("output.jobs", model.DefaultJobs)
	v.SetDefault("output.skip_existing", false)
	v.SetDefault("output.backend", string(translate.EngineFFmpeg))

	v.SetDefault("detect.audio.languages", []string{"en", "eng"})
	v.SetDefault("detect.audio.names", []string{"English", "ENG"})
	v.SetDefault("detect.audio.excludes", defaultExcludes)
	v.SetDefault("detect.subtitle.languages", []string{"en", "eng"})
	v.SetDefault("detect.subtitle.names", []string{`Signs.*Song`, `Signs$`, `English Signs`, `^Signs\s*$`})
	v.SetDefault("detect.subtitle.excludes", defaultExcludes)

	v.SetDefault("encode.grace", 5*time.Second)
	v.SetDefault("encode.stderr_tail", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.file", "")
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal for a missing config file; a file that exists but does
// not parse is an error.
func Init(root *cobra.Command) error {
	v := viper.GetViper()
	SetDefaults(v)

	_ = dirs.EnsureAll()

	cfgFile, _ := root.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if cfgDir, err := dirs.ConfigDir(); err == nil {
			v.AddConfigPath(cfgDir)
		}
		v.SetConfigName("config") // supports config.{yaml|yml|json|toml}
	}

	bindEnv(v)

	pf := root.PersistentFlags()
	for key, flag := range map[string]string{
		"tools.ffmpeg":    "ffmpeg",
		"tools.handbrake": "handbrake",
		"tools.mkvinfo":   "mkvinfo",
		"tools.ffprobe":   "ffprobe",
		"log.level":       "log-level",
		"log.format":      "log-format",
	} {
		if f := pf.Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// BindRunFlags binds the batch flags of the command being executed.
func BindRunFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	for key, flag := range map[string]string{
		"output.dir":           "out-dir",
		"output.suffix":        "suffix",
		"output.mode":          "mode",
		"output.jobs":          "jobs",
		"output.skip_existing": "skip-existing",
		"output.backend":       "backend",
		"metrics.file":         "metrics-file",
	} {
		if f := fs.Lookup(flag); f != nil {
			err = multierr.Append(err, v.BindPFlag(key, f))
		}
	}
	return err
}

// Load decodes and validates the global configuration.
func Load() (Settings, error) { return Decode(viper.GetViper()) }

// Decode decodes and validates the configuration held by v.
func Decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	var errs error
	mode, err := model.ParseMode(string(s.Output.Mode))
	errs = multierr.Append(errs, err)
	s.Output.Mode = mode

	engine, err := translate.ParseEngine(string(s.Output.Backend))
	errs = multierr.Append(errs, err)
	s.Output.Backend = engine

	if s.Output.Jobs < 1 {
		errs = multierr.Append(errs, fmt.Errorf("output.jobs must be at least 1, got %d", s.Output.Jobs))
	}
	if s.Output.Suffix == "" && s.Output.Dir == "" {
		errs = multierr.Append(errs, errors.New("output.suffix may only be empty when output.dir is set"))
	}
	if s.Encode.Grace < 0 {
		errs = multierr.Append(errs, fmt.Errorf("encode.grace must not be negative, got %s", s.Encode.Grace))
	}
	if s.Encode.StderrTail < 1 {
		errs = multierr.Append(errs, fmt.Errorf("encode.stderr_tail must be at least 1, got %d", s.Encode.StderrTail))
	}
	if _, err := zapcore.ParseLevel(s.Log.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(s.Log.Format) {
	case "console", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.format must be console or json, got %q", s.Log.Format))
	}

	if s.audio, err = tracks.NewRuleSet(s.Detect.Audio.Languages, s.Detect.Audio.Names, s.Detect.Audio.Excludes); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("detect.audio: %w", err))
	}
	if s.subtitle, err = tracks.NewRuleSet(s.Detect.Subtitle.Languages, s.Detect.Subtitle.Names, s.Detect.Subtitle.Excludes); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("detect.subtitle: %w", err))
	}
	return errs
}

// AudioRules returns the compiled audio detection rules.
func (s Settings) AudioRules() tracks.RuleSet { return s.audio }

// SubtitleRules returns the compiled subtitle detection rules.
func (s Settings) SubtitleRules() tracks.RuleSet { return s.subtitle }

// BatchOptions returns the scheduling options for a run.
func (s Settings) BatchOptions(dryRun bool) model.Options {
	return model.Options{
		Mode:         s.Output.Mode,
		Jobs:         s.Output.Jobs,
		SkipExisting: s.Output.SkipExisting,
		DryRun:       dryRun,
	}
}
