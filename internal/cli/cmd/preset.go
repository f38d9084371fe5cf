package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reencoder/internal/config"
	"reencoder/internal/preset"
	"reencoder/internal/translate"
)

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Inspect HandBrake presets",
	}
	show := &cobra.Command{
		Use:           "show FILE",
		Short:         "Print a preset's settings and the command template it produces",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindRunFlags(viper.GetViper(), cmd.Flags()); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			settings, err := config.Load()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			p, err := preset.Load(args[0])
			if err != nil {
				return &ExitError{Code: ExitPresetError, Err: err}
			}
			return showPreset(cmd.OutOrStdout(), p, settings.Output.Backend)
		},
	}
	show.Flags().String("backend", "ffmpeg", "Encoder to generate for: ffmpeg, handbrake")
	cmd.AddCommand(show)
	return cmd
}

func showPreset(w io.Writer, p preset.Preset, e translate.Engine) error {
	tmpl, notes, err := translate.Generate(p, e)
	if err != nil {
		return &ExitError{Code: ExitPresetError, Err: err}
	}
	fmt.Fprintf(w, "%s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "%s\n", p.Description)
	}
	rows := [][]string{
		{"video", fmt.Sprintf("%+v", p.Video)},
		{"quality", fmt.Sprintf("%+v", p.Quality)},
		{"speed", p.Speed.Name},
		{"profile", p.Profile.Name},
		{"level", p.Level.Name},
		{"framerate", fmt.Sprintf("%+v", p.Framerate)},
		{"color range", p.ColorRange.Range},
		{"scale", fmt.Sprintf("%+v", p.Scale)},
		{"deinterlace", fmt.Sprintf("%+v", p.Deinterlace)},
		{"denoise", fmt.Sprintf("%+v", p.Denoise)},
		{"deblock", p.Deblock.Preset},
		{"audio", fmt.Sprintf("%+v", p.Audio)},
		{"audio bitrate", fmt.Sprintf("%d kbps", p.Bitrate.Kbps)},
		{"mixdown", p.Mixdown.Layout},
		{"container", fmt.Sprintf("%+v", p.Container)},
		{"chapters", fmt.Sprintf("%t", p.Chapters.Enabled)},
		{"subtitles", string(p.Subtitles.Mode)},
	}
	fmt.Fprintln(w, renderTable([]string{"Setting", "Value"}, rows, nil))
	fmt.Fprintf(w, "%s template:\n  %s\n", e, tmpl.String())
	for _, n := range notes {
		fmt.Fprintf(w, "note: %s\n", n)
	}
	return nil
}
