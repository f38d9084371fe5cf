package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reencoder/internal/config"
	"reencoder/internal/logging"
	"reencoder/internal/tracks"
	"reencoder/internal/util/deps"
)

func newTracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "tracks FILE...",
		Short:         "List the tracks of each file and which ones the rules select",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			mkv, _ := deps.FindMkvinfo(settings.Tools.Mkvinfo)
			probe, _ := deps.FindFFprobe(settings.Tools.FFprobe)
			if mkv == "" && probe == "" {
				return &ExitError{Code: ExitMissingDep, Err: fmt.Errorf("neither %s nor %s found", deps.Mkvinfo, deps.FFprobe)}
			}
			in := &tracks.Inspector{Mkvinfo: mkv, FFprobe: probe, Logger: logging.FromContext(cmd.Context())}

			var failed int
			for _, path := range args {
				a, err := in.Inspect(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				d := tracks.Decide(a, settings.AudioRules(), settings.SubtitleRules())
				printTracks(cmd.OutOrStdout(), path, a, d)
			}
			if failed > 0 {
				return &ExitError{Code: ExitFileErrors, Err: fmt.Errorf("%d of %d file(s) could not be inspected", failed, len(args))}
			}
			return nil
		},
	}
}

func printTracks(w io.Writer, path string, a tracks.Analysis, d tracks.Decision) {
	verdicts := trackVerdicts(d)
	rows := make([][]string, 0, len(a.Tracks))
	for _, t := range a.Tracks {
		var flags []string
		if t.Default {
			flags = append(flags, "default")
		}
		if t.Forced {
			flags = append(flags, "forced")
		}
		lang := t.Language
		if lang == "" {
			lang = "und"
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Index),
			string(t.Kind),
			lang,
			t.Name,
			t.Codec,
			strings.Join(flags, ","),
			verdicts[t.Index],
		})
	}
	fmt.Fprintf(w, "%s", filepath.Base(path))
	if a.Duration > 0 {
		fmt.Fprintf(w, " (%s)", a.Duration.Round(time.Second))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Kind", "Lang", "Name", "Codec", "Flags", "Decision"},
		rows,
		[]columnAlignment{alignRight}))
	for _, s := range []tracks.Selection{d.Audio, d.Subtitle} {
		if s.Track == nil {
			fmt.Fprintf(w, "%s: none selected\n", s.Kind)
			continue
		}
		fmt.Fprintf(w, "%s: track #%d by %s\n", s.Kind, s.Track.Index, s.Rule)
	}
	for _, warn := range d.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintln(w)
}

func trackVerdicts(d tracks.Decision) map[int]string {
	out := make(map[int]string)
	for _, s := range []tracks.Selection{d.Audio, d.Subtitle} {
		if s.Track != nil {
			out[s.Track.Index] = "selected"
		}
		for _, r := range s.Rejections {
			out[r.Index] = r.String()
		}
	}
	return out
}
