package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reencoder/internal/config"
	"reencoder/internal/dirs"
	"reencoder/internal/util/deps"
)

type toolCheck struct {
	name     string
	path     string
	err      error
	purpose  string
	required bool
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external tools (ffmpeg, HandBrakeCLI, mkvinfo, ffprobe)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			checks := runChecks(settings.Tools)

			rows := make([][]string, 0, len(checks)+2)
			for _, c := range checks {
				status, where := "ok", c.path
				if c.err != nil {
					status, where = "missing", c.err.Error()
				}
				rows = append(rows, []string{c.name, status, where, c.purpose})
			}
			if p, err := dirs.TemplateDBPath(); err == nil {
				rows = append(rows, []string{"templates", "", p, "saved command templates"})
			}
			if p, err := dirs.BatchLockPath(); err == nil {
				rows = append(rows, []string{"lock", "", p, "one batch at a time"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Status", "Path", "Used for"}, rows, nil))

			return doctorVerdict(checks)
		},
	}
}

func runChecks(t config.Tools) []toolCheck {
	check := func(name, purpose string, required bool, find func(string) (string, error), custom string) toolCheck {
		p, err := find(custom)
		return toolCheck{name: name, path: p, err: err, purpose: purpose, required: required}
	}
	return []toolCheck{
		check(deps.FFmpeg, "encoding, subtitle extraction", true, deps.FindFFmpeg, t.FFmpeg),
		check(deps.HandBrake, "handbrake backend", false, deps.FindHandBrake, t.HandBrake),
		check(deps.Mkvinfo, "track inspection (Matroska)", false, deps.FindMkvinfo, t.Mkvinfo),
		check(deps.FFprobe, "track inspection", false, deps.FindFFprobe, t.FFprobe),
	}
}

// doctorVerdict fails when ffmpeg is missing or no inspection tool exists.
func doctorVerdict(checks []toolCheck) error {
	var inspectors int
	for _, c := range checks {
		if c.required && c.err != nil {
			return &ExitError{Code: ExitMissingDep, Err: c.err}
		}
		if (c.name == deps.Mkvinfo || c.name == deps.FFprobe) && c.err == nil {
			inspectors++
		}
	}
	if inspectors == 0 {
		return &ExitError{Code: ExitMissingDep, Err: errors.New("neither mkvinfo nor ffprobe found")}
	}
	return nil
}
