package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reencoder/internal/config"
	"reencoder/internal/preset"
	"reencoder/internal/templates"
	"reencoder/internal/translate"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Manage saved command templates",
	}
	cmd.AddCommand(
		newTemplateSaveCmd(),
		newTemplateShowCmd(),
		newTemplateListCmd(),
		newTemplateDeleteCmd(),
		newTemplateExportCmd(),
		newTemplateImportCmd(),
	)
	return cmd
}

func newTemplateSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "save NAME",
		Short:         "Save a command template, given directly or generated from a preset",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presetPath, _ := cmd.Flags().GetString("preset")
			command, _ := cmd.Flags().GetString("command")
			desc, _ := cmd.Flags().GetString("description")

			switch {
			case presetPath != "" && command != "":
				return &ExitError{Code: ExitCLIError, Err: errors.New("use either --preset or --command, not both")}
			case presetPath != "":
				if err := config.BindRunFlags(viper.GetViper(), cmd.Flags()); err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				settings, err := config.Load()
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				p, err := preset.Load(presetPath)
				if err != nil {
					return &ExitError{Code: ExitPresetError, Err: err}
				}
				tmpl, _, err := translate.Generate(p, settings.Output.Backend)
				if err != nil {
					return &ExitError{Code: ExitPresetError, Err: err}
				}
				command = tmpl.String()
				if desc == "" {
					desc = fmt.Sprintf("from preset %q (%s)", p.Name, settings.Output.Backend)
				}
			case command == "":
				return &ExitError{Code: ExitCLIError, Err: errors.New("pass --preset FILE or --command STRING")}
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()
			if err := store.Save(cmd.Context(), args[0], command, desc); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved template %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("preset", "", "HandBrake preset JSON file to generate the command from")
	cmd.Flags().String("command", "", "Command template with {INPUT}, {OUTPUT} and track placeholders")
	cmd.Flags().String("description", "", "Free-form description")
	cmd.Flags().String("backend", "ffmpeg", "Encoder for --preset: ffmpeg, handbrake")
	return cmd
}

func newTemplateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "show NAME",
		Short:         "Print a saved template",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()
			e, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return templateError(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", e.Name)
			if e.Description != "" {
				fmt.Fprintf(w, "%s\n", e.Description)
			}
			fmt.Fprintf(w, "  %s\n", e.Command)
			if t, err := e.Template(); err == nil {
				uses := make([]string, 0)
				for _, p := range t.Uses() {
					uses = append(uses, p.String())
				}
				fmt.Fprintf(w, "engine: %s  placeholders: %s\n", t.Engine(), strings.Join(uses, " "))
				if unknown := t.Unknown(); len(unknown) > 0 {
					fmt.Fprintf(w, "unknown placeholders (kept as-is): %s\n", strings.Join(unknown, " "))
				}
			}
			fmt.Fprintf(w, "updated %s\n", humanize.Time(e.UpdatedAt))
			return nil
		},
	}
}

func newTemplateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Aliases:       []string{"ls"},
		Short:         "List saved templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()
			entries, err := store.List(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates saved.")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Name, truncateCell(e.Description, 40), truncateCell(e.Command, 60), humanize.Time(e.UpdatedAt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Description", "Command", "Updated"}, rows, nil))
			return nil
		},
	}
}

func newTemplateDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "delete NAME",
		Aliases:       []string{"rm"},
		Short:         "Delete a saved template",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return templateError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %q\n", args[0])
			return nil
		},
	}
}

func newTemplateExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "export FILE",
		Short:         "Write every template to a TOML file (- for stdout)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				defer f.Close()
				w = f
			}
			n, err := store.Export(cmd.Context(), w)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if args[0] != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d template(s) to %s\n", n, args[0])
			}
			return nil
		},
	}
}

func newTemplateImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "import FILE",
		Short:         "Import templates from a TOML file written by export",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")
			f, err := os.Open(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer f.Close()

			store, err := openStore(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()

			res, err := store.Import(cmd.Context(), f, overwrite)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %d template(s)", len(res.Imported))
			if len(res.Skipped) > 0 {
				fmt.Fprintf(w, ", skipped %d existing (%s)", len(res.Skipped), strings.Join(res.Skipped, ", "))
			}
			fmt.Fprintln(w)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace templates that already exist")
	return cmd
}

// templateError adds a hint for unknown names.
func templateError(err error) error {
	if errors.Is(err, templates.ErrNotFound) {
		err = fmt.Errorf("%w (see `reencoder template list`)", err)
	}
	return &ExitError{Code: ExitCLIError, Err: err}
}

func truncateCell(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
