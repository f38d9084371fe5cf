package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"reencoder/internal/encoder"
	"reencoder/internal/model"
	"reencoder/internal/tracks"
	"reencoder/internal/translate"
)

// Plan is the resolved work for one file.
type Plan struct {
	Decision tracks.Decision
	Engine   translate.Engine
	Argv     []string
	Command  string // Argv rendered for display

	// WritesOutput is set when the command names {OUTPUT}; the file is
	// then awaited after a successful exit.
	WritesOutput bool

	// Subtitle is extracted to SubtitleFile before encoding when the
	// command burns subtitles from a file.
	Subtitle     *tracks.Track
	SubtitleFile string
}

func needsSubtitleFile(t translate.Template) bool {
	return slices.Contains(t.Uses(), translate.SubtitleFile)
}

// analyze inspects f and selects its tracks.
func (s *Service) analyze(ctx context.Context, f model.File, log *zap.Logger) (tracks.Analysis, tracks.Decision, error) {
	a, err := s.inspector.Inspect(ctx, f.Source)
	if err != nil {
		return tracks.Analysis{}, tracks.Decision{}, err
	}
	d := tracks.Decide(a, s.rules.Audio, s.rules.Subtitle)
	for _, w := range d.Warnings {
		log.Warn(w)
	}
	log.Debug("tracks selected",
		zap.Int("tracks", len(a.Tracks)),
		zap.Duration("duration", a.Duration),
		zap.String("audio", selectionField(d.Audio)),
		zap.String("subtitle", selectionField(d.Subtitle)),
	)
	return a, d, nil
}

func selectionField(sel tracks.Selection) string {
	if sel.Track == nil {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", sel.Track, sel.Rule)
}

// plan resolves the command for f from the batch template.
func (s *Service) plan(r *run, f model.File, a tracks.Analysis, d tracks.Decision) (Plan, error) {
	p := Plan{
		Decision:     d,
		Engine:       s.engine,
		WritesOutput: slices.Contains(r.tmpl.Uses(), translate.Output),
	}
	v := translate.NewValues(s.engine, f.Source, f.Output, d)
	v.Program = s.program(r.tmpl)
	if d.Subtitle.Track != nil && needsSubtitleFile(r.tmpl) {
		t := *d.Subtitle.Track
		p.Subtitle = &t
		p.SubtitleFile = encoder.SubtitlePath(r.workdir, t)
		v.SubtitleFile = p.SubtitleFile
	}
	argv, err := r.tmpl.Instantiate(v)
	if err != nil {
		return Plan{}, err
	}
	p.Argv = argv
	p.Command = translate.Display(argv)
	return p, nil
}

// program returns the resolved binary for the template's engine. A
// template naming its program by path keeps it.
func (s *Service) program(t translate.Template) string {
	args := t.Args()
	if len(args) == 0 || filepath.Base(args[0]) != args[0] {
		return ""
	}
	if s.engine == translate.EngineHandBrake {
		return s.tools.HandBrake
	}
	return s.tools.FFmpeg
}

func (s *Service) extractSubtitle(ctx context.Context, f model.File, p Plan, log *zap.Logger) error {
	ffmpeg := s.tools.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	log.Debug("extracting subtitle", zap.Int("track", p.Subtitle.Index), zap.String("dest", p.SubtitleFile))
	if err := encoder.ExtractSubtitle(ctx, s.runner, ffmpeg, f.Source, *p.Subtitle, p.SubtitleFile, log); err != nil {
		return fmt.Errorf("extract subtitle track %d: %w", p.Subtitle.Index, err)
	}
	return nil
}
