package translate

import "reencoder/internal/preset"

// HandBrake renders a HandBrakeCLI command that imports the preset file
// itself. Encoding settings travel in the file, so only the subtitle mode
// changes the arguments; every other feature is accepted as is.
type HandBrake struct {
	name      string
	source    string
	subtitles preset.Subtitles
}

var _ preset.Visitor = (*HandBrake)(nil)

func (*HandBrake) VisitVideoCodec(preset.VideoCodec)         {}
func (*HandBrake) VisitVideoQuality(preset.VideoQuality)     {}
func (*HandBrake) VisitEncoderPreset(preset.EncoderPreset)   {}
func (*HandBrake) VisitEncoderProfile(preset.EncoderProfile) {}
func (*HandBrake) VisitEncoderLevel(preset.EncoderLevel)     {}
func (*HandBrake) VisitFramerate(preset.Framerate)           {}
func (*HandBrake) VisitColorRange(preset.ColorRange)         {}
func (*HandBrake) VisitScale(preset.Scale)                   {}
func (*HandBrake) VisitDeinterlace(preset.Deinterlace)       {}
func (*HandBrake) VisitDenoise(preset.Denoise)               {}
func (*HandBrake) VisitDeblock(preset.Deblock)               {}
func (*HandBrake) VisitAudioCodec(preset.AudioCodec)         {}
func (*HandBrake) VisitAudioBitrate(preset.AudioBitrate)     {}
func (*HandBrake) VisitMixdown(preset.Mixdown)               {}
func (*HandBrake) VisitContainer(preset.Container)           {}
func (*HandBrake) VisitChapters(preset.Chapters)             {}
func (h *HandBrake) VisitSubtitles(v preset.Subtitles)       { h.subtitles = v }

// Notes is always empty: HandBrake applies the whole preset.
func (*HandBrake) Notes() []string { return nil }

// Template renders the HandBrakeCLI command.
func (h *HandBrake) Template() (Template, error) {
	if h.source == "" {
		return Template{}, &Error{Msg: "HandBrake backend needs a preset file"}
	}
	args := []string{
		"HandBrakeCLI",
		"--preset-import-file", h.source,
		"--preset", h.name,
		"-i", Input.String(),
		"-o", Output.String(),
		"--audio", AudioTrack.String(),
	}
	switch h.subtitles.Mode {
	case preset.SubtitlesBurn:
		args = append(args, "--subtitle-burned", "--subtitle", SubtitleTrack.String())
	case preset.SubtitlesSoft:
		args = append(args, "--subtitle", SubtitleTrack.String())
	default:
		args = append(args, "--subtitle", "none")
	}
	return FromArgs(args), nil
}
