package translate

import (
	"strconv"

	"reencoder/internal/tracks"
)

// Values are the per-file substitutions. An empty track or subtitle field
// means nothing was selected.
type Values struct {
	Input         string
	Output        string
	AudioTrack    string
	SubtitleTrack string
	SubtitleFile  string

	// Program replaces the template's first word when set, typically with
	// the resolved path of the engine binary.
	Program string
}

func (v Values) lookup(p Placeholder) (string, bool) {
	var s string
	switch p {
	case Input:
		s = v.Input
	case Output:
		s = v.Output
	case AudioTrack:
		s = v.AudioTrack
	case SubtitleTrack:
		s = v.SubtitleTrack
	case SubtitleFile:
		s = v.SubtitleFile
	}
	return s, s != ""
}

// NewValues fills track values the way e numbers streams: ffmpeg maps by
// container stream index, HandBrake counts tracks of a kind from 1.
func NewValues(e Engine, input, output string, d tracks.Decision) Values {
	return Values{
		Input:         input,
		Output:        output,
		AudioTrack:    trackValue(e, d.Audio),
		SubtitleTrack: trackValue(e, d.Subtitle),
	}
}

func trackValue(e Engine, s tracks.Selection) string {
	if s.Track == nil {
		return ""
	}
	if e == EngineHandBrake {
		return strconv.Itoa(s.Track.KindIndex + 1)
	}
	return strconv.Itoa(s.Track.Index)
}
