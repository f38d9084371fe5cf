// Package preset reads HandBrake JSON preset exports into a normalized,
// engine-neutral Preset.
package preset

// Preset is a normalized encoder configuration. Values are immutable once parsed.
type Preset struct {
	Name        string
	Description string
	Source      string // file the preset was read from, if any

	Video       VideoCodec
	Quality     VideoQuality
	Speed       EncoderPreset
	Profile     EncoderProfile
	Level       EncoderLevel
	Framerate   Framerate
	ColorRange  ColorRange
	Scale       Scale
	Deinterlace Deinterlace
	Denoise     Denoise
	Deblock     Deblock
	Audio       AudioCodec
	Bitrate     AudioBitrate
	Mixdown     Mixdown
	Container   Container
	Chapters    Chapters
	Subtitles   Subtitles
}

// Features lists every setting in canonical visiting order.
func (p Preset) Features() []Feature {
	return []Feature{
		p.Video,
		p.Quality,
		p.Speed,
		p.Profile,
		p.Level,
		p.Framerate,
		p.ColorRange,
		p.Scale,
		p.Deinterlace,
		p.Denoise,
		p.Deblock,
		p.Audio,
		p.Bitrate,
		p.Mixdown,
		p.Container,
		p.Chapters,
		p.Subtitles,
	}
}

// Walk visits every feature of p in order.
func (p Preset) Walk(v Visitor) {
	for _, f := range p.Features() {
		f.Accept(v)
	}
}
