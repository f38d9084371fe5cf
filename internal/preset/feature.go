package preset

// Feature is one translatable setting of a preset. Every variant is a
// distinct type with a matching Visitor method, so a backend that does not
// handle a new variant fails to compile.
type Feature interface {
	Accept(v Visitor)
}

// Visitor receives each Feature of a preset in canonical order: video
// codec first, so later video settings can depend on it.
type Visitor interface {
	VisitVideoCodec(VideoCodec)
	VisitVideoQuality(VideoQuality)
	VisitEncoderPreset(EncoderPreset)
	VisitEncoderProfile(EncoderProfile)
	VisitEncoderLevel(EncoderLevel)
	VisitFramerate(Framerate)
	VisitColorRange(ColorRange)
	VisitScale(Scale)
	VisitDeinterlace(Deinterlace)
	VisitDenoise(Denoise)
	VisitDeblock(Deblock)
	VisitAudioCodec(AudioCodec)
	VisitAudioBitrate(AudioBitrate)
	VisitMixdown(Mixdown)
	VisitContainer(Container)
	VisitChapters(Chapters)
	VisitSubtitles(Subtitles)
}

// CodecFamily groups video encoders by bitstream format.
type CodecFamily string

const (
	FamilyH264   CodecFamily = "h264"
	FamilyH265   CodecFamily = "h265"
	FamilyAV1    CodecFamily = "av1"
	FamilyVP9    CodecFamily = "vp9"
	FamilyVP8    CodecFamily = "vp8"
	FamilyMPEG4  CodecFamily = "mpeg4"
	FamilyMPEG2  CodecFamily = "mpeg2"
	FamilyTheora CodecFamily = "theora"
	FamilyOther  CodecFamily = "other" // unrecognised; Raw is passed through
)

// VideoCodec is the video encoder. Hardware is "", "nvenc", "qsv", "vce" or "vt".
type VideoCodec struct {
	Family   CodecFamily
	Depth    int // bits per sample: 8, 10 or 12
	Hardware string
	Raw      string // value as written in the preset
}

// QualityMode selects between constant quality and average bitrate.
type QualityMode int

const (
	ConstantQuality QualityMode = iota
	AverageBitrate
)

// VideoQuality is the rate control setting.
type VideoQuality struct {
	Mode        QualityMode
	Value       float64 // constant quality (RF/CRF) value
	BitrateKbps int
	TwoPass     bool
}

// EncoderPreset is the encoder speed preset ("medium", "slow", "6" for SVT-AV1).
type EncoderPreset struct{ Name string }

// EncoderProfile is the codec profile; "" or "auto" means encoder default.
type EncoderProfile struct{ Name string }

// EncoderLevel is the codec level; "" or "auto" means encoder default.
type EncoderLevel struct{ Name string }

// FramerateMode mirrors HandBrake's vfr/cfr/pfr choice.
type FramerateMode string

const (
	FramerateVariable FramerateMode = "vfr"
	FramerateConstant FramerateMode = "cfr"
	FrameratePeak     FramerateMode = "pfr"
)

// Framerate is the output frame rate. Rate "" keeps the source rate.
type Framerate struct {
	Rate string
	Mode FramerateMode
}

// ColorRange is "limited", "full" or "" (untouched).
type ColorRange struct{ Range string }

// Scale bounds the output picture, preserving aspect ratio. Zero means unbounded.
type Scale struct {
	Width  int
	Height int
}

// Deinterlace filter: Filter is "off", "yadif", "bwdif" or "decomb".
type Deinterlace struct {
	Filter string
	Preset string
}

// Denoise filter: Filter is "off", "hqdn3d" or "nlmeans".
type Denoise struct {
	Filter string
	Preset string // ultralight, light, medium, strong
}

// Deblock filter strength; "off" or "" disables it.
type Deblock struct{ Preset string }

// AudioFamily groups audio encoders.
type AudioFamily string

const (
	AudioAAC    AudioFamily = "aac"
	AudioFDKAAC AudioFamily = "fdk_aac"
	AudioAC3    AudioFamily = "ac3"
	AudioEAC3   AudioFamily = "eac3"
	AudioOpus   AudioFamily = "opus"
	AudioMP3    AudioFamily = "mp3"
	AudioFLAC   AudioFamily = "flac"
	AudioVorbis AudioFamily = "vorbis"
	AudioCopy   AudioFamily = "copy"
	AudioOther  AudioFamily = "other"
)

// AudioCodec is the audio encoder.
type AudioCodec struct {
	Family AudioFamily
	Raw    string
}

// AudioBitrate in kbit/s; zero means encoder default.
type AudioBitrate struct{ Kbps int }

// Mixdown is the channel layout: "mono", "stereo", "dpl2", "5point1",
// "6point1", "7point1" or "none" (keep source layout).
type Mixdown struct{ Layout string }

// Container is the output file format.
type Container struct {
	Format   string // mp4, mkv or webm
	Optimize bool   // move the index to the front for streaming (mp4 only)
}

// Extension returns the output file extension including the dot.
func (c Container) Extension() string {
	switch c.Format {
	case "mkv":
		return ".mkv"
	case "webm":
		return ".webm"
	default:
		return ".mp4"
	}
}

// Chapters controls copying chapter markers.
type Chapters struct{ Enabled bool }

// SubtitleMode is how the selected subtitle track is handled.
type SubtitleMode string

const (
	SubtitlesBurn    SubtitleMode = "burn"
	SubtitlesSoft    SubtitleMode = "soft"
	SubtitlesDiscard SubtitleMode = "discard"
)

// Subtitles carries the subtitle handling mode.
type Subtitles struct{ Mode SubtitleMode }

func (f VideoCodec) Accept(v Visitor)     { v.VisitVideoCodec(f) }
func (f VideoQuality) Accept(v Visitor)   { v.VisitVideoQuality(f) }
func (f EncoderPreset) Accept(v Visitor)  { v.VisitEncoderPreset(f) }
func (f EncoderProfile) Accept(v Visitor) { v.VisitEncoderProfile(f) }
func (f EncoderLevel) Accept(v Visitor)   { v.VisitEncoderLevel(f) }
func (f Framerate) Accept(v Visitor)      { v.VisitFramerate(f) }
func (f ColorRange) Accept(v Visitor)     { v.VisitColorRange(f) }
func (f Scale) Accept(v Visitor)          { v.VisitScale(f) }
func (f Deinterlace) Accept(v Visitor)    { v.VisitDeinterlace(f) }
func (f Denoise) Accept(v Visitor)        { v.VisitDenoise(f) }
func (f Deblock) Accept(v Visitor)        { v.VisitDeblock(f) }
func (f AudioCodec) Accept(v Visitor)     { v.VisitAudioCodec(f) }
func (f AudioBitrate) Accept(v Visitor)   { v.VisitAudioBitrate(f) }
func (f Mixdown) Accept(v Visitor)        { v.VisitMixdown(f) }
func (f Container) Accept(v Visitor)      { v.VisitContainer(f) }
func (f Chapters) Accept(v Visitor)       { v.VisitChapters(f) }
func (f Subtitles) Accept(v Visitor)      { v.VisitSubtitles(f) }
