package translate

import (
	"fmt"
	"strconv"
	"strings"

	"reencoder/internal/preset"
)

// FFmpeg maps preset features to ffmpeg arguments. It records each feature
// as it is visited and renders the command in Template, since some flags
// depend on more than one feature (the quality flag depends on the encoder).
type FFmpeg struct {
	video       preset.VideoCodec
	quality     preset.VideoQuality
	speed       preset.EncoderPreset
	profile     preset.EncoderProfile
	level       preset.EncoderLevel
	framerate   preset.Framerate
	colorRange  preset.ColorRange
	scale       preset.Scale
	deinterlace preset.Deinterlace
	denoise     preset.Denoise
	deblock     preset.Deblock
	audio       preset.AudioCodec
	bitrate     preset.AudioBitrate
	mixdown     preset.Mixdown
	container   preset.Container
	chapters    preset.Chapters
	subtitles   preset.Subtitles

	notes []string
}

var _ preset.Visitor = (*FFmpeg)(nil)

func (f *FFmpeg) VisitVideoCodec(v preset.VideoCodec)         { f.video = v }
func (f *FFmpeg) VisitVideoQuality(v preset.VideoQuality)     { f.quality = v }
func (f *FFmpeg) VisitEncoderPreset(v preset.EncoderPreset)   { f.speed = v }
func (f *FFmpeg) VisitEncoderProfile(v preset.EncoderProfile) { f.profile = v }
func (f *FFmpeg) VisitEncoderLevel(v preset.EncoderLevel)     { f.level = v }
func (f *FFmpeg) VisitFramerate(v preset.Framerate)           { f.framerate = v }
func (f *FFmpeg) VisitColorRange(v preset.ColorRange)         { f.colorRange = v }
func (f *FFmpeg) VisitScale(v preset.Scale)                   { f.scale = v }
func (f *FFmpeg) VisitDeinterlace(v preset.Deinterlace)       { f.deinterlace = v }
func (f *FFmpeg) VisitDenoise(v preset.Denoise)               { f.denoise = v }
func (f *FFmpeg) VisitDeblock(v preset.Deblock)               { f.deblock = v }
func (f *FFmpeg) VisitAudioCodec(v preset.AudioCodec)         { f.audio = v }
func (f *FFmpeg) VisitAudioBitrate(v preset.AudioBitrate)     { f.bitrate = v }
func (f *FFmpeg) VisitMixdown(v preset.Mixdown)               { f.mixdown = v }
func (f *FFmpeg) VisitContainer(v preset.Container)           { f.container = v }
func (f *FFmpeg) VisitChapters(v preset.Chapters)             { f.chapters = v }
func (f *FFmpeg) VisitSubtitles(v preset.Subtitles)           { f.subtitles = v }

// Notes lists preset settings that ffmpeg cannot express and were dropped.
func (f *FFmpeg) Notes() []string { return f.notes }

func (f *FFmpeg) note(format string, args ...any) {
	f.notes = append(f.notes, fmt.Sprintf(format, args...))
}

// Template renders the visited features as an ffmpeg command.
func (f *FFmpeg) Template() (Template, error) {
	f.notes = nil
	enc := videoEncoder(f.video)

	args := []string{"ffmpeg", "-hide_banner", "-i", Input.String(), "-map", "0:v:0", "-map", "0:" + AudioTrack.String()}
	if f.subtitles.Mode == preset.SubtitlesSoft {
		args = append(args, "-map", "0:"+SubtitleTrack.String())
	}

	args = append(args, "-c:v", enc)
	args = append(args, f.qualityArgs(enc)...)
	args = append(args, f.speedArgs(enc)...)
	if profileApplies(enc) {
		if !isAuto(f.profile.Name) {
			args = append(args, "-profile:v", f.profile.Name)
		}
		if !isAuto(f.level.Name) {
			args = append(args, "-level", f.level.Name)
		}
	}
	args = append(args, f.framerateArgs()...)

	if chain := f.filters(); len(chain) > 0 {
		args = append(args, "-vf", strings.Join(chain, ","))
	}
	switch strings.ToLower(f.colorRange.Range) {
	case "limited", "tv":
		args = append(args, "-color_range", "tv")
	case "full", "pc":
		args = append(args, "-color_range", "pc")
	case "", "auto":
	default:
		f.note("colour range %q not supported, left unchanged", f.colorRange.Range)
	}
	if pf := pixelFormat(f.video); pf != "" {
		args = append(args, "-pix_fmt", pf)
	}
	args = append(args, "-g", strconv.Itoa(keyframeInterval))

	args = append(args, f.audioArgs()...)
	switch f.subtitles.Mode {
	case preset.SubtitlesSoft:
		args = append(args, "-c:s", subtitleCodec(f.container))
	case preset.SubtitlesDiscard:
		args = append(args, "-sn")
	}

	if f.chapters.Enabled {
		args = append(args, "-map_chapters", "0")
	} else {
		args = append(args, "-map_chapters", "-1")
	}
	args = append(args, "-map_metadata", "0")
	if f.container.Format == "mp4" && f.container.Optimize {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-y", Output.String())
	return FromArgs(args), nil
}

// keyframeInterval is the fixed GOP length in frames. HandBrake presets
// carry no keyframe setting ffmpeg can read.
const keyframeInterval = 60

var softwareEncoders = map[preset.CodecFamily]string{
	preset.FamilyH264:   "libx264",
	preset.FamilyH265:   "libx265",
	preset.FamilyAV1:    "libsvtav1",
	preset.FamilyVP9:    "libvpx-vp9",
	preset.FamilyVP8:    "libvpx",
	preset.FamilyMPEG4:  "mpeg4",
	preset.FamilyMPEG2:  "mpeg2video",
	preset.FamilyTheora: "libtheora",
}

var hardwareEncoders = map[string]map[preset.CodecFamily]string{
	"nvenc": {preset.FamilyH264: "h264_nvenc", preset.FamilyH265: "hevc_nvenc", preset.FamilyAV1: "av1_nvenc"},
	"qsv":   {preset.FamilyH264: "h264_qsv", preset.FamilyH265: "hevc_qsv", preset.FamilyAV1: "av1_qsv", preset.FamilyVP9: "vp9_qsv"},
	"vce":   {preset.FamilyH264: "h264_amf", preset.FamilyH265: "hevc_amf", preset.FamilyAV1: "av1_amf"},
	"vt":    {preset.FamilyH264: "h264_videotoolbox", preset.FamilyH265: "hevc_videotoolbox"},
	"mf":    {preset.FamilyH264: "h264_mf", preset.FamilyH265: "hevc_mf"},
}

// videoEncoder picks the ffmpeg encoder. Hardware families without an
// ffmpeg counterpart fall back to the software encoder.
func videoEncoder(v preset.VideoCodec) string {
	if v.Family == preset.FamilyOther {
		return v.Raw
	}
	if hw, ok := hardwareEncoders[v.Hardware]; ok {
		if enc, ok := hw[v.Family]; ok {
			return enc
		}
	}
	return softwareEncoders[v.Family]
}

func (f *FFmpeg) qualityArgs(enc string) []string {
	if f.quality.Mode == preset.AverageBitrate {
		if f.quality.TwoPass {
			f.note("two-pass encoding is not supported, encoding in one pass")
		}
		return []string{"-b:v", strconv.Itoa(f.quality.BitrateKbps) + "k"}
	}
	q := strconv.FormatFloat(f.quality.Value, 'f', -1, 64)
	switch {
	case enc == "libvpx-vp9" || enc == "libvpx":
		return []string{"-crf", q, "-b:v", "0"}
	case strings.HasSuffix(enc, "_nvenc"):
		return []string{"-cq", q}
	case strings.HasSuffix(enc, "_qsv"):
		return []string{"-global_quality", q}
	case strings.HasSuffix(enc, "_amf"):
		return []string{"-rc", "cqp", "-qp_i", q, "-qp_p", q}
	case strings.HasSuffix(enc, "_videotoolbox"), strings.HasSuffix(enc, "_mf"),
		enc == "mpeg4", enc == "mpeg2video", enc == "libtheora":
		return []string{"-q:v", q}
	}
	return []string{"-crf", q}
}

func (f *FFmpeg) speedArgs(enc string) []string {
	name := f.speed.Name
	if isAuto(name) {
		return nil
	}
	switch {
	case enc == "libx264" || enc == "libx265" || strings.HasSuffix(enc, "_nvenc") || strings.HasSuffix(enc, "_qsv"):
		return []string{"-preset", name}
	case enc == "libsvtav1":
		if _, err := strconv.Atoi(name); err == nil {
			return []string{"-preset", name}
		}
		f.note("encoder preset %q is not an SVT-AV1 preset number, using the encoder default", name)
	}
	return nil
}

func profileApplies(enc string) bool {
	switch enc {
	case "libx264", "libx265", "h264_nvenc", "hevc_nvenc":
		return true
	}
	return false
}

func (f *FFmpeg) framerateArgs() []string {
	r := f.framerate.Rate
	if r == "" {
		return nil
	}
	if f.framerate.Mode == preset.FrameratePeak {
		return []string{"-fpsmax", r}
	}
	return []string{"-r", r}
}

func pixelFormat(v preset.VideoCodec) string {
	if v.Family == preset.FamilyOther {
		return ""
	}
	if _, ok := hardwareEncoders[v.Hardware][v.Family]; ok {
		if v.Depth > 8 {
			return "p010le"
		}
		return ""
	}
	switch v.Depth {
	case 10:
		return "yuv420p10le"
	case 12:
		return "yuv420p12le"
	}
	return "yuv420p"
}

// filters returns the -vf chain: scale, deinterlace, denoise, deblock, then
// burned subtitles last so they are drawn at output resolution.
func (f *FFmpeg) filters() []string {
	var chain []string
	if s := scaleFilter(f.scale); s != "" {
		chain = append(chain, s)
	}
	if s, ok := deinterlaceFilter(f.deinterlace); ok {
		if s != "" {
			chain = append(chain, s)
		}
	} else {
		f.note("deinterlace filter %q not supported, skipped", f.deinterlace.Filter)
	}
	if s, ok := denoiseFilter(f.denoise); ok {
		if s != "" {
			chain = append(chain, s)
		}
	} else {
		f.note("denoise filter %q not supported, skipped", f.denoise.Filter)
	}
	if s := deblockFilter(f.deblock); s != "" {
		chain = append(chain, s)
	}
	if f.subtitles.Mode == preset.SubtitlesBurn {
		chain = append(chain, "subtitles="+SubtitleFile.String())
	}
	return chain
}

// scaleFilter fits the picture inside the preset's maximum size, never
// upscaling and keeping dimensions even.
func scaleFilter(s preset.Scale) string {
	switch {
	case s.Width > 0 && s.Height > 0:
		return fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease:force_divisible_by=2", s.Width, s.Height)
	case s.Width > 0:
		return fmt.Sprintf("scale='min(%d,iw)':-2", s.Width)
	case s.Height > 0:
		return fmt.Sprintf("scale=-2:'min(%d,ih)'", s.Height)
	}
	return ""
}

func deinterlaceFilter(d preset.Deinterlace) (string, bool) {
	var name, opts string
	switch d.Filter {
	case "", "off":
		return "", true
	case "yadif", "bwdif":
		name = d.Filter
	case "decomb":
		name, opts = "yadif", "deint=interlaced"
	default:
		return "", false
	}
	switch d.Preset {
	case "bob":
		opts = join(":", "mode=send_field", opts)
	case "skip-spatial":
		if name == "yadif" {
			opts = join(":", "mode=send_frame_nospatial", opts)
		}
	}
	if opts == "" {
		return name, true
	}
	return name + "=" + opts, true
}

var hqdn3dStrength = map[string]string{
	"ultralight": "1:0.7:1:2",
	"light":      "2:1:2:3",
	"medium":     "3:2:2:3",
	"strong":     "7:7:5:5",
}

var nlmeansStrength = map[string]string{
	"ultralight": "1",
	"light":      "2",
	"medium":     "3.5",
	"strong":     "6",
}

func denoiseFilter(d preset.Denoise) (string, bool) {
	switch d.Filter {
	case "", "off":
		return "", true
	case "hqdn3d":
		if s, ok := hqdn3dStrength[d.Preset]; ok {
			return "hqdn3d=" + s, true
		}
		return "hqdn3d", true
	case "nlmeans":
		if s, ok := nlmeansStrength[d.Preset]; ok {
			return "nlmeans=s=" + s, true
		}
		return "nlmeans", true
	}
	return "", false
}

func deblockFilter(d preset.Deblock) string {
	switch d.Preset {
	case "", "off":
		return ""
	case "ultralight", "light", "weak":
		return "deblock=filter=weak"
	case "medium", "strong", "stronger", "verystrong":
		return "deblock=filter=strong"
	}
	return "deblock"
}

var audioEncoders = map[preset.AudioFamily]string{
	preset.AudioAAC:    "aac",
	preset.AudioFDKAAC: "libfdk_aac",
	preset.AudioAC3:    "ac3",
	preset.AudioEAC3:   "eac3",
	preset.AudioOpus:   "libopus",
	preset.AudioMP3:    "libmp3lame",
	preset.AudioFLAC:   "flac",
	preset.AudioVorbis: "libvorbis",
	preset.AudioCopy:   "copy",
}

var mixdownChannels = map[string]string{
	"mono":    "1",
	"stereo":  "2",
	"dpl1":    "2",
	"dpl2":    "2",
	"5point1": "6",
	"6point1": "7",
	"7point1": "8",
}

func (f *FFmpeg) audioArgs() []string {
	enc, ok := audioEncoders[f.audio.Family]
	if !ok {
		enc = f.audio.Raw
	}
	args := []string{"-c:a", enc}
	if f.audio.Family == preset.AudioCopy {
		return args
	}
	if f.bitrate.Kbps > 0 && f.audio.Family != preset.AudioFLAC {
		args = append(args, "-b:a", strconv.Itoa(f.bitrate.Kbps)+"k")
	}
	switch layout := f.mixdown.Layout; layout {
	case "", "none":
	default:
		if ch, ok := mixdownChannels[layout]; ok {
			args = append(args, "-ac", ch)
		} else {
			f.note("mixdown %q not supported, keeping source channels", layout)
		}
	}
	return args
}

func subtitleCodec(c preset.Container) string {
	switch c.Format {
	case "mp4":
		return "mov_text"
	case "webm":
		return "webvtt"
	}
	return "copy"
}

func isAuto(s string) bool {
	return s == "" || strings.EqualFold(s, "auto") || strings.EqualFold(s, "none")
}

func join(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
