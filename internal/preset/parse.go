package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when a preset omits a field.
const (
	DefaultName         = "Unknown"
	DefaultEncoder      = "x264"
	DefaultQuality      = 22
	DefaultSpeed        = "medium"
	DefaultProfile      = "high"
	DefaultLevel        = "4.0"
	DefaultWidth        = 1920
	DefaultHeight       = 1080
	DefaultFPSMode      = FrameratePeak
	DefaultColorRange   = "limited"
	DefaultAudio        = "av_aac"
	DefaultAudioKbps    = 160
	DefaultMixdown      = "stereo"
	DefaultFileFormat   = "av_mp4"
	DefaultChapters     = true
	DefaultOptimize     = false
	DefaultBurnBehavior = "first"
)

// Bounds for shape validation.
const (
	maxQuality   = 63
	maxAudioKbps = 1536
	maxDimension = 16384
)

// ParseError reports a preset that is not usable.
type ParseError struct {
	Path  string
	Field string // JSON path of the offending field, empty for document errors
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("preset")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Field != "" {
		b.WriteString(": " + e.Field)
	}
	b.WriteString(": " + e.Msg)
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and parses a preset file.
func Load(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, &ParseError{Path: path, Msg: "read file", Err: err}
	}
	p, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return Preset{}, err
	}
	p.Source = path
	return p, nil
}

// Parse parses a HandBrake preset export and returns its first preset.
// Folders are descended into.
func Parse(data []byte) (Preset, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Preset{}, &ParseError{Msg: "invalid JSON", Err: err}
	}
	raw, ok := doc["PresetList"]
	if !ok {
		return Preset{}, &ParseError{Field: "PresetList", Msg: "missing"}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return Preset{}, &ParseError{Field: "PresetList", Msg: "not an array"}
	}
	f, path, err := firstPreset(list, "PresetList")
	if err != nil {
		return Preset{}, err
	}
	return fromFields(f, path)
}

func firstPreset(list []json.RawMessage, path string) (fields, string, error) {
	if len(list) == 0 {
		return nil, "", &ParseError{Field: path, Msg: "empty"}
	}
	path += "[0]"
	f, err := asObject(list[0], path)
	if err != nil {
		return nil, "", err
	}
	folder, err := f.boolean(path, "Folder", false)
	if err != nil {
		return nil, "", err
	}
	if !folder {
		return f, path, nil
	}
	children, ok := f["ChildrenArray"]
	if !ok {
		return nil, "", &ParseError{Field: path + ".ChildrenArray", Msg: "missing"}
	}
	var sub []json.RawMessage
	if err := json.Unmarshal(children, &sub); err != nil {
		return nil, "", &ParseError{Field: path + ".ChildrenArray", Msg: "not an array"}
	}
	return firstPreset(sub, path+".ChildrenArray")
}

func fromFields(f fields, path string) (Preset, error) {
	var (
		p   Preset
		err error
	)
	// Collect the first error; every getter is a no-op after a failure.
	str := func(key, def string) string {
		if err != nil {
			return def
		}
		var s string
		s, err = f.str(path, key, def)
		return s
	}
	num := func(key string, def float64) float64 {
		if err != nil {
			return def
		}
		var n float64
		n, err = f.num(path, key, def)
		return n
	}
	boolean := func(key string, def bool) bool {
		if err != nil {
			return def
		}
		var b bool
		b, err = f.boolean(path, key, def)
		return b
	}

	p.Name = str("PresetName", DefaultName)
	p.Description = str("PresetDescription", "")

	p.Video = parseVideoCodec(str("VideoEncoder", DefaultEncoder))

	qualityType := num("VideoQualityType", 2)
	if qualityType == 1 {
		p.Quality = VideoQuality{
			Mode:        AverageBitrate,
			BitrateKbps: int(num("VideoAvgBitrate", 0)),
			TwoPass:     boolean("VideoTwoPass", false),
		}
		if err == nil && p.Quality.BitrateKbps <= 0 {
			return Preset{}, &ParseError{Field: path + ".VideoAvgBitrate", Msg: "must be positive in average bitrate mode"}
		}
	} else {
		q := num("VideoQualitySlider", DefaultQuality)
		if err == nil && (q < 0 || q > maxQuality) {
			return Preset{}, &ParseError{Field: path + ".VideoQualitySlider", Msg: fmt.Sprintf("%g out of range 0..%d", q, maxQuality)}
		}
		p.Quality = VideoQuality{Mode: ConstantQuality, Value: q}
	}

	p.Speed = EncoderPreset{Name: str("VideoPreset", DefaultSpeed)}
	p.Profile = EncoderProfile{Name: str("VideoProfile", DefaultProfile)}
	p.Level = EncoderLevel{Name: str("VideoLevel", DefaultLevel)}

	rate := ""
	if err == nil {
		rate, err = f.strOrNum(path, "VideoFramerate", "")
	}
	if rate == "auto" {
		rate = ""
	}
	p.Framerate = Framerate{Rate: rate, Mode: FramerateMode(strings.ToLower(str("VideoFramerateMode", string(DefaultFPSMode))))}
	p.ColorRange = ColorRange{Range: strings.ToLower(str("VideoColorRange", DefaultColorRange))}

	w := num("PictureWidth", DefaultWidth)
	h := num("PictureHeight", DefaultHeight)
	if err == nil {
		for key, v := range map[string]float64{"PictureWidth": w, "PictureHeight": h} {
			if v < 0 || v > maxDimension {
				return Preset{}, &ParseError{Field: path + "." + key, Msg: fmt.Sprintf("%g out of range 0..%d", v, maxDimension)}
			}
		}
	}
	p.Scale = Scale{Width: int(w), Height: int(h)}

	p.Deinterlace = Deinterlace{
		Filter: strings.ToLower(str("PictureDeinterlaceFilter", "off")),
		Preset: strings.ToLower(str("PictureDeinterlacePreset", "default")),
	}
	p.Denoise = Denoise{
		Filter: strings.ToLower(str("PictureDenoiseFilter", "off")),
		Preset: strings.ToLower(str("PictureDenoisePreset", "medium")),
	}
	p.Deblock = Deblock{Preset: strings.ToLower(str("PictureDeblockPreset", "off"))}

	if err != nil {
		return Preset{}, err
	}
	audio, aerr := firstAudio(f, path)
	if aerr != nil {
		return Preset{}, aerr
	}
	apath := path + ".AudioList[0]"
	aenc, e := audio.str(apath, "AudioEncoder", DefaultAudio)
	if e != nil {
		return Preset{}, e
	}
	kbps, e := audio.num(apath, "AudioBitrate", DefaultAudioKbps)
	if e != nil {
		return Preset{}, e
	}
	if kbps < 0 || kbps > maxAudioKbps {
		return Preset{}, &ParseError{Field: apath + ".AudioBitrate", Msg: fmt.Sprintf("%g out of range 0..%d", kbps, maxAudioKbps)}
	}
	mix, e := audio.str(apath, "AudioMixdown", DefaultMixdown)
	if e != nil {
		return Preset{}, e
	}
	p.Audio = parseAudioCodec(aenc)
	p.Bitrate = AudioBitrate{Kbps: int(kbps)}
	p.Mixdown = Mixdown{Layout: strings.ToLower(mix)}

	format := strings.ToLower(str("FileFormat", DefaultFileFormat))
	var optimize bool
	if _, ok := f["Mp4HttpOptimize"]; ok {
		optimize = boolean("Mp4HttpOptimize", DefaultOptimize)
	} else {
		optimize = boolean("Optimize", DefaultOptimize)
	}
	p.Container = Container{Format: strings.TrimPrefix(format, "av_"), Optimize: optimize}
	p.Chapters = Chapters{Enabled: boolean("ChapterMarkers", DefaultChapters)}

	burn := strings.ToLower(str("SubtitleBurnBehavior", DefaultBurnBehavior))
	selection := strings.ToLower(str("SubtitleTrackSelectionBehavior", "first"))
	switch {
	case burn != "none":
		p.Subtitles = Subtitles{Mode: SubtitlesBurn}
	case selection != "none":
		p.Subtitles = Subtitles{Mode: SubtitlesSoft}
	default:
		p.Subtitles = Subtitles{Mode: SubtitlesDiscard}
	}

	if err != nil {
		return Preset{}, err
	}
	return p, nil
}

func firstAudio(f fields, path string) (fields, error) {
	raw, ok := f["AudioList"]
	if !ok || isNull(raw) {
		return fields{}, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &ParseError{Field: path + ".AudioList", Msg: "not an array"}
	}
	if len(list) == 0 {
		return fields{}, nil
	}
	return asObject(list[0], path+".AudioList[0]")
}

// parseVideoCodec normalizes HandBrake encoder names ("x265_10bit",
// "nvenc_h264", "svt_av1") and common spellings ("H.265", "HEVC").
func parseVideoCodec(raw string) VideoCodec {
	vc := VideoCodec{Family: FamilyOther, Depth: 8, Raw: raw}
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(".", "", "-", "", " ", "").Replace(s)

	switch {
	case strings.HasSuffix(s, "_10bit"):
		vc.Depth, s = 10, strings.TrimSuffix(s, "_10bit")
	case strings.HasSuffix(s, "_12bit"):
		vc.Depth, s = 12, strings.TrimSuffix(s, "_12bit")
	}
	for _, hw := range []string{"nvenc", "qsv", "vce", "vt", "mf"} {
		if strings.HasPrefix(s, hw+"_") {
			vc.Hardware, s = hw, strings.TrimPrefix(s, hw+"_")
			break
		}
	}
	switch s {
	case "x264", "h264", "avc", "libx264":
		vc.Family = FamilyH264
	case "x265", "h265", "hevc", "libx265":
		vc.Family = FamilyH265
	case "svt_av1", "svtav1", "av1", "libsvtav1":
		vc.Family = FamilyAV1
	case "vp9", "libvpxvp9":
		vc.Family = FamilyVP9
	case "vp8", "libvpx":
		vc.Family = FamilyVP8
	case "mpeg4":
		vc.Family = FamilyMPEG4
	case "mpeg2", "mpeg2video":
		vc.Family = FamilyMPEG2
	case "theora", "libtheora":
		vc.Family = FamilyTheora
	default:
		vc.Depth, vc.Hardware = 8, ""
	}
	return vc
}

func parseAudioCodec(raw string) AudioCodec {
	s := strings.ToLower(strings.TrimSpace(raw))
	ac := AudioCodec{Family: AudioOther, Raw: raw}
	switch {
	case s == "copy" || strings.HasPrefix(s, "copy:"):
		ac.Family = AudioCopy
	case s == "av_aac" || s == "ca_aac" || s == "aac":
		ac.Family = AudioAAC
	case strings.HasPrefix(s, "fdk_"):
		ac.Family = AudioFDKAAC
	case s == "ac3":
		ac.Family = AudioAC3
	case s == "eac3":
		ac.Family = AudioEAC3
	case s == "opus" || s == "libopus":
		ac.Family = AudioOpus
	case s == "mp3" || s == "libmp3lame":
		ac.Family = AudioMP3
	case strings.HasPrefix(s, "flac"):
		ac.Family = AudioFLAC
	case s == "vorbis" || s == "libvorbis":
		ac.Family = AudioVorbis
	}
	return ac
}

type fields map[string]json.RawMessage

func asObject(raw json.RawMessage, path string) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, &ParseError{Field: path, Msg: "not an object"}
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (f fields) str(path, key, def string) (string, error) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ParseError{Field: path + "." + key, Msg: "expected a string"}
	}
	return s, nil
}

func (f fields) num(path, key string, def float64) (float64, error) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return def, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &ParseError{Field: path + "." + key, Msg: "expected a number"}
	}
	return n, nil
}

func (f fields) boolean(path, key string, def bool) (bool, error) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return def, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, &ParseError{Field: path + "." + key, Msg: "expected a boolean"}
	}
	return b, nil
}

// strOrNum reads fields HandBrake writes either as "23.976" or 23.976.
func (f fields) strOrNum(path, key, def string) (string, error) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", &ParseError{Field: path + "." + key, Msg: "expected a string or number"}
}
