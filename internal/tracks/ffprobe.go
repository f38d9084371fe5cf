package tracks

import (
	"encoding/json"
	"strconv"
	"strings"
)

type ffprobeOutput struct {
	Streams *[]ffprobeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type ffprobeStream struct {
	Index       int               `json:"index"`
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

// FFprobeArgs are the arguments ParseFFprobe expects ffprobe to be run with.
var FFprobeArgs = []string{"-v", "error", "-print_format", "json", "-show_streams", "-show_format"}

// ParseFFprobe parses `ffprobe -print_format json -show_streams -show_format` output.
func ParseFFprobe(out []byte) (Analysis, error) {
	const source = "ffprobe"
	var doc ffprobeOutput
	if err := json.Unmarshal(out, &doc); err != nil {
		return Analysis{}, &ParseError{Source: source, Msg: "decode json", Err: err}
	}
	if doc.Streams == nil || len(*doc.Streams) == 0 {
		return Analysis{}, &ParseError{Source: source, Msg: "no streams found"}
	}

	var a Analysis
	if sec, err := strconv.ParseFloat(doc.Format.Duration, 64); err == nil && sec > 0 {
		a.Duration = seconds(sec)
	}
	for _, s := range *doc.Streams {
		var kind Kind
		switch s.CodecType {
		case "video":
			// Cover art is carried as a single-frame video stream.
			if s.Disposition["attached_pic"] == 1 {
				continue
			}
			kind = Video
		case "audio":
			kind = Audio
		case "subtitle":
			kind = Subtitle
		default:
			continue
		}
		a.Tracks = append(a.Tracks, Track{
			Index:    s.Index,
			Kind:     kind,
			Language: tag(s.Tags, "language"),
			Name:     tag(s.Tags, "title"),
			Codec:    s.CodecName,
			Default:  s.Disposition["default"] == 1,
			Forced:   s.Disposition["forced"] == 1,
		})
	}
	if err := assignKindIndexes(source, a.Tracks); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// tag reads a stream tag; ffprobe preserves the container's key case.
func tag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
