// Package tracks turns container inspection output into track lists and
// picks the audio and subtitle tracks to encode.
package tracks

import (
	"fmt"
	"time"
)

// Kind is the media type of a track.
type Kind string

const (
	Video    Kind = "video"
	Audio    Kind = "audio"
	Subtitle Kind = "subtitle"
)

// Track is one stream of a source file. Index is the container-level stream
// index (the mkvmerge track ID for Matroska files) and is unique per file.
type Track struct {
	Index     int
	KindIndex int // position among tracks of the same kind, from 0
	Kind      Kind
	Language  string
	Name      string
	Codec     string
	Default   bool
	Forced    bool
}

func (t Track) String() string {
	lang := t.Language
	if lang == "" {
		lang = "und"
	}
	if t.Name == "" {
		return fmt.Sprintf("#%d %s [%s] %s", t.Index, t.Kind, lang, t.Codec)
	}
	return fmt.Sprintf("#%d %s [%s] %q %s", t.Index, t.Kind, lang, t.Name, t.Codec)
}

// Analysis is the parsed inspection result for one file.
type Analysis struct {
	Tracks   []Track
	Duration time.Duration // zero when the container does not say
}

// OfKind returns the tracks of kind k in declaration order.
func (a Analysis) OfKind(k Kind) []Track {
	var out []Track
	for _, t := range a.Tracks {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// ByIndex looks a track up by its stream index.
func (a Analysis) ByIndex(i int) (Track, bool) {
	for _, t := range a.Tracks {
		if t.Index == i {
			return t, true
		}
	}
	return Track{}, false
}

// ParseError reports inspection output that could not be turned into tracks.
type ParseError struct {
	Source string // inspection tool
	Line   int    // 1-based, 0 when not tied to a line
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	s := e.Source + ": " + e.Msg
	if e.Line > 0 {
		s = fmt.Sprintf("%s: line %d: %s", e.Source, e.Line, e.Msg)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

// assignKindIndexes numbers tracks within their kind and checks index uniqueness.
func assignKindIndexes(source string, ts []Track) error {
	seen := make(map[int]bool, len(ts))
	counts := map[Kind]int{}
	for i := range ts {
		if seen[ts[i].Index] {
			return &ParseError{Source: source, Msg: fmt.Sprintf("duplicate track index %d", ts[i].Index)}
		}
		seen[ts[i].Index] = true
		ts[i].KindIndex = counts[ts[i].Kind]
		counts[ts[i].Kind]++
	}
	return nil
}
