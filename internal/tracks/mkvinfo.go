package tracks

import (
	"bufio"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reMkvmergeID = regexp.MustCompile(`track ID for mkvmerge & mkvextract:\s*(\d+)`)
	reLeadingInt = regexp.MustCompile(`^\s*(\d+)`)
	reClock      = regexp.MustCompile(`(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	reSeconds    = regexp.MustCompile(`^([\d.]+)s`)
)

// mkvTrack accumulates attributes of one "Track" element.
type mkvTrack struct {
	depth      int
	number     int
	mkvmergeID int
	hasID      bool
	typ        string
	lang       string
	langBCP47  string
	name       string
	codec      string
	def        bool
	forced     bool
}

// ParseMkvinfo parses the indented outline printed by mkvinfo. Each line
// looks like "|  + Key: value"; the column of the '+' is the nesting depth.
// Lines that are not outline elements are ignored.
func ParseMkvinfo(out string) (Analysis, error) {
	const source = "mkvinfo"
	var (
		a        Analysis
		cur      *mkvTrack
		raw      []mkvTrack
		sawTrack bool
		lineNo   int
	)
	closeCur := func() {
		if cur != nil {
			raw = append(raw, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		depth := strings.IndexByte(line, '+')
		if depth < 0 || strings.Trim(line[:depth], "| \t") != "" {
			continue
		}
		body := strings.TrimSpace(line[depth+1:])
		key, val, _ := strings.Cut(body, ":")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if cur != nil && depth <= cur.depth {
			closeCur()
		}

		if isTrackElement(body) {
			sawTrack = true
			cur = &mkvTrack{depth: depth}
			continue
		}
		if cur == nil {
			if key == "Duration" && a.Duration == 0 {
				a.Duration = parseMkvDuration(val)
			}
			continue
		}
		cur.attach(key, val)
	}
	if err := sc.Err(); err != nil {
		return Analysis{}, &ParseError{Source: source, Line: lineNo, Msg: "read output", Err: err}
	}
	closeCur()

	if !sawTrack {
		return Analysis{}, &ParseError{Source: source, Msg: "no track entries found"}
	}

	for i, r := range raw {
		kind, ok := mkvKind(r.typ)
		if !ok {
			continue
		}
		idx := i
		switch {
		case r.hasID:
			idx = r.mkvmergeID
		case r.number > 0:
			idx = r.number - 1
		}
		lang := r.langBCP47
		if lang == "" {
			lang = r.lang
		}
		a.Tracks = append(a.Tracks, Track{
			Index:    idx,
			Kind:     kind,
			Language: lang,
			Name:     r.name,
			Codec:    r.codec,
			Default:  r.def,
			Forced:   r.forced,
		})
	}
	if err := assignKindIndexes(source, a.Tracks); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func isTrackElement(body string) bool {
	f := strings.Fields(body)
	if len(f) == 0 || f[0] != "Track" {
		return false
	}
	return len(f) == 1 || f[1] == "at" || strings.HasPrefix(f[1], "(")
}

func (t *mkvTrack) attach(key, val string) {
	lk := strings.ToLower(key)
	switch {
	case key == "Track number":
		if m := reMkvmergeID.FindStringSubmatch(val); m != nil {
			t.mkvmergeID, _ = strconv.Atoi(m[1])
			t.hasID = true
		}
		if m := reLeadingInt.FindStringSubmatch(val); m != nil {
			t.number, _ = strconv.Atoi(m[1])
		}
	case key == "Track type":
		t.typ = strings.ToLower(val)
	case strings.HasPrefix(key, "Language (IETF"):
		t.langBCP47 = firstField(val)
	case key == "Language":
		t.lang = firstField(val)
	case key == "Name":
		t.name = val
	case key == "Codec ID":
		t.codec = val
	case strings.Contains(lk, "default track") || lk == "default flag":
		t.def = flagValue(val)
	case strings.Contains(lk, "forced"):
		t.forced = flagValue(val)
	}
}

func mkvKind(typ string) (Kind, bool) {
	switch typ {
	case "video":
		return Video, true
	case "audio":
		return Audio, true
	case "subtitles", "subtitle":
		return Subtitle, true
	}
	return "", false
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func flagValue(s string) bool {
	switch firstField(s) {
	case "1", "yes", "true":
		return true
	}
	return false
}

// parseMkvDuration accepts "00:23:40.040000000" and the older
// "1420.040s (00:23:40.040)" forms.
func parseMkvDuration(s string) time.Duration {
	if m := reClock.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		sec, _ := strconv.ParseFloat(m[3], 64)
		return time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + seconds(sec)
	}
	if m := reSeconds.FindStringSubmatch(s); m != nil {
		sec, _ := strconv.ParseFloat(m[1], 64)
		return seconds(sec)
	}
	return 0
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
