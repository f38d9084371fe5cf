package tracks

import (
	"fmt"
	"sort"
	"strings"
)

// Reason explains why a track was not selected.
type Reason string

const (
	ReasonExcluded        Reason = "excluded-by-pattern"
	ReasonNoLanguageMatch Reason = "no-language-match"
	ReasonNoNameMatch     Reason = "no-name-match"
	ReasonOutranked       Reason = "outranked"
)

// Rejection records why one candidate track lost.
type Rejection struct {
	Index   int
	Reasons []Reason
	Pattern string // exclude pattern for ReasonExcluded
	Winner  int    // selected index for ReasonOutranked
}

func (r Rejection) String() string {
	parts := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		switch reason {
		case ReasonExcluded:
			parts = append(parts, fmt.Sprintf("excluded by pattern /%s/", r.Pattern))
		case ReasonOutranked:
			parts = append(parts, fmt.Sprintf("matched, but track #%d is declared first", r.Winner))
		default:
			parts = append(parts, strings.ReplaceAll(string(reason), "-", " "))
		}
	}
	return strings.Join(parts, ", ")
}

// Selection is the outcome for one track kind.
type Selection struct {
	Kind       Kind
	Track      *Track // nil when nothing was selected
	Rule       string // matched rule, e.g. `language "eng"` or `name /English/`
	Rejections []Rejection
}

// Index returns the selected stream index.
func (s Selection) Index() (int, bool) {
	if s.Track == nil {
		return 0, false
	}
	return s.Track.Index, true
}

// Decision is the per-file track choice handed to the command translator.
type Decision struct {
	Audio    Selection
	Subtitle Selection
	Warnings []string
}

// Decide selects the audio and subtitle tracks of a using the kind's rules.
// Rules never cross kinds.
func Decide(a Analysis, audio, subtitle RuleSet) Decision {
	d := Decision{
		Audio:    Select(a.Tracks, Audio, audio),
		Subtitle: Select(a.Tracks, Subtitle, subtitle),
	}
	if d.Audio.Track == nil {
		if len(a.OfKind(Audio)) == 0 {
			d.Warnings = append(d.Warnings, "file has no audio tracks")
		} else {
			d.Warnings = append(d.Warnings, "no audio track matched the detection rules")
		}
	}
	return d
}

// Select applies rs to the tracks of kind k:
//   - a name matching an exclude pattern removes the track, whatever else matches;
//   - a remaining track is a candidate if its language or its name matches;
//   - the candidate with the lowest index wins.
func Select(ts []Track, k Kind, rs RuleSet) Selection {
	sel := Selection{Kind: k}

	type candidate struct {
		t    Track
		rule string
	}
	var cands []candidate
	for _, t := range ts {
		if t.Kind != k {
			continue
		}
		if p, ok := rs.excludedBy(t.Name); ok {
			sel.Rejections = append(sel.Rejections, Rejection{Index: t.Index, Reasons: []Reason{ReasonExcluded}, Pattern: p})
			continue
		}
		if tag, ok := rs.languageMatch(t.Language); ok {
			rule := fmt.Sprintf("language %q", tag)
			if tag == Wildcard {
				rule = "any language"
			}
			cands = append(cands, candidate{t: t, rule: rule})
			continue
		}
		if p, ok := rs.nameMatch(t.Name); ok {
			cands = append(cands, candidate{t: t, rule: fmt.Sprintf("name /%s/", p)})
			continue
		}
		sel.Rejections = append(sel.Rejections, Rejection{Index: t.Index, Reasons: []Reason{ReasonNoLanguageMatch, ReasonNoNameMatch}})
	}
	if len(cands) == 0 {
		sortRejections(sel.Rejections)
		return sel
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].t.Index < cands[j].t.Index })
	win := cands[0].t
	sel.Track = &win
	sel.Rule = cands[0].rule
	for _, c := range cands[1:] {
		sel.Rejections = append(sel.Rejections, Rejection{Index: c.t.Index, Reasons: []Reason{ReasonOutranked}, Winner: win.Index})
	}
	sortRejections(sel.Rejections)
	return sel
}

func sortRejections(rs []Rejection) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Index < rs[j].Index })
}
