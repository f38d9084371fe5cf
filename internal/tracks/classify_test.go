package tracks

import (
	"strings"
	"testing"
)

func twoAudioTracks() []Track {
	return []Track{
		{Index: 0, Kind: Audio, Language: "jpn", Name: "Japanese"},
		{Index: 1, Kind: Audio, Language: "eng", Name: "English Stereo"},
	}
}

func TestSelect_EnglishOverJapanese(t *testing.T) {
	rs := MustRuleSet([]string{"en", "eng"}, nil, nil)
	sel := Select(twoAudioTracks(), Audio, rs)
	idx, ok := sel.Index()
	if !ok || idx != 1 {
		t.Fatalf("selected %v %v, want index 1", idx, ok)
	}
	if sel.Rule != `language "eng"` {
		t.Errorf("Rule = %q", sel.Rule)
	}
	if len(sel.Rejections) != 1 || sel.Rejections[0].Index != 0 {
		t.Fatalf("rejections = %+v", sel.Rejections)
	}
	r := sel.Rejections[0]
	if len(r.Reasons) != 2 || r.Reasons[0] != ReasonNoLanguageMatch || r.Reasons[1] != ReasonNoNameMatch {
		t.Errorf("reasons = %v", r.Reasons)
	}
}

func TestSelect_ExcludeBeatsLanguage(t *testing.T) {
	rs := MustRuleSet([]string{"en", "eng"}, nil, []string{"Stereo"})
	sel := Select(twoAudioTracks(), Audio, rs)
	if _, ok := sel.Index(); ok {
		t.Fatalf("selected %+v, want none", sel.Track)
	}
	var excluded *Rejection
	for i := range sel.Rejections {
		if sel.Rejections[i].Index == 1 {
			excluded = &sel.Rejections[i]
		}
	}
	if excluded == nil || excluded.Reasons[0] != ReasonExcluded || excluded.Pattern != "Stereo" {
		t.Fatalf("rejections = %+v", sel.Rejections)
	}
	if !strings.Contains(excluded.String(), "excluded by pattern /Stereo/") {
		t.Errorf("String() = %q", excluded.String())
	}
}

func TestSelect_Rules(t *testing.T) {
	tests := []struct {
		name    string
		tracks  []Track
		rules   RuleSet
		kind    Kind
		wantIdx int // -1 for none
	}{
		{
			name: "exclude wins over name pattern",
			tracks: []Track{
				{Index: 2, Kind: Audio, Language: "eng", Name: "English JPN dub"},
			},
			rules:   MustRuleSet(nil, []string{"English"}, []string{"JPN"}),
			kind:    Audio,
			wantIdx: -1,
		},
		{
			name: "name pattern without language",
			tracks: []Track{
				{Index: 1, Kind: Audio, Name: "Commentary"},
				{Index: 2, Kind: Audio, Name: "ENG 5.1"},
			},
			rules:   MustRuleSet([]string{"en"}, []string{"eng"}, nil),
			kind:    Audio,
			wantIdx: 2,
		},
		{
			name: "tie-break lowest index even when declared later",
			tracks: []Track{
				{Index: 5, Kind: Audio, Language: "eng"},
				{Index: 3, Kind: Audio, Language: "eng"},
				{Index: 4, Kind: Audio, Language: "en"},
			},
			rules:   MustRuleSet([]string{"en", "eng"}, nil, nil),
			kind:    Audio,
			wantIdx: 3,
		},
		{
			name: "language case-insensitive with region suffix",
			tracks: []Track{
				{Index: 1, Kind: Audio, Language: "EN-gb"},
			},
			rules:   MustRuleSet([]string{"en"}, nil, nil),
			kind:    Audio,
			wantIdx: 1,
		},
		{
			name: "bare prefix is not a language match",
			tracks: []Track{
				{Index: 1, Kind: Audio, Language: "enm"},
			},
			rules:   MustRuleSet([]string{"en"}, nil, nil),
			kind:    Audio,
			wantIdx: -1,
		},
		{
			name: "wildcard accepts every non-excluded track",
			tracks: []Track{
				{Index: 1, Kind: Subtitle, Language: "jpn", Name: "Japanese"},
				{Index: 2, Kind: Subtitle},
			},
			rules:   MustRuleSet([]string{Wildcard}, nil, []string{"Japanese"}),
			kind:    Subtitle,
			wantIdx: 2,
		},
		{
			name: "empty names and languages never crash",
			tracks: []Track{
				{Index: 0, Kind: Subtitle},
				{Index: 1, Kind: Subtitle},
			},
			rules:   MustRuleSet([]string{"en"}, []string{"Signs"}, []string{"JPN"}),
			kind:    Subtitle,
			wantIdx: -1,
		},
		{
			name: "audio rules ignore subtitle tracks",
			tracks: []Track{
				{Index: 0, Kind: Subtitle, Language: "eng"},
				{Index: 1, Kind: Audio, Language: "jpn"},
			},
			rules:   MustRuleSet([]string{"eng"}, nil, nil),
			kind:    Audio,
			wantIdx: -1,
		},
		{
			name: "signs subtitle by name pattern",
			tracks: []Track{
				{Index: 3, Kind: Subtitle, Language: "jpn", Name: "Full"},
				{Index: 4, Kind: Subtitle, Language: "und", Name: "Signs & Songs"},
			},
			rules:   MustRuleSet(nil, []string{`Signs.*Song`, `Signs$`}, []string{"Japanese"}),
			kind:    Subtitle,
			wantIdx: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(tt.tracks, tt.kind, tt.rules)
			idx, ok := sel.Index()
			if tt.wantIdx < 0 {
				if ok {
					t.Fatalf("selected %d, want none", idx)
				}
			} else if !ok || idx != tt.wantIdx {
				t.Fatalf("selected %d (%v), want %d", idx, ok, tt.wantIdx)
			}
			// Every candidate of the kind is either selected or rejected, never both.
			seen := map[int]bool{}
			if ok {
				seen[idx] = true
			}
			for _, r := range sel.Rejections {
				if seen[r.Index] {
					t.Errorf("track %d both selected and rejected", r.Index)
				}
				seen[r.Index] = true
			}
			for _, tr := range tt.tracks {
				if tr.Kind == tt.kind && !seen[tr.Index] {
					t.Errorf("track %d missing from decision", tr.Index)
				}
			}
		})
	}
}

func TestSelect_ExcludedNeverSelected(t *testing.T) {
	names := []string{"English", "English Stereo", "ENG Commentary", "Stereo", ""}
	langs := []string{"eng", "en", "jpn", ""}
	for _, n := range names {
		for _, l := range langs {
			ts := []Track{{Index: 0, Kind: Audio, Language: l, Name: n}}
			sel := Select(ts, Audio, MustRuleSet([]string{Wildcard, "eng"}, []string{"English", "ENG"}, []string{"Stereo|Commentary"}))
			if sel.Track != nil && strings.Contains(n, "Stereo") || sel.Track != nil && strings.Contains(n, "Commentary") {
				t.Errorf("excluded track %q/%q selected", l, n)
			}
		}
	}
}

func TestDecide_Warnings(t *testing.T) {
	audio := MustRuleSet([]string{"eng"}, nil, nil)
	subs := MustRuleSet([]string{"eng"}, nil, nil)

	d := Decide(Analysis{Tracks: []Track{{Index: 0, Kind: Video}}}, audio, subs)
	if len(d.Warnings) != 1 || !strings.Contains(d.Warnings[0], "no audio tracks") {
		t.Errorf("warnings = %v", d.Warnings)
	}
	if d.Subtitle.Track != nil {
		t.Errorf("subtitle selected from nothing")
	}

	d = Decide(Analysis{Tracks: []Track{{Index: 0, Kind: Audio, Language: "jpn"}}}, audio, subs)
	if len(d.Warnings) != 1 || !strings.Contains(d.Warnings[0], "matched") {
		t.Errorf("warnings = %v", d.Warnings)
	}
}

func TestNewRuleSet_InvalidPattern(t *testing.T) {
	if _, err := NewRuleSet(nil, []string{"("}, nil); err == nil {
		t.Error("expected error for invalid name pattern")
	}
	if _, err := NewRuleSet(nil, nil, []string{"[a-"}); err == nil {
		t.Error("expected error for invalid exclude pattern")
	}
}

func TestRuleSet_ZeroValueMatchesNothing(t *testing.T) {
	sel := Select([]Track{{Index: 0, Kind: Audio, Language: "eng", Name: "English"}}, Audio, RuleSet{})
	if sel.Track != nil {
		t.Errorf("zero RuleSet selected %+v", sel.Track)
	}
}
