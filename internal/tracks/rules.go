package tracks

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Wildcard in a rule set's language list makes every language a match.
const Wildcard = "*"

// RuleSet holds the detection rules for one track kind. The zero value
// matches nothing.
type RuleSet struct {
	languages   []string // case-folded
	anyLanguage bool
	names       []*regexp.Regexp
	excludes    []*regexp.Regexp
}

// NewRuleSet compiles a rule set. Patterns are case-insensitive regular
// expressions searched anywhere in a track name.
func NewRuleSet(languages, names, excludes []string) (RuleSet, error) {
	var rs RuleSet
	for _, l := range languages {
		l = strings.TrimSpace(l)
		switch {
		case l == "":
			continue
		case l == Wildcard:
			rs.anyLanguage = true
		default:
			rs.languages = append(rs.languages, fold(l))
		}
	}
	var err error
	if rs.names, err = compileAll("name", names); err != nil {
		return RuleSet{}, err
	}
	if rs.excludes, err = compileAll("exclude", excludes); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// MustRuleSet is NewRuleSet that panics on an invalid pattern.
func MustRuleSet(languages, names, excludes []string) RuleSet {
	rs, err := NewRuleSet(languages, names, excludes)
	if err != nil {
		panic(err)
	}
	return rs
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", field, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// excludedBy returns the first exclude pattern matching name.
func (rs RuleSet) excludedBy(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, re := range rs.excludes {
		if re.MatchString(name) {
			return patternSource(re), true
		}
	}
	return "", false
}

// languageMatch reports the configured tag lang matches. A tag matches when
// it equals lang or is a prefix of lang followed by '-' or '_' ("en" matches
// "en-US").
func (rs RuleSet) languageMatch(lang string) (string, bool) {
	if rs.anyLanguage {
		return Wildcard, true
	}
	if lang == "" {
		return "", false
	}
	l := fold(lang)
	for _, tag := range rs.languages {
		if l == tag || strings.HasPrefix(l, tag+"-") || strings.HasPrefix(l, tag+"_") {
			return tag, true
		}
	}
	return "", false
}

func (rs RuleSet) nameMatch(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, re := range rs.names {
		if re.MatchString(name) {
			return patternSource(re), true
		}
	}
	return "", false
}

func patternSource(re *regexp.Regexp) string {
	return strings.TrimPrefix(re.String(), "(?i)")
}
